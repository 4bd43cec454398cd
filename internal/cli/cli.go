// Package cli implements the assess command: score one sheet from flags or
// a JSON file and print or save the report.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"

	"github.com/okian/cogdiag/internal/adapters/report"
	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/pkg/logger"
)

// EnvPrefix is the prefix of environment variables mirroring the flags,
// e.g. COGDIAG_FORMAT for -format.
const EnvPrefix = "COGDIAG"

// ErrUsage marks errors caused by bad flags or input files.
var ErrUsage = errors.New("usage error")

// Options holds the parsed command line.
type Options struct {
	Band     string
	Scores   string
	Input    string
	Clamp    bool
	Format   string
	Out      string
	Catalog  string
	Font     string
	LogLevel string
}

// ParseOptions reads flags from args, then COGDIAG_* environment variables.
func ParseOptions(args []string, stderr io.Writer) (Options, error) {
	var o Options
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.Band, "band", "", "age band (0, 5, 10, 15, 18); overrides age_band from -input")
	fs.StringVar(&o.Scores, "scores", "", "comma separated scores in catalog order, e.g. \"150,100,0\"")
	fs.StringVar(&o.Input, "input", "", "JSON file with age_band, scores (array or object keyed by test name) and clamp")
	fs.BoolVar(&o.Clamp, "clamp", false, "pull out-of-range scores into range instead of failing")
	fs.StringVar(&o.Format, "format", "text", "report format: text or pdf")
	fs.StringVar(&o.Out, "out", "-", "output path; \"-\" for stdout, empty for report_age_{band}.{ext}")
	fs.StringVar(&o.Catalog, "catalog", "", "YAML catalog file; built-in catalog when empty")
	fs.StringVar(&o.Font, "font", "", "UTF-8 TrueType font for PDF reports")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return Options{}, errors.Wrap(err, "parse flags")
	}
	if fs.NArg() > 0 {
		return Options{}, errors.Wrapf(ErrUsage, "unexpected arguments %q", fs.Args())
	}
	if o.Scores == "" && o.Input == "" {
		return Options{}, errors.Wrap(ErrUsage, "one of -scores or -input is required")
	}
	if o.Scores != "" && o.Input != "" {
		return Options{}, errors.Wrap(ErrUsage, "-scores and -input are mutually exclusive")
	}
	return o, nil
}

// Run executes the command with the given arguments.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := ParseOptions(args, stderr)
	if err != nil {
		return err
	}

	if err := logger.InitWithWriter(stderr); err != nil {
		return errors.Wrap(err, "init logger")
	}
	if err := logger.SetLevelString(o.LogLevel); err != nil {
		return errors.Wrap(ErrUsage, err.Error())
	}

	svc, err := newService(ctx, o)
	if err != nil {
		return err
	}

	req, err := buildRequest(ctx, svc, o)
	if err != nil {
		return err
	}

	a, doc, err := svc.Export(ctx, req, o.Format)
	if err != nil {
		return errors.Wrap(err, "assess")
	}

	if err := writeDocument(o.Out, doc, stdout); err != nil {
		return err
	}
	logger.Get().Info(ctx, "assessment done",
		logger.String("id", a.ID),
		logger.String("tier", string(a.Tier)),
		logger.Float64("average_percent", a.AveragePercent),
	)
	return nil
}

func newService(ctx context.Context, o Options) (*service.Service, error) {
	opts := []service.Option{service.WithLogger(logger.Named("assess"))}
	if o.Catalog != "" {
		c, err := catalog.LoadFile(ctx, o.Catalog)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog")
		}
		opts = append(opts, service.WithCatalog(c))
	}
	if o.Font != "" {
		pdf, err := report.NewPDF(report.WithFontPath(o.Font))
		if err != nil {
			return nil, errors.Wrap(err, "pdf renderer")
		}
		opts = append(opts, service.WithRenderer(pdf))
	}
	return service.New(opts...), nil
}

func buildRequest(ctx context.Context, lookup BandLookup, o Options) (service.Request, error) {
	var band *model.AgeBand
	if o.Band != "" {
		b, err := model.ParseAgeBand(o.Band)
		if err != nil {
			return service.Request{}, errors.Wrap(err, "-band")
		}
		band = &b
	}

	var req service.Request
	if o.Input != "" {
		in, err := ReadInput(ctx, o.Input, lookup, band)
		if err != nil {
			return service.Request{}, err
		}
		req = in
	} else {
		if band == nil {
			return service.Request{}, errors.Wrap(ErrUsage, "-band is required with -scores")
		}
		scores, err := ParseScores(o.Scores)
		if err != nil {
			return service.Request{}, err
		}
		req = service.Request{AgeBand: *band, Scores: scores}
	}
	req.Clamp = req.Clamp || o.Clamp
	return req, nil
}

// ParseScores parses a comma separated list of numbers.
func ParseScores(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errors.Wrapf(ErrUsage, "score %d is empty", i+1)
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrUsage, "score %d: %v", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeDocument(out string, doc service.Document, stdout io.Writer) error {
	if out == "-" {
		_, err := stdout.Write(doc.Body)
		return errors.Wrap(err, "write report")
	}
	if out == "" {
		out = doc.FileName
	}
	if err := os.WriteFile(out, doc.Body, 0o600); err != nil {
		return errors.Wrapf(err, "write report to %s", out)
	}
	_, _ = fmt.Fprintf(stdout, "%s\n", out)
	return nil
}
