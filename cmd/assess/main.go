// Command assess scores one screening sheet and prints or saves its report.
//
//	assess -band 5 -scores "15,100,10,60,30,110,120"
//	assess -input sheet.json -format pdf -out ""
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/cogdiag/internal/adapters/report"
	"github.com/okian/cogdiag/internal/cli"
	"github.com/okian/cogdiag/internal/domain/model"
)

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, cli.ErrUsage), errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, report.ErrUnsupportedFormat):
		_, _ = os.Stderr.WriteString("assess: " + err.Error() + "\n")
		stop()
		os.Exit(exitUsage)
	default:
		_, _ = os.Stderr.WriteString("assess: " + err.Error() + "\n")
		stop()
		os.Exit(exitFailure)
	}
}
