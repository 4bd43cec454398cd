package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/cogdiag/internal/adapters/report"
	app "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/config"
	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When building the service", func() {
			svc, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then it should serve the built-in catalog", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(svc.Bands(ctx)), convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When a catalog file is configured", func() {
			f, err := os.CreateTemp("", "cogdiag-catalog-*.yaml")
			convey.So(err, convey.ShouldBeNil)
			_, _ = f.WriteString(`
bands:
  - age_band: 18
    tests:
      - {name: "MoCA", min: 0, max: 30}
    recommendations: {normal: a, risk: b, deviation: c}
`)
			_ = f.Close()
			defer func() { _ = os.Remove(f.Name()) }()
			cfg.CatalogPath = f.Name()

			svc, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then the service should use it", func() {
				convey.So(err, convey.ShouldBeNil)
				bands := svc.Bands(ctx)
				convey.So(len(bands), convey.ShouldEqual, 1)
				convey.So(bands[0].AgeBand, convey.ShouldEqual, model.AgeBandAdult)
			})
		})

		convey.Convey("When the catalog file is missing", func() {
			cfg.CatalogPath = "/non/existent/catalog.yaml"
			_, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load catalog")
			})
		})

		convey.Convey("When the PDF font is missing", func() {
			cfg.PDFFontPath = "/non/existent/font.ttf"
			_, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then building should fail with a font error", func() {
				convey.So(errors.Is(err, report.ErrFontLoad), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When averaging over scored tests", func() {
			cfg.Denominator = config.DenominatorScored
			svc, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then the service should still score sheets", func() {
				convey.So(err, convey.ShouldBeNil)
				a, err := svc.Assess(ctx, app.Request{AgeBand: model.AgeBandInfant, Scores: []float64{150, 100, 0}})
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.AveragePercent, convey.ShouldEqual, 100.0)
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a handler", t, func() {
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
		srv := newHTTPServer(":0", h)

		convey.Convey("Then the server should carry the timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)

			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusTeapot)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the configuration is invalid", func() {
			_ = os.Setenv("COGDIAG_ADDR", "")
			defer func() { _ = os.Unsetenv("COGDIAG_ADDR") }()

			err := run(context.Background())

			convey.Convey("Then run should fail before serving", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
			})
		})

		convey.Convey("When the context is cancelled while serving", func() {
			_ = os.Setenv("COGDIAG_ADDR", "127.0.0.1:0")
			_ = os.Setenv("COGDIAG_SHUTDOWN_TIMEOUT", "1s")
			defer func() {
				_ = os.Unsetenv("COGDIAG_ADDR")
				_ = os.Unsetenv("COGDIAG_SHUTDOWN_TIMEOUT")
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			err := run(ctx)

			convey.Convey("Then it should shut down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address cannot be bound", func() {
			_ = os.Setenv("COGDIAG_ADDR", "256.0.0.1:bad")
			defer func() { _ = os.Unsetenv("COGDIAG_ADDR") }()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := run(ctx)

			convey.Convey("Then run should report the listen error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(strings.Contains(err.Error(), "http server"), convey.ShouldBeTrue)
			})
		})
	})
}
