package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadFile(t *testing.T) {
	Convey("Given a catalog loader", t, func() {
		ctx := context.Background()

		Convey("When loading a valid YAML catalog", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 0
    tests:
      - name: "Bayley Scales (BSID-III)"
        min: 0
        max: 150
      - name: "M-CHAT-R/F"
        min: 0
        max: 20
      - name: "Sleep diary"
        min: 0
        max: 10
        polarity: lower_is_better
    recommendations:
      normal: "fine"
      risk: "watch"
      deviation: "refer"
`)
			defer func() { _ = os.Remove(path) }()

			c, err := catalog.LoadFile(ctx, path)

			Convey("Then it should load the band", func() {
				So(err, ShouldBeNil)
				So(c.Bands(), ShouldResemble, []model.AgeBand{0})
			})

			Convey("And missing polarities should be inferred from names", func() {
				tests, _ := c.Tests(0)
				So(tests[0].Polarity, ShouldEqual, model.HigherIsBetter)
				So(tests[1].Polarity, ShouldEqual, model.LowerIsBetter)
			})

			Convey("And explicit polarities should win", func() {
				tests, _ := c.Tests(0)
				So(tests[2].Polarity, ShouldEqual, model.LowerIsBetter)
			})

			Convey("And recommendations should be keyed by tier", func() {
				text, err := c.Recommendation(0, model.TierDeviation)
				So(err, ShouldBeNil)
				So(text, ShouldEqual, "refer")
			})
		})

		Convey("When recommendations use display labels as keys", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 5
    tests:
      - {name: "NEPSY-II", min: 0, max: 20}
    recommendations:
      "Норма": "a"
      "Риск": "b"
      "Отклонение": "c"
`)
			defer func() { _ = os.Remove(path) }()

			c, err := catalog.LoadFile(ctx, path)

			Convey("Then they should map to tiers", func() {
				So(err, ShouldBeNil)
				text, _ := c.Recommendation(5, model.TierRisk)
				So(text, ShouldEqual, "b")
			})
		})

		Convey("When the file lacks a tier text", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 0
    tests:
      - {name: "A", min: 0, max: 10}
    recommendations:
      normal: "fine"
`)
			defer func() { _ = os.Remove(path) }()

			_, err := catalog.LoadFile(ctx, path)

			Convey("Then it should be rejected as invalid", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
			})
		})

		Convey("When the file names an unsupported band", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 12
    tests:
      - {name: "A", min: 0, max: 10}
    recommendations: {normal: a, risk: b, deviation: c}
`)
			defer func() { _ = os.Remove(path) }()

			_, err := catalog.LoadFile(ctx, path)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "unknown age band 12")
			})
		})

		Convey("When a band is defined twice", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 0
    tests: [{name: "A", min: 0, max: 10}]
    recommendations: {normal: a, risk: b, deviation: c}
  - age_band: 0
    tests: [{name: "B", min: 0, max: 10}]
    recommendations: {normal: a, risk: b, deviation: c}
`)
			defer func() { _ = os.Remove(path) }()

			_, err := catalog.LoadFile(ctx, path)

			Convey("Then it should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "defined twice")
			})
		})

		Convey("When the polarity is unknown", func() {
			path := writeTempCatalog(`
bands:
  - age_band: 0
    tests: [{name: "A", min: 0, max: 10, polarity: upside_down}]
    recommendations: {normal: a, risk: b, deviation: c}
`)
			defer func() { _ = os.Remove(path) }()

			_, err := catalog.LoadFile(ctx, path)

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := catalog.LoadFile(ctx, "/non/existent/catalog.yaml")

			Convey("Then it should fail to load", func() {
				So(errors.Is(err, catalog.ErrLoadCatalog), ShouldBeTrue)
			})
		})

		Convey("When the YAML is malformed", func() {
			path := writeTempCatalog(`bands: [`)
			defer func() { _ = os.Remove(path) }()

			_, err := catalog.LoadFile(ctx, path)

			Convey("Then it should fail to load", func() {
				So(errors.Is(err, catalog.ErrLoadCatalog), ShouldBeTrue)
			})
		})
	})
}

func writeTempCatalog(content string) string {
	tmpFile, err := os.CreateTemp("", "cogdiag-catalog-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
