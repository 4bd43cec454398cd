package catalog_test

import (
	"errors"
	"testing"

	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultCatalog(t *testing.T) {
	Convey("Given the built-in catalog", t, func() {
		c := catalog.Default()

		Convey("Then it should validate", func() {
			So(c.Validate(), ShouldBeNil)
		})

		Convey("And it should cover exactly the supported bands", func() {
			So(c.Bands(), ShouldResemble, model.AgeBands())
		})

		Convey("And the battery sizes should match the diagnostic form", func() {
			sizes := map[model.AgeBand]int{0: 3, 5: 7, 10: 9, 15: 7, 18: 8}
			for band, n := range sizes {
				tests, err := c.Tests(band)
				So(err, ShouldBeNil)
				So(len(tests), ShouldEqual, n)
			}
		})

		Convey("And every explicit polarity should agree with the legacy name markers", func() {
			for _, band := range c.Bands() {
				tests, _ := c.Tests(band)
				for _, d := range tests {
					So(d.Polarity, ShouldEqual, catalog.InferPolarity(d.Name))
				}
			}
		})

		Convey("And the infant battery should keep its order", func() {
			tests, _ := c.Tests(model.AgeBandInfant)
			So(tests[0].Name, ShouldEqual, "Bayley Scales (BSID-III)")
			So(tests[1].Name, ShouldEqual, "ASQ-3 (проценты)")
			So(tests[2].Name, ShouldEqual, "M-CHAT-R/F")
			So(tests[2].Polarity, ShouldEqual, model.LowerIsBetter)
		})

		Convey("And every band should have a recommendation per tier", func() {
			for _, band := range c.Bands() {
				for _, tier := range model.Tiers() {
					text, err := c.Recommendation(band, tier)
					So(err, ShouldBeNil)
					So(text, ShouldNotBeEmpty)
				}
			}
			text, _ := c.Recommendation(model.AgeBandAdult, model.TierDeviation)
			So(text, ShouldEqual, "Выраженная депрессия. Нужна медицинская помощь.")
		})

		Convey("When asking for an unknown band", func() {
			_, errTests := c.Tests(model.AgeBand(7))
			_, errRec := c.Recommendation(model.AgeBand(7), model.TierNormal)

			Convey("Then both lookups should fail with invalid input", func() {
				So(errors.Is(errTests, model.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(errRec, model.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When a caller mutates a returned battery", func() {
			tests, _ := c.Tests(model.AgeBandInfant)
			tests[0].Max = 1

			Convey("Then the catalog should be unaffected", func() {
				again, _ := c.Tests(model.AgeBandInfant)
				So(again[0].Max, ShouldEqual, 150.0)
			})
		})
	})
}

func TestCatalogClamp(t *testing.T) {
	Convey("Given the built-in catalog", t, func() {
		c := catalog.Default()

		Convey("When clamping out-of-range infant scores", func() {
			out, err := c.Clamp(model.AgeBandInfant, []float64{200, -5, 10})

			Convey("Then values should be pulled into range", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []float64{150, 0, 10})
			})
		})

		Convey("When clamping a short sheet", func() {
			out, err := c.Clamp(model.AgeBandPreschool, []float64{10})

			Convey("Then missing values should default to the minimum", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 7)
				So(out[0], ShouldEqual, 10.0)
				So(out[1], ShouldEqual, 40.0) // KABC-II minimum
			})
		})

		Convey("When clamping for an unknown band", func() {
			_, err := c.Clamp(model.AgeBand(3), []float64{1})

			Convey("Then it should fail with invalid input", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

func TestCatalogValidate(t *testing.T) {
	full := map[model.Tier]string{
		model.TierNormal:    "ok",
		model.TierRisk:      "watch",
		model.TierDeviation: "act",
	}

	Convey("Given hand-built catalogs", t, func() {
		Convey("When the tables are out of lockstep", func() {
			c := catalog.New(
				catalog.Band{AgeBand: 0, Tests: []model.TestDescriptor{{Name: "A", Max: 10}}, Recommendations: full},
				catalog.Band{AgeBand: 5, Tests: []model.TestDescriptor{{Name: "B", Max: 10}}},
			)
			err := c.Validate()

			Convey("Then validation should name the band", func() {
				So(errors.Is(err, catalog.ErrInvalidCatalog), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "band 5 has tests but no recommendations")
			})
		})

		Convey("When a tier text is missing", func() {
			c := catalog.New(catalog.Band{
				AgeBand:         0,
				Tests:           []model.TestDescriptor{{Name: "A", Max: 10}},
				Recommendations: map[model.Tier]string{model.TierNormal: "ok"},
			})
			err := c.Validate()

			Convey("Then validation should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "missing the risk recommendation")
			})
		})

		Convey("When a descriptor has min above max", func() {
			c := catalog.New(catalog.Band{
				AgeBand:         0,
				Tests:           []model.TestDescriptor{{Name: "A", Min: 20, Max: 10}},
				Recommendations: full,
			})

			Convey("Then validation should fail", func() {
				So(c.Validate(), ShouldNotBeNil)
			})
		})

		Convey("When a degenerate test is present", func() {
			c := catalog.New(catalog.Band{
				AgeBand:         0,
				Tests:           []model.TestDescriptor{{Name: "A", Max: 10}, {Name: "Pending", Max: 0}},
				Recommendations: full,
			})

			Convey("Then it should still be valid", func() {
				So(c.Validate(), ShouldBeNil)
			})
		})
	})
}

func TestInferPolarity(t *testing.T) {
	Convey("Given test names", t, func() {
		Convey("Then inverted instruments should be detected case-insensitively", func() {
			for _, name := range []string{"M-CHAT-R/F", "cars-2", "GAD-7 (баллы)", "BDI-II", "PHQ-A", "CPT-II (ошибки %)", "Emotional STROOP", "TMT B (сек)"} {
				So(catalog.InferPolarity(name), ShouldEqual, model.LowerIsBetter)
			}
		})

		Convey("And other instruments should be higher-is-better", func() {
			for _, name := range []string{"Bayley Scales (BSID-III)", "WAIS-IV (IQ)", "Vineland Adaptive", "Conners EC (T)"} {
				So(catalog.InferPolarity(name), ShouldEqual, model.HigherIsBetter)
			}
		})
	})
}
