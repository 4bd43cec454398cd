package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/cogdiag/internal/adapters/http/api"
	service "github.com/okian/cogdiag/internal/app"
	"github.com/okian/cogdiag/internal/domain/catalog"
	"github.com/okian/cogdiag/internal/domain/model"
	"github.com/okian/cogdiag/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// failingDeps returns a fixed error from every scoring call.
type failingDeps struct {
	err error
}

func (f *failingDeps) Assess(context.Context, service.Request) (model.Assessment, error) {
	return model.Assessment{}, f.err
}

func (f *failingDeps) Export(context.Context, service.Request, string) (model.Assessment, service.Document, error) {
	return model.Assessment{}, service.Document{}, f.err
}

func (f *failingDeps) Bands(context.Context) []service.BandSummary { return nil }

func (f *failingDeps) Band(context.Context, model.AgeBand) (catalog.Band, error) {
	return catalog.Band{}, f.err
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newRouter(opts ...api.Option) (http.Handler, *service.Service) {
	svc := service.New()
	srv := api.NewServer(svc, svc, opts...)
	return srv.Router(context.Background()), svc
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var e errorBody
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given the API router", t, func() {
		h, _ := newRouter()

		Convey("When checking health", func() {
			w := do(h, http.MethodGet, "/healthz", "")

			Convey("Then it should report ok as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When scraping metrics after a request", func() {
			do(h, http.MethodGet, "/healthz", "")
			w := do(h, http.MethodGet, "/metrics", "")

			Convey("Then HTTP counters should be exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "cogdiag_screening_http_requests_total")
			})
		})

		Convey("When reading stats", func() {
			w := do(h, http.MethodGet, "/stats", "")

			Convey("Then counters should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats map[string]interface{}
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["bands"], ShouldEqual, 5.0)
			})
		})

		Convey("When the API docs are requested", func() {
			w := do(h, http.MethodGet, "/openapi.yaml", "")

			Convey("Then the embedded description should be served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestBandsEndpoints(t *testing.T) {
	Convey("Given the API router", t, func() {
		h, _ := newRouter()

		Convey("When listing bands", func() {
			w := do(h, http.MethodGet, "/v1/bands", "")

			Convey("Then all five bands should be returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var bands []service.BandSummary
				So(json.Unmarshal(w.Body.Bytes(), &bands), ShouldBeNil)
				So(len(bands), ShouldEqual, 5)
				So(bands[0].AgeBand, ShouldEqual, model.AgeBandInfant)
				So(bands[0].Tests, ShouldEqual, 3)
			})
		})

		Convey("When fetching one band", func() {
			w := do(h, http.MethodGet, "/v1/bands/0", "")

			Convey("Then its tests and recommendations should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var b struct {
					AgeBand         int                    `json:"age_band"`
					Tests           []model.TestDescriptor `json:"tests"`
					Recommendations map[string]string      `json:"recommendations"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &b), ShouldBeNil)
				So(len(b.Tests), ShouldEqual, 3)
				So(b.Tests[2].Polarity, ShouldEqual, model.LowerIsBetter)
				So(b.Recommendations, ShouldContainKey, "deviation")
			})
		})

		Convey("When fetching an unknown band", func() {
			w := do(h, http.MethodGet, "/v1/bands/7", "")

			Convey("Then it should be an invalid input error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the band is not a number", func() {
			w := do(h, http.MethodGet, "/v1/bands/teen", "")

			Convey("Then it should be an invalid input error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})
	})
}

func TestAssessmentEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		h, svc := newRouter()

		Convey("When posting the best infant sheet", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[150,100,0]}`)

			Convey("Then the engine result should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var a model.Assessment
				So(json.Unmarshal(w.Body.Bytes(), &a), ShouldBeNil)
				So(a.Tier, ShouldEqual, model.TierNormal)
				So(a.AveragePercent, ShouldEqual, 100.0)
				So(a.ID, ShouldNotBeEmpty)
				So(len(a.Breakdown), ShouldEqual, 3)
			})

			Convey("And the service should count it", func() {
				So(svc.GetStats()["assessments"], ShouldEqual, int64(1))
			})
		})

		Convey("When the sheet has the wrong length", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[150,100]}`)

			Convey("Then it should be rejected as invalid input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the same sheet asks for clamping", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[999,100],"clamp":true}`)

			Convey("Then it should be scored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"tier":"normal"`)
			})
		})

		Convey("When a value is out of range", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[151,100,0]}`)

			Convey("Then it should be rejected as invalid input", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "invalid_input")
			})
		})

		Convey("When the body is malformed", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the band is missing", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"scores":[1,2,3]}`)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Message, ShouldContainSubstring, "missing age_band")
			})
		})

		Convey("When the method is not allowed", func() {
			w := do(h, http.MethodGet, "/v1/assessments", "")

			Convey("Then chi should answer 405", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	Convey("Given a small body limit", t, func() {
		h, _ := newRouter(api.WithMaxBodyBytes(16))

		Convey("When the body exceeds it", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[150,100,0]}`)

			Convey("Then it should be rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(decodeError(w).Code, ShouldEqual, "body_too_large")
			})
		})
	})

	Convey("Given dependencies that fail unexpectedly", t, func() {
		deps := &failingDeps{err: errors.New("boom")}
		h := api.NewServer(deps, nil).Router(context.Background())

		Convey("When posting a sheet", func() {
			w := do(h, http.MethodPost, "/v1/assessments", `{"age_band":0,"scores":[1,2,3]}`)

			Convey("Then it should be an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w).Code, ShouldEqual, "internal_error")
			})

			Convey("And the cause should not reach the client", func() {
				So(decodeError(w).Message, ShouldEqual, api.ErrInternal.Error())
				So(w.Body.String(), ShouldNotContainSubstring, "boom")
			})
		})
	})
}

func TestReportEndpoint(t *testing.T) {
	Convey("Given the API router", t, func() {
		h, _ := newRouter()
		body := `{"age_band":18,"scores":[0,160,0,100,120,0,0,0]}`

		Convey("When requesting a text report", func() {
			w := do(h, http.MethodPost, "/v1/reports?format=text", body)

			Convey("Then it should be an attachment named after the band", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/plain")
				So(w.Header().Get("Content-Disposition"), ShouldEqual, `attachment; filename="report_age_18.txt"`)
				So(w.Header().Get("X-Assessment-Id"), ShouldNotBeEmpty)
				So(w.Body.String(), ShouldContainSubstring, "Возраст: 18 лет")
			})
		})

		Convey("When no format is given", func() {
			w := do(h, http.MethodPost, "/v1/reports", body)

			Convey("Then a PDF should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/pdf")
				So(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")), ShouldBeTrue)
			})
		})

		Convey("When the format is unknown", func() {
			w := do(h, http.MethodPost, "/v1/reports?format=docx", body)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "unsupported_format")
			})
		})
	})
}

func TestCORS(t *testing.T) {
	Convey("Given a router with one allowed origin", t, func() {
		h, _ := newRouter(api.WithAllowedOrigins([]string{"https://clinic.example"}))

		Convey("When a preflight request arrives from it", func() {
			req := httptest.NewRequest(http.MethodOptions, "/v1/assessments", http.NoBody)
			req.Header.Set("Origin", "https://clinic.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the origin should be allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://clinic.example")
			})
		})

		Convey("When a request arrives from another origin", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Origin", "https://evil.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then no CORS header should be set", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("eof")

		Convey("Error without a cause should print its kind", func() {
			err := &api.Error{Op: "api.x", Kind: api.ErrBadRequest}
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.x: bad request")
		})

		Convey("WrapKind should match kind and cause", func() {
			err := api.WrapKind("api.x", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.x: bad request: eof")
		})

		Convey("Wrap should keep the cause's kind", func() {
			err := api.Wrap("api.x", model.ErrInvalidInput)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Nil errors should stay nil", func() {
			So(api.Wrap("api.x", nil), ShouldBeNil)
			So(api.WrapKind("api.x", api.ErrBadRequest, nil), ShouldBeNil)
		})
	})
}
