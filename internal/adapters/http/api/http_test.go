package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/hotspot/internal/adapters/http/api"
	service "github.com/okian/hotspot/internal/app"
	"github.com/okian/hotspot/internal/domain/model"
	"github.com/okian/hotspot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	lastCenter model.Point
	lastRadius float64
	queryErr   error

	hotspots   []model.HotspotResult
	catalog    []model.ScoredPoint
	observers  []model.Observer
	created    bool
	dispatch   service.DispatchResult
	reload     service.CatalogInfo
	reloadErr  error
	alerts     []model.AlertRecord
	alertLimit int

	waitForDeadline  bool
	dispatchDeadline time.Duration
}

func (m *mockDeps) QueryHotspots(_ context.Context, c model.Point, r float64) ([]model.HotspotResult, error) {
	m.lastCenter, m.lastRadius = c, r
	return m.hotspots, m.queryErr
}

func (m *mockDeps) ListHotspots(context.Context) []model.ScoredPoint { return m.catalog }

func (m *mockDeps) RegisterObserver(_ context.Context, o model.Observer) (bool, error) {
	m.observers = append(m.observers, o)
	return m.created, nil
}

func (m *mockDeps) DispatchAlerts(ctx context.Context, c model.Point, r float64) (service.DispatchResult, error) {
	m.lastCenter, m.lastRadius = c, r
	if dl, ok := ctx.Deadline(); ok {
		m.dispatchDeadline = time.Until(dl)
	}
	if m.waitForDeadline {
		<-ctx.Done()
	}
	return m.dispatch, m.queryErr
}

func (m *mockDeps) ReloadCatalog(context.Context) (service.CatalogInfo, error) {
	return m.reload, m.reloadErr
}

func (m *mockDeps) RecentAlerts(_ context.Context, limit int) ([]model.AlertRecord, error) {
	m.alertLimit = limit
	return m.alerts, nil
}

type mockStats struct{}

func (mockStats) GetStats(context.Context) map[string]any {
	return map[string]any{"catalog_points": 3}
}

func newMux(deps *mockDeps, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, mockStats{}, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) types.ErrorResponse {
	var e types.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e
}

func TestHotspotQuery(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{hotspots: []model.HotspotResult{
			{Point: model.Point{Lat: 41.90, Lng: -87.63}, RiskScore: 0.9, DistanceKm: 0.68, Source: model.SourceCatalog},
			{Point: model.Point{Lat: 41.91, Lng: -87.64}, RiskScore: 0.8, DistanceKm: 1.1, Source: model.SourceGenerated},
		}}
		mux := newMux(deps, api.WithRadius(2, 5))

		Convey("When a query omits the radius", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lat":41.905,"lng":-87.635}`)

			Convey("Then the default radius is used and results are returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRadius, ShouldEqual, 2)

				var resp types.QueryResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.RadiusKm, ShouldEqual, 2)
				So(resp.HotspotsFound, ShouldEqual, 2)
				So(resp.Location, ShouldResemble, types.Location{Lat: 41.905, Lng: -87.635})
				So(resp.Hotspots[0].Source, ShouldEqual, "catalog")
				So(resp.Hotspots[1].Source, ShouldEqual, "generated")
			})
		})

		Convey("When lat is missing", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lng":-87.635}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "invalid_coordinate")
		})

		Convey("When the latitude is out of range", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lat":91,"lng":0,"radius_km":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "invalid_coordinate")
		})

		Convey("When the radius is zero", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lat":1,"lng":1,"radius_km":0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "invalid_coordinate")
		})

		Convey("When the radius is above the maximum", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lat":1,"lng":1,"radius_km":6}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "radius_exceeded")
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/hotspots/query", `{`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the service fails", func() {
			deps.queryErr = errors.New("boom")
			w := do(mux, http.MethodPost, "/hotspots/query", `{"lat":1,"lng":1}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the wrong method is used", func() {
			w := do(mux, http.MethodGet, "/hotspots/query", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHotspotList(t *testing.T) {
	Convey("Given a catalog with flagged points", t, func() {
		deps := &mockDeps{catalog: []model.ScoredPoint{{Point: model.Point{Lat: 1, Lng: 2}, RiskScore: 0.9, IsHotspot: true}}}
		mux := newMux(deps)

		w := do(mux, http.MethodGet, "/hotspots", "")

		Convey("Then they are listed", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			var resp types.HotspotsResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Hotspots, ShouldResemble, []types.CatalogHotspot{{Lat: 1, Lng: 2, RiskScore: 0.9}})
		})
	})

	Convey("Given an empty catalog", t, func() {
		w := do(newMux(&mockDeps{}), http.MethodGet, "/hotspots", "")

		Convey("Then an empty array is returned", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"hotspots":[]`)
		})
	})
}

func TestObservers(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDeps{created: true}
		mux := newMux(deps)

		Convey("When an observer registers with a location", func() {
			w := do(mux, http.MethodPost, "/observers", `{"phone_number":"+15550001","lat":41.9,"lng":-87.6}`)

			Convey("Then it is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.observers, ShouldHaveLength, 1)
				So(*deps.observers[0].Location, ShouldResemble, model.Point{Lat: 41.9, Lng: -87.6})

				var resp types.ObserverResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Success, ShouldBeTrue)
				So(resp.Location, ShouldNotBeNil)
			})
		})

		Convey("When an observer registers without a location", func() {
			deps.created = false
			w := do(mux, http.MethodPost, "/observers", `{"phone_number":"+15550001"}`)

			Convey("Then the location stays absent", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.observers[0].Location, ShouldBeNil)
				So(w.Body.String(), ShouldContainSubstring, `"location":null`)
			})
		})

		Convey("When only lat is given", func() {
			w := do(mux, http.MethodPost, "/observers", `{"phone_number":"+1","lat":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "invalid_coordinate")
		})

		Convey("When the phone number is missing", func() {
			w := do(mux, http.MethodPost, "/observers", `{"lat":1,"lng":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestDispatch(t *testing.T) {
	Convey("Given a protected dispatch route", t, func() {
		const secret = "s3cret"
		deps := &mockDeps{dispatch: service.DispatchResult{DispatchID: "d-1", AlertsSent: 2, HotspotsDetected: 4, Message: "careful"}}
		mux := newMux(deps, api.WithSecretKey(secret))

		Convey("When no token is sent", func() {
			w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When a token signed with another key is sent", func() {
			tok, err := api.SignToken("other", "ops")
			So(err, ShouldBeNil)
			w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`, "Authorization", "Bearer "+tok)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When a valid token is sent", func() {
			tok, err := api.SignToken(secret, "ops")
			So(err, ShouldBeNil)
			w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1,"radius_km":3}`, "Authorization", "Bearer "+tok)

			Convey("Then the dispatch summary is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRadius, ShouldEqual, 3)

				var resp types.DispatchResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp, ShouldResemble, types.DispatchResponse{
					Success:          true,
					DispatchID:       "d-1",
					AlertsSent:       2,
					HotspotsDetected: 4,
					Message:          "careful",
				})
			})
		})

		Convey("When the service is not running", func() {
			deps.queryErr = service.ErrNotStarted
			tok, _ := api.SignToken(secret, "ops")
			w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`, "Authorization", "Bearer "+tok)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given deliveries that outlast the dispatch timeout", t, func() {
		deps := &mockDeps{
			waitForDeadline: true,
			dispatch:        service.DispatchResult{DispatchID: "d-2", AlertsSent: 1, AlertsFailed: 3, HotspotsDetected: 2},
		}
		mux := newMux(deps, api.WithDispatchTimeout(20*time.Millisecond))
		w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`)

		Convey("Then the summary reached so far is returned", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.dispatchDeadline, ShouldBeLessThanOrEqualTo, 20*time.Millisecond)

			var resp types.DispatchResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.AlertsSent, ShouldEqual, 1)
			So(resp.AlertsFailed, ShouldEqual, 3)
		})
	})

	Convey("Given the default dispatch timeout", t, func() {
		deps := &mockDeps{}
		w := do(newMux(deps), http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`)
		So(w.Code, ShouldEqual, http.StatusOK)
		So(deps.dispatchDeadline, ShouldBeGreaterThan, 0)
		So(deps.dispatchDeadline, ShouldBeLessThanOrEqualTo, 8*time.Second)
	})

	Convey("Given no secret key", t, func() {
		mux := newMux(&mockDeps{dispatch: service.DispatchResult{Message: service.NoHotspotsMessage}})
		w := do(mux, http.MethodPost, "/alerts/dispatch", `{"lat":1,"lng":1}`)

		Convey("Then dispatch is open", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, service.NoHotspotsMessage)
		})
	})
}

func TestAlertsAndReload(t *testing.T) {
	Convey("Given an alert log", t, func() {
		sent := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		deps := &mockDeps{
			alerts: []model.AlertRecord{{ID: "a1", DispatchID: "d1", ObserverID: "+1", Message: "m", Receipt: "r", SentAt: sent}},
			reload: service.CatalogInfo{Points: 10, Hotspots: 1},
		}
		mux := newMux(deps, api.WithMaxAlertsLimit(50))

		Convey("When listing without a limit", func() {
			w := do(mux, http.MethodGet, "/alerts", "")

			Convey("Then the default limit applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.alertLimit, ShouldEqual, 20)
				var resp types.AlertsResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Alerts, ShouldHaveLength, 1)
				So(resp.Alerts[0].PhoneNumber, ShouldEqual, "+1")
				So(resp.Alerts[0].SentAt.Equal(sent), ShouldBeTrue)
			})
		})

		Convey("When the limit is above the cap", func() {
			w := do(mux, http.MethodGet, "/alerts?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
		})

		Convey("When the limit is not a number", func() {
			w := do(mux, http.MethodGet, "/alerts?limit=x", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When reloading the catalog", func() {
			w := do(mux, http.MethodPost, "/catalog/reload", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"points":10`)
		})

		Convey("When the reload fails", func() {
			deps.reloadErr = errors.New("source down")
			w := do(mux, http.MethodPost, "/catalog/reload", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w).Code, ShouldEqual, "reload_failed")
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		mux := newMux(&mockDeps{})

		Convey("Then /stats returns the provider snapshot", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"catalog_points":3`)
		})

		Convey("Then /healthz and /metrics expose Prometheus metrics", func() {
			for _, path := range []string{"/healthz", "/metrics"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "hotspot_")
			}
		})

		Convey("Then CORS preflight is answered", func() {
			w := do(api.CORSMiddleware(mux), http.MethodOptions, "/hotspots/query", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}
