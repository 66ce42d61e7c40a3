package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	api "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/http/api"
	repository "github.com/Shivam-Lahoti/F1-Predictor/internal/adapters/repository"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/model"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/predict"
	"github.com/Shivam-Lahoti/F1-Predictor/internal/domain/simulate"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps implements api.Dependencies with canned data.
type fakeDeps struct {
	seen       map[string]bool
	enqueueOK  bool
	enqueued   []model.IngestRecord
	unrecorded []string

	races      []model.Race
	detail     model.RaceDetail
	detailErr  error
	drivers    []model.Driver
	topN       []api.RankingEntry
	rankErr    error
	forecasts  []predict.DriverForecast
	forecstErr error
	simResult  simulate.Result
	simErr     error
	simInput   simulate.Input
	delta      float64
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		seen:      make(map[string]bool),
		enqueueOK: true,
		races: []model.Race{
			{ID: 1, Season: 2024, Round: 1, Name: "Bahrain Grand Prix"},
			{ID: 2, Season: 2024, Round: 2, Name: "Saudi Arabian Grand Prix"},
		},
		detail: model.RaceDetail{Race: model.Race{ID: 1, Season: 2024, Round: 1, Name: "Bahrain Grand Prix"}},
		drivers: []model.Driver{
			{ID: 1, Code: "VER", FirstName: "Max", LastName: "Verstappen"},
		},
		topN: []api.RankingEntry{
			{Rank: 1, DriverCode: "VER", Rating: 1580},
			{Rank: 2, DriverCode: "NOR", Rating: 1540},
		},
		forecasts: []predict.DriverForecast{
			{DriverCode: "VER", WinProb: 0.6, PodiumProb: 0.9},
			{DriverCode: "NOR", WinProb: 0.4, PodiumProb: 0.8},
		},
		simResult: simulate.Result{Runs: 100, Seed: 7, MeanTotalSec: 5000},
		delta:     -0.25,
	}
}

func (f *fakeDeps) SeenAndRecord(ctx context.Context, id string) bool {
	if f.seen[id] {
		return true
	}
	f.seen[id] = true
	return false
}

func (f *fakeDeps) Unrecord(ctx context.Context, id string) {
	delete(f.seen, id)
	f.unrecorded = append(f.unrecorded, id)
}

func (f *fakeDeps) Enqueue(ctx context.Context, record model.IngestRecord) bool {
	if !f.enqueueOK {
		return false
	}
	f.enqueued = append(f.enqueued, record)
	return true
}

func (f *fakeDeps) ListRaces(ctx context.Context, season, limit int) ([]model.Race, error) {
	out := make([]model.Race, 0, len(f.races))
	for _, r := range f.races {
		if season != 0 && r.Season != season {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeDeps) GetRaceDetail(ctx context.Context, id int64) (model.RaceDetail, error) {
	if f.detailErr != nil {
		return model.RaceDetail{}, f.detailErr
	}
	if id != f.detail.Race.ID {
		return model.RaceDetail{}, repository.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeDeps) ListDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	return f.drivers, nil
}

func (f *fakeDeps) TopN(ctx context.Context, n int) ([]api.RankingEntry, error) {
	if n >= len(f.topN) {
		return f.topN, nil
	}
	return f.topN[:n], nil
}

func (f *fakeDeps) DriverRank(ctx context.Context, driverCode string) (api.RankingEntry, error) {
	if f.rankErr != nil {
		return api.RankingEntry{}, f.rankErr
	}
	for _, e := range f.topN {
		if e.DriverCode == driverCode {
			return e, nil
		}
	}
	return api.RankingEntry{}, repository.ErrNotFound
}

func (f *fakeDeps) Forecast(ctx context.Context, raceID int64, entrants []predict.Entrant, cond predict.Conditions) ([]predict.DriverForecast, error) {
	if f.forecstErr != nil {
		return nil, f.forecstErr
	}
	if raceID != 0 && raceID != f.detail.Race.ID {
		return nil, repository.ErrNotFound
	}
	return f.forecasts, nil
}

func (f *fakeDeps) Simulate(ctx context.Context, in simulate.Input) (simulate.Result, error) {
	if f.simErr != nil {
		return simulate.Result{}, f.simErr
	}
	f.simInput = in
	return f.simResult, nil
}

func (f *fakeDeps) DriverDelta(ctx context.Context, driverCode string) float64 {
	return f.delta
}

type fakeStats struct{}

func (fakeStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"ranked_drivers": 2}
}

func newTestServer(deps *fakeDeps) *httptest.Server {
	srv := api.NewServer(deps, fakeStats{}, api.Limits{MaxRankingLimit: 100, MaxListLimit: 50})
	mux := http.NewServeMux()
	srv.Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a running API server", t, func() {
		deps := newFakeDeps()
		ts := newTestServer(deps)
		defer ts.Close()

		client := ts.Client()

		Convey("When requesting /health", func() {
			resp, err := client.Get(ts.URL + "/health")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it reports healthy", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["status"], ShouldEqual, "healthy")
			})
		})

		Convey("When requesting /stats", func() {
			resp, err := client.Get(ts.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the service counters come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body map[string]interface{}
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["ranked_drivers"], ShouldEqual, 2)
			})
		})

		Convey("When requesting /metrics", func() {
			resp, err := client.Get(ts.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the exposition endpoint responds", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When listing races", func() {
			resp, err := client.Get(ts.URL + "/api/races")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then all races are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var races []model.Race
				So(json.NewDecoder(resp.Body).Decode(&races), ShouldBeNil)
				So(len(races), ShouldEqual, 2)
			})
		})

		Convey("When listing races with a bad season", func() {
			resp, err := client.Get(ts.URL + "/api/races?season=1800")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing races past the limit cap", func() {
			resp, err := client.Get(ts.URL + "/api/races?limit=9999")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching a race detail", func() {
			resp, err := client.Get(ts.URL + "/api/races/1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the detail is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var detail model.RaceDetail
				So(json.NewDecoder(resp.Body).Decode(&detail), ShouldBeNil)
				So(detail.Race.Name, ShouldEqual, "Bahrain Grand Prix")
			})
		})

		Convey("When fetching an unknown race", func() {
			resp, err := client.Get(ts.URL + "/api/races/99")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When fetching a race with a junk id", func() {
			resp, err := client.Get(ts.URL + "/api/races/abc")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When listing drivers", func() {
			resp, err := client.Get(ts.URL + "/api/drivers")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			var drivers []model.Driver
			So(json.NewDecoder(resp.Body).Decode(&drivers), ShouldBeNil)
			So(len(drivers), ShouldEqual, 1)
		})

		Convey("When fetching the rankings", func() {
			resp, err := client.Get(ts.URL + "/api/rankings?limit=2")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the top entries come back in order", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var entries []api.RankingEntry
				So(json.NewDecoder(resp.Body).Decode(&entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].DriverCode, ShouldEqual, "VER")
			})
		})

		Convey("When fetching rankings with a bad limit", func() {
			resp, err := client.Get(ts.URL + "/api/rankings?limit=zero")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching rankings past the limit cap", func() {
			resp, err := client.Get(ts.URL + "/api/rankings?limit=5000")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When fetching a driver rank by lower case code", func() {
			resp, err := client.Get(ts.URL + "/api/rankings/ver")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the code is upper cased before lookup", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var entry api.RankingEntry
				So(json.NewDecoder(resp.Body).Decode(&entry), ShouldBeNil)
				So(entry.DriverCode, ShouldEqual, "VER")
			})
		})

		Convey("When fetching a rank for an unknown driver", func() {
			resp, err := client.Get(ts.URL + "/api/rankings/XXX")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When requesting the endpoint index", func() {
			resp, err := client.Get(ts.URL + "/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When requesting an unknown path", func() {
			resp, err := client.Get(ts.URL + "/nope")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestIngestEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		deps := newFakeDeps()
		ts := newTestServer(deps)
		defer ts.Close()

		client := ts.Client()
		post := func(body string) *http.Response {
			resp, err := client.Post(ts.URL+"/api/ingest", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		validRecord := `{
			"event_id": "2024-1-r-ver",
			"kind": "result",
			"season": 2024,
			"round": 1,
			"driver_code": "ver",
			"final_position": 1,
			"points": 25
		}`

		Convey("When posting a valid record", func() {
			resp := post(validRecord)
			defer resp.Body.Close()

			Convey("Then it is accepted and queued with a normalized code", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].DriverCode, ShouldEqual, "VER")
			})
		})

		Convey("When posting the same record twice", func() {
			first := post(validRecord)
			first.Body.Close()
			second := post(validRecord)
			defer second.Body.Close()

			Convey("Then the duplicate is acknowledged without queueing", func() {
				So(second.StatusCode, ShouldEqual, http.StatusOK)
				var ack map[string]interface{}
				So(json.NewDecoder(second.Body).Decode(&ack), ShouldBeNil)
				So(ack["duplicate"], ShouldEqual, true)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue is saturated", func() {
			deps.enqueueOK = false

			resp := post(validRecord)
			defer resp.Body.Close()

			Convey("Then the producer is told to back off and the key released", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
				So(deps.unrecorded, ShouldContain, "2024-1-r-ver")

				deps.enqueueOK = true
				retry := post(validRecord)
				defer retry.Body.Close()
				So(retry.StatusCode, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When posting malformed JSON", func() {
			resp := post(`{"event_id": `)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a record missing required fields", func() {
			resp := post(`{"event_id": "x", "kind": "qualifying", "season": 2024, "round": 1}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting an unknown record kind", func() {
			resp := post(`{"event_id": "x", "kind": "telemetry_blob", "season": 2024, "round": 1}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using GET on the ingest endpoint", func() {
			resp, err := client.Get(ts.URL + "/api/ingest")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPredictEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		deps := newFakeDeps()
		ts := newTestServer(deps)
		defer ts.Close()

		client := ts.Client()
		post := func(body string) *http.Response {
			resp, err := client.Post(ts.URL+"/api/predict", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		Convey("When predicting from an explicit entrant list", func() {
			resp := post(`{
				"entrants": [
					{"driver_code": "ver", "grid_position": 1, "rating": 1580},
					{"driver_code": "nor", "grid_position": 2, "rating": 1540}
				],
				"conditions": {"track_temp_c": 40}
			}`)
			defer resp.Body.Close()

			Convey("Then forecasts come back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var body struct {
					Forecasts []predict.DriverForecast `json:"forecasts"`
				}
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(len(body.Forecasts), ShouldEqual, 2)
			})
		})

		Convey("When predicting from a stored race", func() {
			resp := post(`{"race_id": 1, "conditions": {}}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When predicting an unknown race", func() {
			resp := post(`{"race_id": 42, "conditions": {}}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the request names neither race nor entrants", func() {
			resp := post(`{"conditions": {}}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an entrant has no grid slot", func() {
			resp := post(`{"entrants": [{"driver_code": "VER"}]}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the model reports an empty field", func() {
			deps.forecstErr = predict.ErrNoEntrants

			resp := post(`{"race_id": 1, "conditions": {}}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSimulateEndpoint(t *testing.T) {
	Convey("Given a running API server", t, func() {
		deps := newFakeDeps()
		ts := newTestServer(deps)
		defer ts.Close()

		client := ts.Client()
		post := func(body string) *http.Response {
			resp, err := client.Post(ts.URL+"/api/simulate", "application/json", strings.NewReader(body))
			So(err, ShouldBeNil)
			return resp
		}

		validInput := `{
			"driver_code": "ver",
			"race_laps": 50,
			"circuit_length_km": 5.0,
			"pit_loss_sec": 22,
			"strategy": {"stints": [{"compound": "MEDIUM", "laps": 25}, {"compound": "HARD", "laps": 25}]},
			"runs": 100,
			"seed": 7
		}`

		Convey("When simulating a valid strategy", func() {
			resp := post(validInput)
			defer resp.Body.Close()

			Convey("Then the engine receives the derived driver delta", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var res simulate.Result
				So(json.NewDecoder(resp.Body).Decode(&res), ShouldBeNil)
				So(res.Runs, ShouldEqual, 100)
				So(deps.simInput.DriverDelta, ShouldAlmostEqual, -0.25)
			})
		})

		Convey("When the strategy is missing", func() {
			resp := post(`{"race_laps": 50, "circuit_length_km": 5.0}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the engine rejects the input", func() {
			deps.simErr = simulate.ErrStrategyLaps

			resp := post(validInput)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When race_laps is absent", func() {
			resp := post(`{"circuit_length_km": 5.0, "strategy": {"stints": [{"compound": "SOFT", "laps": 10}]}}`)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}
