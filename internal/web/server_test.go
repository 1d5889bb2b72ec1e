package web

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepa-leadgen/internal/config"
	"github.com/sepa-leadgen/internal/export"
	"github.com/sepa-leadgen/internal/model"
	"github.com/sepa-leadgen/internal/store"
)

func f64(v float64) *float64 { return &v }

type fakeStore struct {
	leads   []store.Lead
	signals map[string][]model.Signal
	filters []store.LeadFilter
	err     error
}

func (f *fakeStore) ListLeads(_ context.Context, filter store.LeadFilter) ([]store.Lead, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Lead
	for _, l := range f.leads {
		if filter.Tier != "" && l.Tier != filter.Tier {
			continue
		}
		if filter.Located && !l.Located() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) GetLead(_ context.Context, id string) (*store.Lead, error) {
	for _, l := range f.leads {
		if l.ID == id {
			l := l
			return &l, nil
		}
	}
	return nil, eris.Wrapf(store.ErrNotFound, "lead %s", id)
}

func (f *fakeStore) SignalsFor(_ context.Context, id string) ([]model.Signal, error) {
	return f.signals[id], nil
}

func (f *fakeStore) Stats(context.Context) (*store.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.Summary{
		Entities: len(f.leads),
		Scored:   len(f.leads),
		Tiers:    map[model.Tier]int{model.TierA: 1, model.TierC: 1},
		Sectors:  map[model.Sector]int{},
	}, nil
}

func (f *fakeStore) Coverage(context.Context) (*store.Coverage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.Coverage{
		Counties: []store.CountyCoverage{
			{County: "Bucks", TotalSites: 2, DieselLike: 1, DieselLikePct: 50, Geocoded: 1, GeocodedPct: 50},
		},
		Products: []store.CodeMapping{{Code: "DIESL", True: 1, Total: 1}, {Code: store.CodeMappingTotal, True: 1, Total: 1}},
		Sectors:  []store.SectorComposition{{Sector: model.SectorFleet, Count: 1, PctOfTotal: 50, AvgScore: f64(100)}},
	}, nil
}

func newFakeStore() *fakeStore {
	at := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	return &fakeStore{
		leads: []store.Lead{
			{Entity: model.Entity{ID: "E1", Name: "Liberty Fleet", Lat: f64(40.2887), Lon: f64(-75.128),
				SectorPrimary: model.SectorFleet},
				Score: 100, Tier: model.TierA, ReasonCodes: []string{"D_TANK"}, ReasonText: "Diesel tanks present"},
			{Entity: model.Entity{ID: "E2", Name: "Corner Store"},
				Score: 45, Tier: model.TierC, ReasonCodes: []string{}},
		},
		signals: map[string][]model.Signal{
			"E1": {model.NewSignal("E1", "sector", "Fleet and Transportation", "naics_local", at)},
		},
	}
}

func newTestServer(t *testing.T, fs *fakeStore, exportEnabled bool) http.Handler {
	t.Helper()
	cfg := ConfigFromSettings(config.WebSettings{Host: "127.0.0.1", Port: 8080, ExportEnabled: exportEnabled})
	return NewServer(cfg, fs, prometheus.NewRegistry()).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestListLeads(t *testing.T) {
	fs := newFakeStore()
	rec := do(t, newTestServer(t, fs, true), http.MethodGet,
		"/api/leads?tier=a&min_score=60&county=Bucks&q=fleet&limit=10&offset=5", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Leads []store.Lead `json:"leads"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "E1", resp.Leads[0].ID)

	require.Len(t, fs.filters, 1)
	f := fs.filters[0]
	assert.Equal(t, model.TierA, f.Tier)
	require.NotNil(t, f.MinScore)
	assert.Equal(t, 60, *f.MinScore)
	assert.Equal(t, "Bucks", f.County)
	assert.Equal(t, "fleet", f.Search)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 5, f.Offset)
}

func TestListLeadsBadParams(t *testing.T) {
	h := newTestServer(t, newFakeStore(), true)
	for _, target := range []string{
		"/api/leads?tier=Z",
		"/api/leads?min_score=high",
		"/api/leads?sector=Bakeries",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListLeadsEmptyIsArray(t *testing.T) {
	fs := newFakeStore()
	fs.leads = nil
	rec := do(t, newTestServer(t, fs, true), http.MethodGet, "/api/leads", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"leads":[]`)
}

func TestListLeadsStoreError(t *testing.T) {
	fs := newFakeStore()
	fs.err = eris.New("connection refused")
	rec := do(t, newTestServer(t, fs, true), http.MethodGet, "/api/leads", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestGetLead(t *testing.T) {
	h := newTestServer(t, newFakeStore(), true)

	rec := do(t, h, http.MethodGet, "/api/leads/E1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Lead    store.Lead     `json:"lead"`
		Signals []model.Signal `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.TierA, resp.Lead.Tier)
	require.Len(t, resp.Signals, 1)
	assert.Equal(t, "sector", resp.Signals[0].SignalType)

	rec = do(t, h, http.MethodGet, "/api/leads/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSignals(t *testing.T) {
	h := newTestServer(t, newFakeStore(), true)
	rec := do(t, h, http.MethodGet, "/api/leads/E2/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGeoJSONOnlyLocated(t *testing.T) {
	fs := newFakeStore()
	rec := do(t, newTestServer(t, fs, true), http.MethodGet, "/api/leads/geojson", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc export.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "E1", fc.Features[0].Properties.EntityID)
	assert.True(t, fs.filters[0].Located)
}

func TestStats(t *testing.T) {
	rec := do(t, newTestServer(t, newFakeStore(), true), http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum store.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 2, sum.Entities)
	assert.Equal(t, 1, sum.Tiers[model.TierA])
}

func TestCoverage(t *testing.T) {
	rec := do(t, newTestServer(t, newFakeStore(), false), http.MethodGet, "/api/stats/coverage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"counties": [{"county": "Bucks", "total_sites": 2, "diesel_like": 1, "diesel_like_pct": 50,
			"active_like": 0, "active_like_pct": 0, "geocoded": 1, "geocode_pct": 50,
			"with_sector": 0, "sector_pct": 0}],
		"product_code_diesel_like": [{"code": "DIESL", "true": 1, "false": 0, "total": 1},
			{"code": "All", "true": 1, "false": 0, "total": 1}],
		"status_code_active_like": null,
		"sectors": [{"sector": "Fleet and Transportation", "count": 1, "pct_of_total": 50, "avg_score": 100}]
	}`, rec.Body.String())

	fs := newFakeStore()
	fs.err = eris.New("db down")
	rec = do(t, newTestServer(t, fs, false), http.MethodGet, "/api/stats/coverage", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportCSV(t *testing.T) {
	rec := do(t, newTestServer(t, newFakeStore(), true), http.MethodPost, "/api/export", `{"tier":"Tier C"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, export.LeadHeader, rows[0])
	assert.Equal(t, "E2", rows[1][0])
}

func TestExportGeoJSONAndBadFormat(t *testing.T) {
	h := newTestServer(t, newFakeStore(), true)

	rec := do(t, h, http.MethodPost, "/api/export", `{"format":"geojson"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)

	rec = do(t, h, http.MethodPost, "/api/export", `{"format":"xlsx"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/export", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportDisabled(t *testing.T) {
	rec := do(t, newTestServer(t, newFakeStore(), false), http.MethodPost, "/api/export", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, "route is not registered")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "leadgen_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h := NewServer(DefaultConfig(), newFakeStore(), reg).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leadgen_test_total 1")
}

func TestStartStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	s := NewServer(cfg, newFakeStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
