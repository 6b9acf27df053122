package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"import-scout/internal/db"
	"import-scout/internal/engine"
	"import-scout/internal/vehicle"
)

type fakeStore struct {
	opportunities []db.StoredOpportunity
	summary       *db.MarketSummary
	err           error
}

func (f *fakeStore) AllOpportunities(_ context.Context, limit int) ([]db.StoredOpportunity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.opportunities) {
		return f.opportunities[:limit], nil
	}
	return f.opportunities, nil
}

func (f *fakeStore) TopOpportunities(ctx context.Context, limit int) ([]db.StoredOpportunity, error) {
	return f.AllOpportunities(ctx, limit)
}

func (f *fakeStore) FastMovers(ctx context.Context, limit int) ([]db.StoredOpportunity, error) {
	return f.AllOpportunities(ctx, limit)
}

func (f *fakeStore) Opportunity(_ context.Context, make, model string, year int, fuel string) (*db.StoredOpportunity, error) {
	for i := range f.opportunities {
		o := &f.opportunities[i]
		if o.Make == make && o.Model == model && o.Year == year {
			return o, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) Summary(_ context.Context) (*db.MarketSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeRunner struct {
	report *engine.RunReport
	err    error
	filter engine.Filter
}

func (f *fakeRunner) Run(_ context.Context, filter engine.Filter) ([]engine.ScoredOpportunity, *engine.RunReport, error) {
	f.filter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []engine.ScoredOpportunity{{}}, f.report, nil
}

func storedOpp(model string, score float64) db.StoredOpportunity {
	return db.StoredOpportunity{
		RunID: "run-1", Make: "toyota", Model: model, Year: 2020, FuelType: "hybrid",
		FinalScore: score,
		Analysis:   &engine.ScoredOpportunity{Key: vehicle.NewKey("toyota", model, 2020, "hybrid"), FinalScore: score},
	}
}

func newTestServer(store *fakeStore, runner *fakeRunner) *Server {
	return New(":0", store, runner, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}, &fakeRunner{}), http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOpportunitiesList(t *testing.T) {
	store := &fakeStore{opportunities: []db.StoredOpportunity{
		storedOpp("prius", 75), storedOpp("yaris", 62),
	}}
	rec := doRequest(t, newTestServer(store, &fakeRunner{}), http.MethodGet, "/api/opportunities")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count         int                    `json:"count"`
		Opportunities []db.StoredOpportunity `json:"opportunities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "prius", body.Opportunities[0].Model)
}

func TestOpportunitiesLimit(t *testing.T) {
	store := &fakeStore{opportunities: []db.StoredOpportunity{
		storedOpp("prius", 75), storedOpp("yaris", 62),
	}}
	s := newTestServer(store, &fakeRunner{})

	rec := doRequest(t, s, http.MethodGet, "/api/opportunities?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	for _, bad := range []string{"0", "-3", "junk", "9999"} {
		rec := doRequest(t, s, http.MethodGet, "/api/opportunities?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", bad)
	}
}

func TestOpportunitiesEmptyIsArray(t *testing.T) {
	rec := doRequest(t, newTestServer(&fakeStore{}, &fakeRunner{}), http.MethodGet, "/api/opportunities/top")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"opportunities":[]`)
}

func TestVehicleDetail(t *testing.T) {
	store := &fakeStore{opportunities: []db.StoredOpportunity{storedOpp("prius", 75)}}
	s := newTestServer(store, &fakeRunner{})

	rec := doRequest(t, s, http.MethodGet, "/api/vehicles/toyota/prius/2020/hybrid")
	require.Equal(t, http.StatusOK, rec.Code)
	var opp db.StoredOpportunity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opp))
	assert.Equal(t, 75.0, opp.FinalScore)

	rec = doRequest(t, s, http.MethodGet, "/api/vehicles/mazda/rx-8/2005/petrol")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/vehicles/toyota/prius/notayear/hybrid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAnalysis(t *testing.T) {
	runner := &fakeRunner{report: &engine.RunReport{RunID: "run-9", Matched: 4, Scored: 3}}
	s := newTestServer(&fakeStore{}, runner)

	rec := doRequest(t, s, http.MethodPost, "/api/analysis/run?make=Toyota&model=Prius")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.Filter{Make: "Toyota", Model: "Prius"}, runner.filter)

	var body struct {
		Report engine.RunReport `json:"report"`
		Scored int              `json:"scored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-9", body.Report.RunID)
	assert.Equal(t, 1, body.Scored)
}

func TestRunAnalysisConflicts(t *testing.T) {
	for _, err := range []error{engine.ErrNoAggregates, engine.ErrMissingExchangeRate} {
		s := newTestServer(&fakeStore{}, &fakeRunner{err: fmt.Errorf("run: %w", err)})
		rec := doRequest(t, s, http.MethodPost, "/api/analysis/run")
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
}

func TestSummary(t *testing.T) {
	store := &fakeStore{summary: &db.MarketSummary{TotalOpportunities: 7, BestFinalScore: 81}}
	rec := doRequest(t, newTestServer(store, &fakeRunner{}), http.MethodGet, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum db.MarketSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 7, sum.TotalOpportunities)
	assert.Equal(t, 81.0, sum.BestFinalScore)
}

func TestStoreFailure(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("disk on fire")}
	rec := doRequest(t, newTestServer(store, &fakeRunner{}), http.MethodGet, "/api/summary")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
