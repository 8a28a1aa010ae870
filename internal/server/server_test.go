package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksurvey/birdboard/internal/aggregate"
	"github.com/parksurvey/birdboard/internal/config"
	"github.com/parksurvey/birdboard/internal/dataset"
	"github.com/parksurvey/birdboard/internal/model"
)

type fakeStore struct {
	obs []model.Observation
	err error
}

func (f *fakeStore) LoadObservations(ctx context.Context) ([]model.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.obs, nil
}

func (f *fakeStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testObservations() []model.Observation {
	obs := []model.Observation{
		{ID: "1", PlotName: "A", Observer: "Kim", CommonName: "American Robin", Date: day(2018, 3, 1)},
		{ID: "2", PlotName: "A", Observer: "Kim", CommonName: "American Robin", Date: day(2018, 3, 2)},
		{ID: "3", PlotName: "B", Observer: "Brian", CommonName: "Cactus Wren", Date: day(2019, 4, 1), Watchlist: true},
	}
	for i := range obs {
		obs[i].Derive()
	}
	return obs
}

func newTestServer(t *testing.T, st *fakeStore) *httptest.Server {
	t.Helper()
	ds := dataset.New(st)
	agg := aggregate.New(config.DashboardConfig{SampleSeed: 42, SampleSize: 1000, TrendPoints: 1000, TopPlotPairs: 100})
	srv := New(ds, agg, config.ServerConfig{ExportRPS: 100})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var body map[string]string
	code := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestFilters(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var opts dataset.Options
	code := getJSON(t, ts.URL+"/api/filters", &opts)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Brian", "Kim"}, opts.Observers)
	assert.Equal(t, []string{"A", "B"}, opts.Plots)
	assert.Equal(t, []string{"American Robin", "Cactus Wren"}, opts.Species)
}

func TestSummaryFiltered(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var s aggregate.Summary
	code := getJSON(t, ts.URL+"/api/summary?plot=A", &s)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, s.UniqueSpecies)
	assert.Equal(t, 2, s.TotalObservations)
	assert.Equal(t, 1, s.UniquePlots)
}

func TestAggregateTopSpecies(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp struct {
		Name   string                   `json:"name"`
		NoData bool                     `json:"no_data"`
		Data   []aggregate.SpeciesCount `json:"data"`
	}
	code := getJSON(t, ts.URL+"/api/aggregates/top-species", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, resp.NoData)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, aggregate.SpeciesCount{CommonName: "American Robin", Count: 2}, resp.Data[0])
}

func TestAggregateNoDataPlaceholder(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp struct {
		NoData bool `json:"no_data"`
	}
	code := getJSON(t, ts.URL+"/api/aggregates/top-species?observer=Nobody", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.NoData)
}

func TestAggregateUnknownName(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp map[string]string
	code := getJSON(t, ts.URL+"/api/aggregates/bogus", &resp)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAggregateMonthYearPivot(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp struct {
		Data aggregate.MonthYearPivot `json:"data"`
	}
	code := getJSON(t, ts.URL+"/api/aggregates/month-year", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int{2018, 2019}, resp.Data.Years)
	assert.Len(t, resp.Data.Months, 12)
}

func TestTrendRequiresSpecies(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp struct {
		NoData bool `json:"no_data"`
	}
	code := getJSON(t, ts.URL+"/api/trends/year", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.NoData)
}

func TestTrendYear(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var resp struct {
		Data []aggregate.YearTrendPoint `json:"data"`
	}
	code := getJSON(t, ts.URL+"/api/trends/year?species=American+Robin", &resp)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 2018, resp.Data[0].Year)
	assert.Equal(t, 2, resp.Data[0].Count)
}

func TestSingleDateEndpointIgnored(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var with aggregate.Summary
	getJSON(t, ts.URL+"/api/summary?from=2018-03-01", &with)
	var without aggregate.Summary
	getJSON(t, ts.URL+"/api/summary", &without)

	assert.Equal(t, without, with)
}

func TestDateRangeApplied(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	var s aggregate.Summary
	getJSON(t, ts.URL+"/api/summary?from=2018-03-01&to=2018-12-31", &s)
	assert.Equal(t, 2, s.TotalObservations)
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t, &fakeStore{obs: testObservations()})

	resp, err := http.Get(ts.URL + "/api/export.csv?plot=A")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3) // header + 2 plot-A rows
	assert.Contains(t, records[0], "Year")
	assert.Contains(t, records[0], "Month")
}

func TestExportRateLimit(t *testing.T) {
	st := &fakeStore{obs: testObservations()}
	ds := dataset.New(st)
	agg := aggregate.New(config.DashboardConfig{SampleSeed: 1})
	srv := New(ds, agg, config.ServerConfig{ExportRPS: 0.001})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	first, err := http.Get(ts.URL + "/api/export.csv")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/export.csv")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

func TestLoadFailureIsFatal(t *testing.T) {
	ts := newTestServer(t, &fakeStore{err: eris.New("store unreachable")})

	var resp map[string]string
	code := getJSON(t, ts.URL+"/api/summary", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "data load failed", resp["error"])
}

func TestFilterFromQueryMultiSelect(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/summary?observer=Kim&observer=Brian&plot=A", nil)
	f := filterFromQuery(req)
	assert.Equal(t, []string{"Kim", "Brian"}, f.Observers)
	assert.Equal(t, []string{"A"}, f.Plots)
	assert.Empty(t, f.Species)
	assert.Empty(t, f.DateRange)
}

func TestFilterFromQueryBadDateIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/summary?from=garbage&to=2018-12-31", nil)
	f := filterFromQuery(req)
	// Only one endpoint parsed, so the date dimension filters nothing.
	assert.Len(t, f.DateRange, 1)
	assert.True(t, f.Match(model.Observation{Observer: "Kim"}))
}
