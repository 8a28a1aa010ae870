// Package server exposes the dashboard API: filter options, aggregates of
// the filtered record set, and CSV/XLSX export.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/parksurvey/birdboard/internal/aggregate"
	"github.com/parksurvey/birdboard/internal/config"
	"github.com/parksurvey/birdboard/internal/dataset"
	"github.com/parksurvey/birdboard/internal/export"
	"github.com/parksurvey/birdboard/internal/model"
)

// Server serves the dashboard API over the shared dataset.
type Server struct {
	ds            *dataset.Dataset
	agg           *aggregate.Aggregator
	exportLimiter *rate.Limiter
}

// New creates a Server. Export endpoints are rate limited because they
// serialize the whole filtered set per request.
func New(ds *dataset.Dataset, agg *aggregate.Aggregator, cfg config.ServerConfig) *Server {
	rps := cfg.ExportRPS
	if rps <= 0 {
		rps = 2
	}
	return &Server{
		ds:            ds,
		agg:           agg,
		exportLimiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Router builds the chi router for the dashboard API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/filters", s.handleFilters)
		r.Get("/summary", s.handleSummary)
		r.Get("/aggregates/{name}", s.handleAggregate)
		r.Get("/trends/{kind}", s.handleTrend)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
	})
	return r
}

// filterFromQuery builds the dataset filter from query parameters. A
// half-picked date range (only one of from/to) leaves the date dimension
// unfiltered, same as the dashboard has always behaved.
func filterFromQuery(r *http.Request) dataset.Filter {
	q := r.URL.Query()
	f := dataset.Filter{
		Observers: q["observer"],
		Plots:     q["plot"],
		Species:   q["species"],
	}

	var endpoints []time.Time
	for _, key := range []string{"from", "to"} {
		if raw := q.Get(key); raw != "" {
			if d, err := time.Parse("2006-01-02", raw); err == nil {
				endpoints = append(endpoints, d)
			}
		}
	}
	f.DateRange = endpoints
	return f
}

type aggregateResponse struct {
	Name   string `json:"name"`
	NoData bool   `json:"no_data,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.ds.Options(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	subset, err := s.ds.Filtered(r.Context(), filterFromQuery(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregate.Summarize(subset))
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	subset, err := s.ds.Filtered(r.Context(), filterFromQuery(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	if len(subset) == 0 {
		writeJSON(w, http.StatusOK, aggregateResponse{Name: name, NoData: true})
		return
	}

	var data any
	switch name {
	case "top-species":
		data = aggregate.TopSpecies(subset, 10)
	case "top-species-extended":
		data = aggregate.TopSpecies(subset, 15)
	case "observer-species":
		data = s.agg.ObserverSpecies(subset)
	case "plot-species":
		data = s.agg.PlotSpecies(subset)
	case "temperature-species":
		data = s.agg.TemperatureSpecies(subset)
	case "humidity":
		data = aggregate.HumidityCounts(subset)
	case "watchlist":
		data = aggregate.WatchlistSpecies(subset)
	case "month-year":
		data = aggregate.PivotMonthYear(subset)
	default:
		writeError(w, http.StatusNotFound, "unknown aggregate")
		return
	}

	writeJSON(w, http.StatusOK, aggregateResponse{Name: name, Data: data})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	species := r.URL.Query()["species"]

	subset, err := s.ds.Filtered(r.Context(), filterFromQuery(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	if len(species) == 0 || len(subset) == 0 {
		writeJSON(w, http.StatusOK, aggregateResponse{Name: kind, NoData: true})
		return
	}

	var data any
	switch kind {
	case "year":
		data = aggregate.YearTrend(subset, species)
	case "date":
		data = s.agg.DateTrend(subset, species)
	default:
		writeError(w, http.StatusNotFound, "unknown trend kind")
		return
	}

	writeJSON(w, http.StatusOK, aggregateResponse{Name: kind, Data: data})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	subset, ok := s.exportSubset(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_bird_data.csv"`)
	if err := export.WriteCSV(w, subset); err != nil {
		zap.L().Error("csv export failed", zap.Error(err))
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	subset, ok := s.exportSubset(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_bird_data.xlsx"`)
	if err := export.WriteXLSX(w, subset); err != nil {
		zap.L().Error("xlsx export failed", zap.Error(err))
	}
}

func (s *Server) exportSubset(w http.ResponseWriter, r *http.Request) ([]model.Observation, bool) {
	if !s.exportLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "export rate limit exceeded")
		return nil, false
	}
	subset, err := s.ds.Filtered(r.Context(), filterFromQuery(r))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return subset, true
}

// fail reports a load failure. A broken store is fatal to the request;
// nothing renders.
func (s *Server) fail(w http.ResponseWriter, err error) {
	zap.L().Error("data load failed", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "data load failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
