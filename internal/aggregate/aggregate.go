// Package aggregate computes the dashboard's summary tables. Every function
// is pure over its input slice; the only nondeterminism is the seedable
// sampler used by the sampled charts.
package aggregate

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/parksurvey/birdboard/internal/config"
	"github.com/parksurvey/birdboard/internal/model"
)

// Aggregator computes the fixed catalog of aggregates. The caps and the
// sample source come from dashboard config so test runs can pin a seed.
// Safe for concurrent use: the rng is shared by every server handler and
// rand.Rand is not, so draws are serialized under mu.
type Aggregator struct {
	mu           sync.Mutex
	rng          *rand.Rand
	sampleSize   int
	trendPoints  int
	topPlotPairs int
}

// New creates an Aggregator from dashboard config. A zero seed falls back
// to the wall clock, so interactive sessions vary while seeded tests do not.
func New(cfg config.DashboardConfig) *Aggregator {
	seed := cfg.SampleSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sampleSize := cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = 1000
	}
	trendPoints := cfg.TrendPoints
	if trendPoints <= 0 {
		trendPoints = 1000
	}
	topPlotPairs := cfg.TopPlotPairs
	if topPlotPairs <= 0 {
		topPlotPairs = 100
	}
	return &Aggregator{
		rng:          rand.New(rand.NewSource(seed)),
		sampleSize:   sampleSize,
		trendPoints:  trendPoints,
		topPlotPairs: topPlotPairs,
	}
}

// Summary holds the dashboard's headline metrics.
type Summary struct {
	UniqueSpecies     int `json:"unique_species"`
	TotalObservations int `json:"total_observations"`
	UniquePlots       int `json:"unique_plots"`
}

// Summarize computes distinct-species, row, and distinct-plot counts.
func Summarize(obs []model.Observation) Summary {
	species := map[string]struct{}{}
	plots := map[string]struct{}{}
	for _, o := range obs {
		if o.CommonName != "" {
			species[o.CommonName] = struct{}{}
		}
		if o.PlotName != "" {
			plots[o.PlotName] = struct{}{}
		}
	}
	return Summary{
		UniqueSpecies:     len(species),
		TotalObservations: len(obs),
		UniquePlots:       len(plots),
	}
}

// SpeciesCount is one species frequency row.
type SpeciesCount struct {
	CommonName string `json:"common_name"`
	Count      int    `json:"count"`
}

// TopSpecies returns at most n species by descending frequency. Ties break
// by ascending common name so repeated calls on identical input agree.
func TopSpecies(obs []model.Observation, n int) []SpeciesCount {
	counts := map[string]int{}
	for _, o := range obs {
		if o.CommonName != "" {
			counts[o.CommonName]++
		}
	}
	out := make([]SpeciesCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, SpeciesCount{CommonName: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].CommonName < out[j].CommonName
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ObserverSpeciesCount is one observer/species co-occurrence row.
type ObserverSpeciesCount struct {
	Observer   string `json:"observer"`
	CommonName string `json:"common_name"`
	Count      int    `json:"count"`
}

// ObserverSpecies counts species per observer over a random sample of at
// most the configured sample size, matching the stacked-bar chart the
// dashboard has always drawn from a sampled subset.
func (a *Aggregator) ObserverSpecies(obs []model.Observation) []ObserverSpeciesCount {
	sampled := a.sample(obs, a.sampleSize)

	type key struct{ observer, species string }
	counts := map[key]int{}
	for _, o := range sampled {
		counts[key{o.Observer, o.CommonName}]++
	}
	out := make([]ObserverSpeciesCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, ObserverSpeciesCount{Observer: k.observer, CommonName: k.species, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Observer != out[j].Observer {
			return out[i].Observer < out[j].Observer
		}
		return out[i].CommonName < out[j].CommonName
	})
	return out
}

// PlotSpeciesCount is one plot/species co-occurrence row.
type PlotSpeciesCount struct {
	PlotName   string `json:"plot_name"`
	CommonName string `json:"common_name"`
	Count      int    `json:"count"`
}

// PlotSpecies counts species per plot, descending, capped to the configured
// top pair count (100 by default, feeding the bubble chart).
func (a *Aggregator) PlotSpecies(obs []model.Observation) []PlotSpeciesCount {
	type key struct{ plot, species string }
	counts := map[key]int{}
	for _, o := range obs {
		counts[key{o.PlotName, o.CommonName}]++
	}
	out := make([]PlotSpeciesCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, PlotSpeciesCount{PlotName: k.plot, CommonName: k.species, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].PlotName != out[j].PlotName {
			return out[i].PlotName < out[j].PlotName
		}
		return out[i].CommonName < out[j].CommonName
	})
	if len(out) > a.topPlotPairs {
		out = out[:a.topPlotPairs]
	}
	return out
}

// TemperaturePoint is one scatter point of the temperature chart.
type TemperaturePoint struct {
	Temperature float64 `json:"temperature"`
	CommonName  string  `json:"common_name"`
}

// TemperatureSpecies returns (temperature, species) points for rows that
// carry a temperature, sampled to at most the configured sample size.
func (a *Aggregator) TemperatureSpecies(obs []model.Observation) []TemperaturePoint {
	withTemp := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Temperature != nil && o.CommonName != "" {
			withTemp = append(withTemp, o)
		}
	}
	sampled := a.sample(withTemp, a.sampleSize)

	out := make([]TemperaturePoint, 0, len(sampled))
	for _, o := range sampled {
		out = append(out, TemperaturePoint{Temperature: *o.Temperature, CommonName: o.CommonName})
	}
	return out
}

// HumidityCount is one humidity-bucket row.
type HumidityCount struct {
	Humidity     float64 `json:"humidity"`
	Observations int     `json:"observations"`
}

// HumidityCounts counts species-bearing rows per humidity value, ascending
// by humidity. Rows without a humidity reading or a species name are
// excluded.
func HumidityCounts(obs []model.Observation) []HumidityCount {
	counts := map[float64]int{}
	for _, o := range obs {
		if o.Humidity != nil && o.CommonName != "" {
			counts[*o.Humidity]++
		}
	}
	out := make([]HumidityCount, 0, len(counts))
	for h, c := range counts {
		out = append(out, HumidityCount{Humidity: h, Observations: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Humidity < out[j].Humidity })
	return out
}

// WatchlistSpecies counts observations per species among watch-list rows
// only. Descending count, ties by ascending name.
func WatchlistSpecies(obs []model.Observation) []SpeciesCount {
	risk := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Watchlist {
			risk = append(risk, o)
		}
	}
	return TopSpecies(risk, len(risk))
}

// MonthYearPivot is the year-by-month heatmap matrix. Months always holds
// the twelve Jan-Dec rows; Counts is indexed [month][year column] and
// zero-filled for absent combinations.
type MonthYearPivot struct {
	Years  []int    `json:"years"`
	Months []string `json:"months"`
	Counts [][]int  `json:"counts"`
}

// PivotMonthYear counts observations per (year, month) and pivots into the
// fixed 12-month matrix. Rows without a parseable date are skipped.
func PivotMonthYear(obs []model.Observation) MonthYearPivot {
	type key struct {
		year  int
		month string
	}
	counts := map[key]int{}
	yearSet := map[int]struct{}{}
	for _, o := range obs {
		if !o.HasDate() {
			continue
		}
		counts[key{o.Year, o.Month}]++
		yearSet[o.Year] = struct{}{}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	months := make([]string, len(model.MonthNames))
	copy(months, model.MonthNames)

	matrix := make([][]int, len(months))
	for i, m := range months {
		row := make([]int, len(years))
		for j, y := range years {
			row[j] = counts[key{y, m}]
		}
		matrix[i] = row
	}

	return MonthYearPivot{Years: years, Months: months, Counts: matrix}
}

// YearTrendPoint is one per-year count for a selected species.
type YearTrendPoint struct {
	Year       int    `json:"year"`
	CommonName string `json:"common_name"`
	Count      int    `json:"count"`
}

// YearTrend counts observations per (year, species) for the selected
// species, year ascending. Dateless rows are skipped.
func YearTrend(obs []model.Observation, species []string) []YearTrendPoint {
	selected := speciesSet(species)
	type key struct {
		year int
		name string
	}
	counts := map[key]int{}
	for _, o := range obs {
		if !o.HasDate() {
			continue
		}
		if _, ok := selected[o.CommonName]; !ok {
			continue
		}
		counts[key{o.Year, o.CommonName}]++
	}
	out := make([]YearTrendPoint, 0, len(counts))
	for k, c := range counts {
		out = append(out, YearTrendPoint{Year: k.year, CommonName: k.name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].CommonName < out[j].CommonName
	})
	return out
}

// DateTrendPoint is one per-date count for a selected species.
type DateTrendPoint struct {
	Date       time.Time `json:"date"`
	CommonName string    `json:"common_name"`
	Count      int       `json:"count"`
}

// DateTrend counts observations per (date, species) for the selected
// species, date ascending, keeping only the most recent grouped points up
// to the configured cap.
func (a *Aggregator) DateTrend(obs []model.Observation, species []string) []DateTrendPoint {
	selected := speciesSet(species)
	type key struct {
		date time.Time
		name string
	}
	counts := map[key]int{}
	for _, o := range obs {
		if !o.HasDate() {
			continue
		}
		if _, ok := selected[o.CommonName]; !ok {
			continue
		}
		counts[key{o.Date, o.CommonName}]++
	}
	out := make([]DateTrendPoint, 0, len(counts))
	for k, c := range counts {
		out = append(out, DateTrendPoint{Date: k.date, CommonName: k.name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CommonName < out[j].CommonName
	})
	if len(out) > a.trendPoints {
		out = out[len(out)-a.trendPoints:]
	}
	return out
}

func speciesSet(species []string) map[string]struct{} {
	set := make(map[string]struct{}, len(species))
	for _, s := range species {
		set[s] = struct{}{}
	}
	return set
}

// sample draws up to n rows uniformly without replacement, preserving the
// input's relative order so seeded runs stay reproducible.
func (a *Aggregator) sample(obs []model.Observation, n int) []model.Observation {
	if len(obs) <= n {
		return obs
	}
	a.mu.Lock()
	idx := a.rng.Perm(len(obs))[:n]
	a.mu.Unlock()
	sort.Ints(idx)
	out := make([]model.Observation, 0, n)
	for _, i := range idx {
		out = append(out, obs[i])
	}
	return out
}
