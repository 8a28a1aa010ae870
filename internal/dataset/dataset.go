// Package dataset holds the in-memory record set: a load-once cache over
// the store plus memoized, non-destructive filtered views.
package dataset

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parksurvey/birdboard/internal/model"
	"github.com/parksurvey/birdboard/internal/store"
)

// Dataset caches the loaded record set for the session and memoizes filter
// results per unique filter-input combination. Filtering never mutates the
// loaded slice; every view is a fresh subset.
type Dataset struct {
	store store.Store

	mu          sync.Mutex
	loaded      []model.Observation
	loadedOnce  bool
	filterCache map[string][]model.Observation
}

// New creates a Dataset over the given store.
func New(st store.Store) *Dataset {
	return &Dataset{
		store:       st,
		filterCache: make(map[string][]model.Observation),
	}
}

// Load fetches the full record set, memoized for the session. A load
// failure is fatal to the caller; there is no retry or partial recovery.
func (d *Dataset) Load(ctx context.Context) ([]model.Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadedOnce {
		return d.loaded, nil
	}

	obs, err := d.store.LoadObservations(ctx)
	if err != nil {
		return nil, err
	}
	d.loaded = obs
	d.loadedOnce = true
	zap.L().Info("record set loaded", zap.Int("rows", len(obs)))
	return d.loaded, nil
}

// Filtered returns the subset satisfying the filter, memoized per filter key.
func (d *Dataset) Filtered(ctx context.Context, f Filter) ([]model.Observation, error) {
	all, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}

	key := f.Key()
	d.mu.Lock()
	if cached, ok := d.filterCache[key]; ok {
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	subset := make([]model.Observation, 0, len(all))
	for _, o := range all {
		if f.Match(o) {
			subset = append(subset, o)
		}
	}

	d.mu.Lock()
	d.filterCache[key] = subset
	d.mu.Unlock()
	return subset, nil
}

// Options holds the distinct values available for building filter selectors.
type Options struct {
	Observers []string   `json:"observers"`
	Plots     []string   `json:"plots"`
	Species   []string   `json:"species"`
	MinDate   *time.Time `json:"min_date,omitempty"`
	MaxDate   *time.Time `json:"max_date,omitempty"`
}

// Options returns sorted distinct observers, plots, and species plus the
// date bounds of the loaded set. Empty values are dropped, mirroring the
// dropna the selectors were built from.
func (d *Dataset) Options(ctx context.Context) (Options, error) {
	all, err := d.Load(ctx)
	if err != nil {
		return Options{}, err
	}

	observers := map[string]struct{}{}
	plots := map[string]struct{}{}
	species := map[string]struct{}{}
	var minDate, maxDate *time.Time
	for _, o := range all {
		if o.Observer != "" {
			observers[o.Observer] = struct{}{}
		}
		if o.PlotName != "" {
			plots[o.PlotName] = struct{}{}
		}
		if o.CommonName != "" {
			species[o.CommonName] = struct{}{}
		}
		if o.HasDate() {
			dt := o.Date
			if minDate == nil || dt.Before(*minDate) {
				minDate = &dt
			}
			if maxDate == nil || dt.After(*maxDate) {
				maxDate = &dt
			}
		}
	}

	return Options{
		Observers: sortedKeys(observers),
		Plots:     sortedKeys(plots),
		Species:   sortedKeys(species),
		MinDate:   minDate,
		MaxDate:   maxDate,
	}, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
