package dataset

import (
	"strings"
	"time"

	"github.com/parksurvey/birdboard/internal/model"
)

// Filter selects a subset of the record set. An empty selection list places
// no restriction on that dimension. DateRange is applied only when it holds
// exactly two endpoints (inclusive); any other length is ignored entirely,
// matching the dashboard's historical behavior for half-picked ranges.
type Filter struct {
	Observers []string
	Plots     []string
	Species   []string
	DateRange []time.Time
}

// IsZero reports whether the filter places no restriction at all.
func (f Filter) IsZero() bool {
	return len(f.Observers) == 0 && len(f.Plots) == 0 && len(f.Species) == 0 && !f.dateBounded()
}

func (f Filter) dateBounded() bool {
	return len(f.DateRange) == 2
}

// Key returns a cache key unique to this combination of filter inputs.
func (f Filter) Key() string {
	var b strings.Builder
	writeDim := func(vals []string) {
		for _, v := range vals {
			b.WriteString(v)
			b.WriteByte(0x1f)
		}
		b.WriteByte(0x1e)
	}
	writeDim(f.Observers)
	writeDim(f.Plots)
	writeDim(f.Species)
	if f.dateBounded() {
		b.WriteString(f.DateRange[0].Format("2006-01-02"))
		b.WriteByte(0x1f)
		b.WriteString(f.DateRange[1].Format("2006-01-02"))
	}
	return b.String()
}

// Match reports whether the observation satisfies every non-empty selection.
func (f Filter) Match(o model.Observation) bool {
	if len(f.Observers) > 0 && !contains(f.Observers, o.Observer) {
		return false
	}
	if len(f.Plots) > 0 && !contains(f.Plots, o.PlotName) {
		return false
	}
	if len(f.Species) > 0 && !contains(f.Species, o.CommonName) {
		return false
	}
	if f.dateBounded() {
		if !o.HasDate() {
			return false
		}
		if o.Date.Before(f.DateRange[0]) || o.Date.After(f.DateRange[1]) {
			return false
		}
	}
	return true
}

func contains(vals []string, v string) bool {
	for _, s := range vals {
		if s == v {
			return true
		}
	}
	return false
}
