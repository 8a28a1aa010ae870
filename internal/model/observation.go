// Package model defines the observation record and its derived fields.
package model

import (
	"time"
)

// MonthNames lists the fixed month-row order used by the year/month pivot.
var MonthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Observation is a single bird sighting loaded from the survey table.
type Observation struct {
	ID             string    `json:"id"`
	PlotName       string    `json:"plot_name"`
	Date           time.Time `json:"date"`
	Observer       string    `json:"observer"`
	CommonName     string    `json:"common_name"`
	ScientificName string    `json:"scientific_name"`
	Distance       string    `json:"distance"`
	Sex            string    `json:"sex"`
	Temperature    *float64  `json:"temperature,omitempty"`
	Humidity       *float64  `json:"humidity,omitempty"`
	Sky            string    `json:"sky"`
	Wind           string    `json:"wind"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Watchlist      bool      `json:"pif_watchlist_status"`

	// Derived from Date at load time. A row whose date failed to parse
	// has a zero Date, Year 0, and an empty Month.
	Year  int    `json:"year"`
	Month string `json:"month"`
}

// HasDate reports whether the observation carries a parseable date.
func (o Observation) HasDate() bool {
	return !o.Date.IsZero()
}

// Derive fills Year and Month from Date. Rows with a zero Date keep the
// null markers (Year 0, Month "") rather than failing the load.
func (o *Observation) Derive() {
	if o.Date.IsZero() {
		o.Year = 0
		o.Month = ""
		return
	}
	o.Year = o.Date.Year()
	o.Month = MonthNames[int(o.Date.Month())-1]
}
