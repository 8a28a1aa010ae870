package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/parksurvey/birdboard/internal/model"
)

func obsWithoutDate() model.Observation {
	o := model.Observation{PlotName: "A", Observer: "Kim", CommonName: "American Robin"}
	o.Derive()
	return o
}

func TestFilterFlagsTwoEndpoints(t *testing.T) {
	ff := filterFlags{
		observers: []string{"Kim"},
		from:      "2018-03-01",
		to:        "2018-12-31",
	}
	f := ff.filter()
	assert.Equal(t, []string{"Kim"}, f.Observers)
	assert.Len(t, f.DateRange, 2)
	assert.Equal(t, time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), f.DateRange[0])
}

func TestFilterFlagsSingleEndpointLeavesDateUnfiltered(t *testing.T) {
	ff := filterFlags{from: "2018-03-01"}
	f := ff.filter()
	assert.Len(t, f.DateRange, 1)
	// One endpoint never restricts; a dateless observation still matches.
	assert.True(t, f.IsZero())
	assert.True(t, f.Match(obsWithoutDate()))
}

func TestFilterFlagsBadDateIgnored(t *testing.T) {
	ff := filterFlags{from: "yesterday", to: "2018-12-31"}
	f := ff.filter()
	assert.Len(t, f.DateRange, 1)
}

func TestFilterFlagsEmpty(t *testing.T) {
	var ff filterFlags
	f := ff.filter()
	assert.True(t, f.IsZero())
}
