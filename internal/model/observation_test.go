package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	o := Observation{Date: time.Date(2019, 11, 30, 0, 0, 0, 0, time.UTC)}
	o.Derive()
	assert.Equal(t, 2019, o.Year)
	assert.Equal(t, "Nov", o.Month)
	assert.True(t, o.HasDate())
}

func TestDeriveNullDate(t *testing.T) {
	o := Observation{Year: 99, Month: "stale"}
	o.Derive()
	assert.Equal(t, 0, o.Year)
	assert.Equal(t, "", o.Month)
	assert.False(t, o.HasDate())
}

func TestMonthNamesCoverCalendar(t *testing.T) {
	assert.Len(t, MonthNames, 12)
	for m := time.January; m <= time.December; m++ {
		o := Observation{Date: time.Date(2020, m, 1, 0, 0, 0, 0, time.UTC)}
		o.Derive()
		assert.Equal(t, MonthNames[int(m)-1], o.Month)
	}
}
