package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/parksurvey/birdboard/internal/aggregate"
)

func sampleStats() (aggregate.Summary, []aggregate.SpeciesCount) {
	return aggregate.Summary{UniqueSpecies: 2, TotalObservations: 1234, UniquePlots: 3},
		[]aggregate.SpeciesCount{
			{CommonName: "American Robin", Count: 1000},
			{CommonName: "Cactus Wren", Count: 234},
		}
}

func TestWriteStatsJSON(t *testing.T) {
	s, top := sampleStats()
	var buf bytes.Buffer
	require.NoError(t, writeStatsJSON(&buf, s, top))

	var out statsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, s, out.Summary)
	assert.Equal(t, top, out.TopSpecies)
}

func TestWriteStatsYAML(t *testing.T) {
	s, top := sampleStats()
	var buf bytes.Buffer
	require.NoError(t, writeStatsYAML(&buf, s, top))

	var out statsOutput
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, s, out.Summary)
	assert.Equal(t, top, out.TopSpecies)
}

func TestWriteStatsTable(t *testing.T) {
	s, top := sampleStats()
	var buf bytes.Buffer
	writeStatsTable(&buf, s, top)

	out := buf.String()
	assert.Contains(t, out, "Unique species")
	assert.Contains(t, out, "1,234") // grouped digits
	assert.Contains(t, out, "American Robin")
	assert.True(t, strings.Contains(out, "SPECIES"))
}
