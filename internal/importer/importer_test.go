package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parksurvey/birdboard/internal/model"
)

// captureStore records inserted batches.
type captureStore struct {
	inserted []model.Observation
	err      error
}

func (c *captureStore) LoadObservations(ctx context.Context) ([]model.Observation, error) {
	return c.inserted, nil
}

func (c *captureStore) InsertObservations(ctx context.Context, obs []model.Observation) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.inserted = append(c.inserted, obs...)
	return int64(len(obs)), nil
}

func (c *captureStore) Migrate(ctx context.Context) error { return nil }
func (c *captureStore) Close() error                      { return nil }

const sampleCSV = `Plot_Name,Date,Observer,Common_Name,Scientific_Name,Distance,Sex,Temperature,Humidity,Sky,Wind,Start_Time,End_Time,PIF_Watchlist_Status
LBJWC-A,2018-05-12,Kim Kreitinger,American Robin,Turdus migratorius,25-50 Meters,Male,71.5,60,Clear,Calm,06:05:00,06:15:00,0
LBJWC-B,bad-date,Brian Swimm,Cactus Wren,Campylorhynchus brunneicapillus,,,,,,,,,1
`

func TestImport(t *testing.T) {
	cs := &captureStore{}
	im := New(cs)

	n, err := im.Import(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.Len(t, cs.inserted, 2)

	robin := cs.inserted[0]
	assert.Equal(t, "LBJWC-A", robin.PlotName)
	assert.Equal(t, 2018, robin.Year)
	assert.Equal(t, "May", robin.Month)
	require.NotNil(t, robin.Temperature)
	assert.InDelta(t, 71.5, *robin.Temperature, 0.001)
	assert.False(t, robin.Watchlist)

	// Unparseable date imports with the null marker, not an error.
	wren := cs.inserted[1]
	assert.False(t, wren.HasDate())
	assert.Equal(t, 0, wren.Year)
	assert.Equal(t, "", wren.Month)
	assert.Nil(t, wren.Temperature)
	assert.True(t, wren.Watchlist)
}

func TestImportEmptyFile(t *testing.T) {
	cs := &captureStore{}
	im := New(cs)

	n, err := im.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestImportHeaderOnly(t *testing.T) {
	cs := &captureStore{}
	im := New(cs)

	n, err := im.Import(context.Background(), strings.NewReader("Plot_Name,Date,Observer,Common_Name\n"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestImportBatches(t *testing.T) {
	cs := &captureStore{}
	im := New(cs)
	im.batchSize = 2

	var b strings.Builder
	b.WriteString("Plot_Name,Date,Observer,Common_Name\n")
	for i := 0; i < 5; i++ {
		b.WriteString("A,2018-01-01,Kim,American Robin\n")
	}

	n, err := im.Import(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Len(t, cs.inserted, 5)
}

func TestImportStoreErrorStops(t *testing.T) {
	cs := &captureStore{err: eris.New("disk full")}
	im := New(cs)
	im.batchSize = 1

	var b strings.Builder
	b.WriteString("Plot_Name,Date,Observer,Common_Name\n")
	for i := 0; i < 10; i++ {
		b.WriteString("A,2018-01-01,Kim,American Robin\n")
	}

	_, err := im.Import(context.Background(), strings.NewReader(b.String()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestImportSlashDates(t *testing.T) {
	cs := &captureStore{}
	im := New(cs)

	csvData := "Plot_Name,Date,Observer,Common_Name\nA,5/12/2018,Kim,American Robin\n"
	_, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, cs.inserted, 1)
	assert.Equal(t, 2018, cs.inserted[0].Year)
	assert.Equal(t, "May", cs.inserted[0].Month)
}
