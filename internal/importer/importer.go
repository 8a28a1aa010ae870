// Package importer streams survey CSV files into the observation store.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parksurvey/birdboard/internal/model"
	"github.com/parksurvey/birdboard/internal/store"
)

// Importer reads survey CSVs and bulk-inserts them in batches.
type Importer struct {
	store     store.Store
	batchSize int
}

// New creates an Importer with the default batch size.
func New(st store.Store) *Importer {
	return &Importer{store: st, batchSize: 500}
}

// dateLayouts are tried in order when parsing the Date column. A value
// that matches none of them becomes a null marker; the row still imports.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
}

// ImportFile streams the CSV at path into the store. Returns rows written.
func (im *Importer) ImportFile(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: open %s", path)
	}
	defer f.Close()

	return im.Import(ctx, f)
}

// Import streams CSV rows from r into the store in batches. The reader
// goroutine and the insert loop are coordinated with an errgroup so a
// failure on either side stops the other.
func (im *Importer) Import(ctx context.Context, r io.Reader) (int64, error) {
	rowCh := make(chan model.Observation, 64)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rowCh)

		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1 // allow variable fields

		header, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "importer: read header")
		}
		cols := indexColumns(header)

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return eris.Wrap(err, "importer: read row")
			}

			o := parseRecord(cols, record)
			select {
			case rowCh <- o:
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "importer: cancelled")
			}
		}
	})

	var total int64
	g.Go(func() error {
		batch := make([]model.Observation, 0, im.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := im.store.InsertObservations(ctx, batch)
			if err != nil {
				return err
			}
			total += n
			batch = batch[:0]
			return nil
		}

		for o := range rowCh {
			batch = append(batch, o)
			if len(batch) >= im.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return total, err
	}

	zap.L().Info("import complete", zap.Int64("rows", total))
	return total, nil
}

// indexColumns maps normalized header names to their positions.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		cols[key] = i
	}
	return cols
}

func parseRecord(cols map[string]int, record []string) model.Observation {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	o := model.Observation{
		PlotName:       field("plot_name"),
		Observer:       field("observer"),
		CommonName:     field("common_name"),
		ScientificName: field("scientific_name"),
		Distance:       field("distance"),
		Sex:            field("sex"),
		Sky:            field("sky"),
		Wind:           field("wind"),
		StartTime:      field("start_time"),
		EndTime:        field("end_time"),
		Temperature:    parseFloat(field("temperature")),
		Humidity:       parseFloat(field("humidity")),
		Watchlist:      parseFlag(field("pif_watchlist_status")),
	}

	if raw := field("date"); raw != "" {
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, raw); err == nil {
				o.Date = d
				break
			}
		}
	}
	o.Derive()
	return o
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseFlag accepts the conventions seen in survey exports: booleans,
// and numeric codes where anything nonzero means on the watch list.
func parseFlag(s string) bool {
	if s == "" {
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v != 0
	}
	return false
}
