// Package export writes the filtered record set as CSV or XLSX with the
// source columns plus the derived Year and Month.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/parksurvey/birdboard/internal/model"
)

// Row is one export line. Column names match the source table; Year and
// Month are the derived columns appended at load time.
type Row struct {
	PlotName       string   `csv:"Plot_Name"`
	Date           string   `csv:"Date"`
	Observer       string   `csv:"Observer"`
	CommonName     string   `csv:"Common_Name"`
	ScientificName string   `csv:"Scientific_Name"`
	Distance       string   `csv:"Distance"`
	Sex            string   `csv:"Sex"`
	Temperature    *float64 `csv:"Temperature"`
	Humidity       *float64 `csv:"Humidity"`
	Sky            string   `csv:"Sky"`
	Wind           string   `csv:"Wind"`
	StartTime      string   `csv:"Start_Time"`
	EndTime        string   `csv:"End_Time"`
	Watchlist      bool     `csv:"PIF_Watchlist_Status"`
	Year           string   `csv:"Year"`
	Month          string   `csv:"Month"`
}

// newRow maps an observation onto its export line. Null dates export as
// empty Date/Year/Month cells.
func newRow(o model.Observation) Row {
	r := Row{
		PlotName:       o.PlotName,
		Observer:       o.Observer,
		CommonName:     o.CommonName,
		ScientificName: o.ScientificName,
		Distance:       o.Distance,
		Sex:            o.Sex,
		Temperature:    o.Temperature,
		Humidity:       o.Humidity,
		Sky:            o.Sky,
		Wind:           o.Wind,
		StartTime:      o.StartTime,
		EndTime:        o.EndTime,
		Watchlist:      o.Watchlist,
		Month:          o.Month,
	}
	if o.HasDate() {
		r.Date = o.Date.Format("2006-01-02")
		r.Year = strconv.Itoa(o.Year)
	}
	return r
}

// WriteCSV writes the observations to w as CSV, one line per row plus the
// header.
func WriteCSV(w io.Writer, obs []model.Observation) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	// Header goes out even for an empty filtered set.
	if err := enc.EncodeHeader(Row{}); err != nil {
		return eris.Wrap(err, "export: encode csv header")
	}
	for _, o := range obs {
		if err := enc.Encode(newRow(o)); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
