package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/parksurvey/birdboard/internal/model"
)

var exportHeader = []string{
	"Plot_Name", "Date", "Observer", "Common_Name", "Scientific_Name",
	"Distance", "Sex", "Temperature", "Humidity", "Sky", "Wind",
	"Start_Time", "End_Time", "PIF_Watchlist_Status", "Year", "Month",
}

// WriteXLSX writes the observations to w as a single-sheet workbook with
// the same columns as the CSV export.
func WriteXLSX(w io.Writer, obs []model.Observation) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Observations")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hdr := sheet.AddRow()
	for _, name := range exportHeader {
		hdr.AddCell().SetString(name)
	}

	for _, o := range obs {
		r := newRow(o)
		row := sheet.AddRow()
		row.AddCell().SetString(r.PlotName)
		row.AddCell().SetString(r.Date)
		row.AddCell().SetString(r.Observer)
		row.AddCell().SetString(r.CommonName)
		row.AddCell().SetString(r.ScientificName)
		row.AddCell().SetString(r.Distance)
		row.AddCell().SetString(r.Sex)
		addFloatCell(row, r.Temperature)
		addFloatCell(row, r.Humidity)
		row.AddCell().SetString(r.Sky)
		row.AddCell().SetString(r.Wind)
		row.AddCell().SetString(r.StartTime)
		row.AddCell().SetString(r.EndTime)
		row.AddCell().SetBool(r.Watchlist)
		row.AddCell().SetString(r.Year)
		row.AddCell().SetString(r.Month)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addFloatCell(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
