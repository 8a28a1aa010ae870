package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parksurvey/birdboard/internal/dataset"
	"github.com/parksurvey/birdboard/internal/export"
)

var (
	exportOut     string
	exportFilters filterFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered observation set",
	Long: `Writes the filtered observation set with the source columns plus the
derived Year/Month. The output format follows the file extension: .xlsx
writes a workbook, anything else writes CSV. Without --out, CSV goes to
stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds := dataset.New(st)
		subset, err := ds.Filtered(ctx, exportFilters.filter())
		if err != nil {
			return eris.Wrap(err, "export: load")
		}

		if exportOut == "" {
			return export.WriteCSV(os.Stdout, subset)
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", exportOut)
		}
		defer f.Close() //nolint:errcheck

		if strings.HasSuffix(strings.ToLower(exportOut), ".xlsx") {
			err = export.WriteXLSX(f, subset)
		} else {
			err = export.WriteCSV(f, subset)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("out", exportOut),
			zap.Int("rows", len(subset)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (.csv or .xlsx; default stdout)")
	exportFilters.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
