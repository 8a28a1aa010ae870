package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/parksurvey/birdboard/internal/aggregate"
	"github.com/parksurvey/birdboard/internal/dataset"
)

var (
	statsFormat  string
	statsTopN    int
	statsFilters filterFlags
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print summary metrics for the filtered observation set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ds := dataset.New(st)
		subset, err := ds.Filtered(ctx, statsFilters.filter())
		if err != nil {
			return eris.Wrap(err, "stats: load")
		}

		if len(subset) == 0 {
			fmt.Fprintln(os.Stderr, "No observations.")
			return nil
		}

		summary := aggregate.Summarize(subset)
		top := aggregate.TopSpecies(subset, statsTopN)

		switch statsFormat {
		case "json":
			return writeStatsJSON(os.Stdout, summary, top)
		case "yaml":
			return writeStatsYAML(os.Stdout, summary, top)
		case "table":
			writeStatsTable(os.Stdout, summary, top)
			return nil
		default:
			return eris.Errorf("unknown format: %s", statsFormat)
		}
	},
}

type statsOutput struct {
	Summary    aggregate.Summary        `json:"summary" yaml:"summary"`
	TopSpecies []aggregate.SpeciesCount `json:"top_species" yaml:"top_species"`
}

func writeStatsJSON(w io.Writer, s aggregate.Summary, top []aggregate.SpeciesCount) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(statsOutput{Summary: s, TopSpecies: top}), "stats: encode json")
}

func writeStatsYAML(w io.Writer, s aggregate.Summary, top []aggregate.SpeciesCount) error {
	out, err := yaml.Marshal(statsOutput{Summary: s, TopSpecies: top})
	if err != nil {
		return eris.Wrap(err, "stats: encode yaml")
	}
	_, err = w.Write(out)
	return eris.Wrap(err, "stats: write yaml")
}

func writeStatsTable(w io.Writer, s aggregate.Summary, top []aggregate.SpeciesCount) {
	p := message.NewPrinter(language.English)

	p.Fprintf(w, "Unique species:     %d\n", s.UniqueSpecies)
	p.Fprintf(w, "Total observations: %d\n", s.TotalObservations)
	p.Fprintf(w, "Unique plots:       %d\n\n", s.UniquePlots)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SPECIES\tCOUNT")
	for _, sc := range top {
		p.Fprintf(tw, "%s\t%d\n", sc.CommonName, sc.Count)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "table", "output format: table, json, or yaml")
	statsCmd.Flags().IntVar(&statsTopN, "top", 10, "number of top species to list")
	statsFilters.register(statsCmd)
	rootCmd.AddCommand(statsCmd)
}
