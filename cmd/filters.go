package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/parksurvey/birdboard/internal/dataset"
)

// filterFlags are the filter selections shared by export and stats.
type filterFlags struct {
	observers []string
	plots     []string
	species   []string
	from      string
	to        string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&ff.observers, "observer", nil, "restrict to observer (repeatable)")
	cmd.Flags().StringArrayVar(&ff.plots, "plot", nil, "restrict to plot (repeatable)")
	cmd.Flags().StringArrayVar(&ff.species, "species", nil, "restrict to species common name (repeatable)")
	cmd.Flags().StringVar(&ff.from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ff.to, "to", "", "end date (YYYY-MM-DD)")
}

// filter builds the dataset filter. Matching the dashboard's date-picker
// behavior, anything short of two parseable endpoints leaves the date
// dimension unfiltered.
func (ff *filterFlags) filter() dataset.Filter {
	f := dataset.Filter{
		Observers: ff.observers,
		Plots:     ff.plots,
		Species:   ff.species,
	}
	var endpoints []time.Time
	for _, raw := range []string{ff.from, ff.to} {
		if raw == "" {
			continue
		}
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			endpoints = append(endpoints, d)
		}
	}
	f.DateRange = endpoints
	return f
}
