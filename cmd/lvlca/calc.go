package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/contrib"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/multilca"
)

var errNoSetup = errors.New("no calculation setup: set --setup")

func newCalcCmd(a *app) *cobra.Command {
	var (
		setupPath string
		scenarios []string
		top       int
		groupBy   string
		flows     bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run a multi-LCA, optionally over scenario files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if setupPath == "" {
				return errNoSetup
			}
			setup, err := multilca.LoadSetup(setupPath)
			if err != nil {
				return fmt.Errorf("load setup %s: %w", setupPath, err)
			}
			s, inv, err := a.newSession(cmd)
			if err != nil {
				return err
			}

			var res *multilca.Results
			if len(scenarios) == 0 {
				res, err = s.Calculate(cmd.Context(), setup)
			} else {
				mode, merr := a.cfg.CombineMode()
				if merr != nil {
					return merr
				}
				res, err = s.CalculateScenarios(cmd.Context(), setup, mode, a.cfg.Scenario.Sheet, scenarios...)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err = printScores(out, res); err != nil {
				return err
			}
			if top <= 0 {
				return nil
			}
			q := contrib.Query{Limit: top, GroupBy: contrib.Field(groupBy)}
			if flows {
				q.Kind = contrib.Flows
			}

			return printContributions(out, res, inv, q)
		},
	}

	f := cmd.Flags()
	f.StringVar(&setupPath, "setup", "", "calculation setup (.yaml or .toml)")
	f.StringSliceVar(&scenarios, "scenario", nil, "scenario file (.csv or .xlsx); repeat to combine")
	f.String("combine", "", "combination of several scenario files (product or addition)")
	f.String("sheet", "", "worksheet of Excel scenario files (default first)")
	f.IntVar(&top, "top", 0, "print the N largest contributors of every score")
	f.StringVar(&groupBy, "group-by", string(contrib.FieldKey), "aggregate contributors by key, name, location, reference product, database or categories")
	f.BoolVar(&flows, "flows", false, "rank biosphere flows instead of processes")
	a.bind(cmd, map[string]string{
		config.KeyScenarioCombine: "combine",
		config.KeyScenarioSheet:   "sheet",
	})

	return cmd
}

func printScores(w io.Writer, res *multilca.Results) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SCENARIO\tFUNCTIONAL UNIT\tMETHOD\tSCORE\tUNIT")
	for s, name := range res.Scenarios {
		if name == "" {
			name = "-"
		}
		for u, fu := range res.FunctionalUnits {
			for m, id := range res.Methods {
				v, err := res.Score(u, m, s)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, fu, id, formatFloat(v), res.Units[m])
			}
		}
	}

	return tw.Flush()
}

func printContributions(w io.Writer, res *multilca.Results, prov inventory.Provider, q contrib.Query) error {
	for s, name := range res.Scenarios {
		for u, fu := range res.FunctionalUnits {
			for m, id := range res.Methods {
				t, err := contrib.Contributions(res, prov, u, m, s, q)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\n%s | %s", fu, id)
				if name != "" {
					fmt.Fprintf(w, " | %s", name)
				}
				fmt.Fprintf(w, " = %s\n", formatFloat(t.Score))
				tw := newTable(w)
				for _, c := range t.Top {
					fmt.Fprintf(tw, "  %s\t%s\t%.1f%%\n", c.Label, formatFloat(c.Value), 100*c.Relative)
				}
				pos, neg := t.Rest()
				if pos != 0 || neg != 0 {
					fmt.Fprintf(tw, "  rest (+/-)\t%s / %s\t\n", formatFloat(pos), formatFloat(neg))
				}
				if err = tw.Flush(); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
