package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/montecarlo"
	"github.com/katalvlaran/lvlca/multilca"
)

func newMCCmd(a *app) *cobra.Command {
	var (
		setupPath string
		include   string
	)
	cmd := &cobra.Command{
		Use:   "mc",
		Short: "Run a seeded Monte-Carlo analysis and print summary statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if setupPath == "" {
				return errNoSetup
			}
			setup, err := multilca.LoadSetup(setupPath)
			if err != nil {
				return fmt.Errorf("load setup %s: %w", setupPath, err)
			}
			inc := a.cfg.MonteCarlo.IncludeSet()
			if cmd.Flags().Changed("include") {
				if inc, err = config.ParseInclude(include); err != nil {
					return err
				}
			}
			s, _, err := a.newSession(cmd)
			if err != nil {
				return err
			}
			res, err := s.MonteCarlo(cmd.Context(), setup, inc, a.cfg.MonteCarlo.Seed, a.cfg.MonteCarlo.Iterations)
			if err != nil {
				return err
			}

			return printSummary(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&setupPath, "setup", "", "calculation setup (.yaml or .toml)")
	f.Int("iterations", config.DefaultIterations, "number of iterations")
	f.Uint64("seed", config.DefaultSeed, "root seed of the random streams")
	f.StringVar(&include, "include", "all", "sampled streams: technosphere, biosphere, cf, parameters, all or none")
	a.bind(cmd, map[string]string{
		config.KeyMCIterations: "iterations",
		config.KeyMCSeed:       "seed",
	})

	return cmd
}

func printSummary(w io.Writer, res *montecarlo.Results) error {
	fmt.Fprintf(w, "seed %d, %d iterations\n", res.Seed, res.Iterations())
	tw := newTable(w)
	fmt.Fprintln(tw, "FUNCTIONAL UNIT\tMETHOD\tMEAN\tSTD DEV\tMEDIAN\t2.5%\t97.5%")
	for u, fu := range res.FunctionalUnits {
		for m, id := range res.Methods {
			sum, err := res.Summary(u, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", fu, id,
				formatFloat(sum.Mean), formatFloat(sum.StdDev), formatFloat(sum.Median),
				formatFloat(sum.Lower), formatFloat(sum.Upper))
		}
	}

	return tw.Flush()
}
