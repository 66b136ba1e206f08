package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlca/parameters"
)

func newParamsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Evaluate every parameter and print the parameterized exchange amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, _, err := a.newSession(cmd)
			if err != nil {
				return err
			}
			res, err := s.Parameters(cmd.Context())
			if err != nil {
				return err
			}

			return printParameters(cmd.OutOrStdout(), res)
		},
	}
}

func printParameters(w io.Writer, res parameters.Result) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SCOPE\tNAME\tAMOUNT")
	scope := func(label string, values parameters.Values) {
		for _, name := range slices.Sorted(maps.Keys(values)) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", label, name, formatFloat(values[name]))
		}
	}
	scope("project", res.Project)
	for _, db := range slices.Sorted(maps.Keys(res.Databases)) {
		scope("database "+db, res.Databases[db])
	}
	for _, g := range slices.Sorted(maps.Keys(res.Groups)) {
		scope("group "+g, res.Groups[g])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(res.Exchanges) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "EXCHANGE\tAMOUNT")
	for _, x := range res.Exchanges {
		fmt.Fprintf(tw, "%d\t%s\n", x.ExchangeID, formatFloat(x.Amount))
	}

	return tw.Flush()
}
