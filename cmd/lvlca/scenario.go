package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/scenario"
)

func newScenarioCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Work with scenario tables",
	}
	cmd.AddCommand(newTemplateCmd(a), newCombineCmd(a))

	return cmd
}

func newTemplateCmd(a *app) *cobra.Command {
	var (
		activities []string
		names      []string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a scenario table listing the exchanges of some activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys := make([]inventory.Key, len(activities))
			for i, s := range activities {
				k, err := parseActivity(s)
				if err != nil {
					return err
				}
				keys[i] = k
			}
			if len(names) == 0 {
				return errors.New("template needs at least one scenario name (--names)")
			}
			s, _, err := a.newSession(cmd)
			if err != nil {
				return err
			}
			t, err := s.Template(keys, names)
			if err != nil {
				return err
			}

			return a.writeTable(cmd, t, out)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&activities, "activity", nil, "activity as database:code; repeatable")
	f.StringSliceVar(&names, "names", nil, "scenario column names")
	f.StringVar(&out, "out", "", "output file (.csv or .xlsx; default CSV on stdout)")

	return cmd
}

func newCombineCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "combine FILE...",
		Short: "Validate and combine scenario files into one table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := a.cfg.CombineMode()
			if err != nil {
				return err
			}
			inv, err := a.openInventory(cmd.Context())
			if err != nil {
				return err
			}
			e := scenario.NewEngine(inv, scenario.WithLogger(a.log.With("component", "scenario")))
			t, err := e.Load(cmd.Context(), mode, a.cfg.Scenario.Sheet, args...)
			if err != nil {
				return err
			}
			a.log.Info("scenario tables combined", "files", len(args), "rows", len(t.Rows), "scenarios", len(t.Scenarios))

			return a.writeTable(cmd, t, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "", "output file (.csv or .xlsx; default CSV on stdout)")
	f.String("combine", "", "combination of several scenario files (product or addition)")
	f.String("sheet", "", "worksheet of Excel scenario files (default first)")
	a.bind(cmd, map[string]string{
		config.KeyScenarioCombine: "combine",
		config.KeyScenarioSheet:   "sheet",
	})

	return cmd
}

// parseActivity reads "database:code". The code may itself contain colons.
func parseActivity(s string) (inventory.Key, error) {
	db, code, ok := strings.Cut(s, ":")
	if !ok || db == "" || code == "" {
		return inventory.Key{}, fmt.Errorf("activity %q: want database:code", s)
	}

	return inventory.K(db, code), nil
}

func (a *app) writeTable(cmd *cobra.Command, t *scenario.Table, path string) (err error) {
	if path == "" {
		return scenario.WriteCSV(cmd.OutOrStdout(), t)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		sheet := a.cfg.Scenario.Sheet
		if sheet == "" {
			sheet = scenario.DefaultSheet
		}
		err = scenario.WriteExcel(f, t, sheet)
	default:
		err = scenario.WriteCSV(f, t)
	}
	if err == nil {
		a.log.Info("scenario table written", "path", path, "rows", len(t.Rows))
	}

	return err
}
