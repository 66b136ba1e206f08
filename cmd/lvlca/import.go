package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvlca/session"
)

func newImportCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Persist an inventory snapshot into a SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" || to == "" {
				return errors.New("import needs --from and --to")
			}
			inv, err := session.LoadInventory(cmd.Context(), from, a.cfg.Inventory.Biosphere)
			if err != nil {
				return err
			}
			opts := []session.Option{session.WithLogger(a.log)}
			if !a.quiet {
				opts = append(opts, session.WithSink(progressPrinter(cmd.ErrOrStderr())))
			}

			return session.New(inv, opts...).Import(cmd.Context(), inv, to)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "inventory snapshot to read (.yaml or .db)")
	cmd.Flags().StringVar(&to, "to", "", "SQLite file to write")

	return cmd
}
