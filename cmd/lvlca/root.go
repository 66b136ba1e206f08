package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/inventory/sqlitestore"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/session"
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfg     config.Config
	log     *slog.Logger
	cfgFile string
	quiet   bool
	binds   []binding
}

// binding ties configuration keys to flags of one command.
type binding struct {
	cmd  *cobra.Command
	keys map[string]string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:           "lvlca",
		Short:         "Life-cycle assessment compute core",
		Long:          "lvlca assembles technosphere, biosphere and characterization matrices from an inventory and runs multi-LCA, scenario and Monte-Carlo calculations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default .lvlca.yaml or .lvlca.toml)")
	pf.String("inventory", "", "inventory snapshot (.yaml or .db)")
	pf.String("biosphere", "", "biosphere database name, overriding the snapshot")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.String("log-format", config.DefaultLogFormat, "log format (text or json)")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "do not print progress events")
	a.bind(root, map[string]string{
		config.KeyInventoryPath:      "inventory",
		config.KeyInventoryBiosphere: "biosphere",
		config.KeyLogLevel:           "log-level",
		config.KeyLogFormat:          "log-format",
	})

	root.AddCommand(
		newCalcCmd(a),
		newMCCmd(a),
		newParamsCmd(a),
		newImportCmd(a),
		newScenarioCmd(a),
	)

	return root
}

// bind records configuration keys backed by flags of cmd. Several commands
// may back the same key; only the executing command and its ancestors are
// bound, so an explicitly set flag wins over file and environment values.
func (a *app) bind(cmd *cobra.Command, keys map[string]string) {
	a.binds = append(a.binds, binding{cmd: cmd, keys: keys})
}

func (a *app) bindFlags(cmd *cobra.Command) error {
	for _, b := range a.binds {
		if !onPath(cmd, b.cmd) {
			continue
		}
		for key, name := range b.keys {
			f := b.cmd.Flags().Lookup(name)
			if f == nil {
				f = b.cmd.PersistentFlags().Lookup(name)
			}
			if f == nil {
				return fmt.Errorf("bind %s: %s has no flag --%s", key, b.cmd.Name(), name)
			}
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}
	}

	return nil
}

// onPath reports whether target is cmd or one of its ancestors.
func onPath(cmd, target *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == target {
			return true
		}
	}

	return false
}

func (a *app) init(cmd *cobra.Command) error {
	if err := a.bindFlags(cmd); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.log, err = cfg.Log.Logger(cmd.ErrOrStderr()); err != nil {
		return err
	}
	if f := a.v.ConfigFileUsed(); f != "" {
		a.log.Debug("config file loaded", "path", f)
	}

	return nil
}

var errNoInventory = errors.New("no inventory: set --inventory or inventory.path")

// openInventory loads the configured inventory into memory.
func (a *app) openInventory(ctx context.Context) (*inventory.Store, error) {
	if a.cfg.Inventory.Path == "" {
		return nil, errNoInventory
	}
	inv, err := session.LoadInventory(ctx, a.cfg.Inventory.Path, a.cfg.Inventory.Biosphere,
		sqlitestore.WithLogger(a.log.With("component", "sqlitestore")))
	if err != nil {
		return nil, fmt.Errorf("load inventory %s: %w", a.cfg.Inventory.Path, err)
	}
	a.log.Info("inventory loaded", "path", a.cfg.Inventory.Path, "databases", len(inv.Databases()))

	return inv, nil
}

// newSession opens the inventory and wraps it in a session printing
// progress to the command's stderr.
func (a *app) newSession(cmd *cobra.Command) (*session.Session, *inventory.Store, error) {
	inv, err := a.openInventory(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	opts := []session.Option{
		session.WithLogger(a.log),
		session.WithMultiLCAOptions(multilca.WithSolverOptions(a.cfg.SolverOptions()...)),
	}
	if !a.quiet {
		opts = append(opts, session.WithSink(progressPrinter(cmd.ErrOrStderr())))
	}

	return session.New(inv, opts...), inv, nil
}
