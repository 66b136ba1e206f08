package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/config"
	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/montecarlo"
	"github.com/katalvlaran/lvlca/scenario"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.New())
	require.NoError(t, err)

	assert.Equal(t, matrix.DefaultEpsilon, cfg.Solver.Epsilon)
	assert.Equal(t, matrix.DefaultRefineSteps, cfg.Solver.RefineSteps)
	assert.Equal(t, matrix.DefaultResidualTolerance, cfg.Solver.ResidualTol)
	assert.Equal(t, lca.DefaultDenseFallbackLimit, cfg.Solver.DenseLimit)
	assert.Equal(t, config.DefaultIterations, cfg.MonteCarlo.Iterations)
	assert.Equal(t, uint64(config.DefaultSeed), cfg.MonteCarlo.Seed)
	assert.Equal(t, montecarlo.All, cfg.MonteCarlo.IncludeSet())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	mode, err := cfg.CombineMode()
	require.NoError(t, err)
	assert.Equal(t, scenario.Product, mode)
	assert.Len(t, cfg.MatrixOptions(), 3)
	assert.Len(t, cfg.SolverOptions(), 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LVLCA_SOLVER_EPSILON", "1e-12")
	t.Setenv("LVLCA_INVENTORY_PATH", "/data/inv.db")
	t.Setenv("LVLCA_MONTECARLO_SEED", "7")
	t.Setenv("LVLCA_MONTECARLO_INCLUDE_CF", "false")
	t.Setenv("LVLCA_SCENARIO_COMBINE", "addition")

	cfg, err := config.Load(config.New())
	require.NoError(t, err)
	assert.Equal(t, 1e-12, cfg.Solver.Epsilon)
	assert.Equal(t, "/data/inv.db", cfg.Inventory.Path)
	assert.Equal(t, uint64(7), cfg.MonteCarlo.Seed)
	assert.False(t, cfg.MonteCarlo.Include.CF)
	assert.True(t, cfg.MonteCarlo.Include.Technosphere)
	assert.Equal(t, "addition", cfg.Scenario.Combine)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
solver:
  epsilon: 1.0e-9
scenario:
  combine: addition
  sheet: overlays
montecarlo:
  include:
    cf: false
`), 0o600))
		v := config.New()
		require.NoError(t, config.ReadFile(v, path))
		cfg, err := config.Load(v)
		require.NoError(t, err)
		assert.Equal(t, 1e-9, cfg.Solver.Epsilon)
		assert.Equal(t, "overlays", cfg.Scenario.Sheet)
		assert.False(t, cfg.MonteCarlo.Include.CF)
		assert.True(t, cfg.MonteCarlo.Include.Parameters)
	})

	t.Run("searched toml", func(t *testing.T) {
		wd := t.TempDir()
		t.Chdir(wd)
		t.Setenv("HOME", wd)
		require.NoError(t, os.WriteFile(filepath.Join(wd, ".lvlca.toml"), []byte(`
[montecarlo]
iterations = 50
seed = 9

[log]
format = "json"
`), 0o600))
		v := config.New()
		require.NoError(t, config.ReadFile(v, ""))
		cfg, err := config.Load(v)
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.MonteCarlo.Iterations)
		assert.Equal(t, uint64(9), cfg.MonteCarlo.Seed)
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("nothing to find", func(t *testing.T) {
		wd := t.TempDir()
		t.Chdir(wd)
		t.Setenv("HOME", wd)
		assert.NoError(t, config.ReadFile(config.New(), ""))
	})

	t.Run("explicit file missing", func(t *testing.T) {
		assert.Error(t, config.ReadFile(config.New(), filepath.Join(dir, "missing.yaml")))
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{config.KeySolverEpsilon, -1.0},
		{config.KeySolverRefineSteps, -2},
		{config.KeySolverResidualTol, 0.0},
		{config.KeySolverDenseLimit, -1},
		{config.KeyScenarioCombine, "sum"},
		{config.KeyMCIterations, 0},
		{config.KeyLogLevel, "loud"},
		{config.KeyLogFormat, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := config.New()
			v.Set(tt.key, tt.value)
			_, err := config.Load(v)
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestParseInclude(t *testing.T) {
	tests := []struct {
		in   string
		want montecarlo.Include
	}{
		{"", montecarlo.Include{}},
		{"all", montecarlo.All},
		{"none", montecarlo.Include{}},
		{"technosphere, cf", montecarlo.Include{Technosphere: true, CF: true}},
		{"Biosphere,parameters", montecarlo.Include{Biosphere: true, Parameters: true}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := config.ParseInclude(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := config.ParseInclude("technosphere,weather")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := config.LogConfig{Level: "debug", Format: "json"}.Logger(&buf)
	require.NoError(t, err)
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))
	l.Info("hello", "n", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	l, err = config.LogConfig{Level: "warn", Format: "text"}.Logger(&buf)
	require.NoError(t, err)
	l.Info("quiet")
	assert.Empty(t, buf.String())

	_, err = config.LogConfig{Level: "info", Format: "xml"}.Logger(&buf)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
