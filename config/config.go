package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/montecarlo"
	"github.com/katalvlaran/lvlca/scenario"
)

// EnvPrefix prefixes every environment override (LVLCA_SOLVER_EPSILON).
const EnvPrefix = "LVLCA"

// FileName is the config file name searched without extension.
const FileName = ".lvlca"

// Configuration keys.
const (
	KeyInventoryPath      = "inventory.path"
	KeyInventoryBiosphere = "inventory.biosphere"
	KeySolverEpsilon      = "solver.epsilon"
	KeySolverRefineSteps  = "solver.refine_steps"
	KeySolverResidualTol  = "solver.residual_tol"
	KeySolverDenseLimit   = "solver.dense_fallback_limit"
	KeyScenarioCombine    = "scenario.combine"
	KeyScenarioSheet      = "scenario.sheet"
	KeyMCIterations       = "montecarlo.iterations"
	KeyMCSeed             = "montecarlo.seed"
	KeyMCTechnosphere     = "montecarlo.include.technosphere"
	KeyMCBiosphere        = "montecarlo.include.biosphere"
	KeyMCCF               = "montecarlo.include.cf"
	KeyMCParameters       = "montecarlo.include.parameters"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

// Defaults.
const (
	DefaultIterations = 1000
	DefaultSeed       = 42
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// ErrInvalid indicates a configuration value outside its domain.
var ErrInvalid = errors.New("config: invalid value")

// InventoryConfig locates the inventory snapshot.
type InventoryConfig struct {
	Path      string `mapstructure:"path"`
	Biosphere string `mapstructure:"biosphere"`
}

// SolverConfig tunes the LU factorization.
type SolverConfig struct {
	Epsilon     float64 `mapstructure:"epsilon"`
	RefineSteps int     `mapstructure:"refine_steps"`
	ResidualTol float64 `mapstructure:"residual_tol"`
	DenseLimit  int     `mapstructure:"dense_fallback_limit"`
}

// ScenarioConfig controls how scenario files are read and combined.
type ScenarioConfig struct {
	Combine string `mapstructure:"combine"`
	Sheet   string `mapstructure:"sheet"`
}

// IncludeConfig selects the sampled Monte-Carlo streams.
type IncludeConfig struct {
	Technosphere bool `mapstructure:"technosphere"`
	Biosphere    bool `mapstructure:"biosphere"`
	CF           bool `mapstructure:"cf"`
	Parameters   bool `mapstructure:"parameters"`
}

// MonteCarloConfig holds the defaults of the mc command.
type MonteCarloConfig struct {
	Iterations int           `mapstructure:"iterations"`
	Seed       uint64        `mapstructure:"seed"`
	Include    IncludeConfig `mapstructure:"include"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config holds all runtime configuration of the command.
type Config struct {
	Inventory  InventoryConfig  `mapstructure:"inventory"`
	Solver     SolverConfig     `mapstructure:"solver"`
	Scenario   ScenarioConfig   `mapstructure:"scenario"`
	MonteCarlo MonteCarloConfig `mapstructure:"montecarlo"`
	Log        LogConfig        `mapstructure:"log"`
}

// New returns a viper instance with the defaults set and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyInventoryPath, "")
	v.SetDefault(KeyInventoryBiosphere, "")
	v.SetDefault(KeySolverEpsilon, matrix.DefaultEpsilon)
	v.SetDefault(KeySolverRefineSteps, matrix.DefaultRefineSteps)
	v.SetDefault(KeySolverResidualTol, matrix.DefaultResidualTolerance)
	v.SetDefault(KeySolverDenseLimit, lca.DefaultDenseFallbackLimit)
	v.SetDefault(KeyScenarioCombine, string(scenario.Product))
	v.SetDefault(KeyScenarioSheet, "")
	v.SetDefault(KeyMCIterations, DefaultIterations)
	v.SetDefault(KeyMCSeed, DefaultSeed)
	v.SetDefault(KeyMCTechnosphere, true)
	v.SetDefault(KeyMCBiosphere, true)
	v.SetDefault(KeyMCCF, true)
	v.SetDefault(KeyMCParameters, true)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// ReadFile reads path into v, or searches FileName in the working
// directory and the home directory when path is empty. A missing searched
// file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName(FileName)
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks every value against its domain.
func (c Config) Validate() error {
	var errs []error
	if !finite(c.Solver.Epsilon) || c.Solver.Epsilon < 0 {
		errs = append(errs, fmt.Errorf("%w: %s = %v, want >= 0", ErrInvalid, KeySolverEpsilon, c.Solver.Epsilon))
	}
	if c.Solver.RefineSteps < 0 {
		errs = append(errs, fmt.Errorf("%w: %s = %d, want >= 0", ErrInvalid, KeySolverRefineSteps, c.Solver.RefineSteps))
	}
	if !finite(c.Solver.ResidualTol) || c.Solver.ResidualTol <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s = %v, want > 0", ErrInvalid, KeySolverResidualTol, c.Solver.ResidualTol))
	}
	if c.Solver.DenseLimit < 0 {
		errs = append(errs, fmt.Errorf("%w: %s = %d, want >= 0", ErrInvalid, KeySolverDenseLimit, c.Solver.DenseLimit))
	}
	if _, err := scenario.ParseMode(c.Scenario.Combine); err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyScenarioCombine, err))
	}
	if c.MonteCarlo.Iterations < 1 {
		errs = append(errs, fmt.Errorf("%w: %s = %d, want >= 1", ErrInvalid, KeyMCIterations, c.MonteCarlo.Iterations))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %s = %q, want text or json", ErrInvalid, KeyLogFormat, c.Log.Format))
	}

	return errors.Join(errs...)
}

// MatrixOptions translates the solver section into matrix options.
func (c Config) MatrixOptions() []matrix.Option {
	return []matrix.Option{
		matrix.WithEpsilon(c.Solver.Epsilon),
		matrix.WithRefineSteps(c.Solver.RefineSteps),
		matrix.WithResidualTolerance(c.Solver.ResidualTol),
	}
}

// SolverOptions returns the solver section as lca options.
func (c Config) SolverOptions() []lca.Option {
	return []lca.Option{
		lca.WithMatrixOptions(c.MatrixOptions()...),
		lca.WithDenseFallbackLimit(c.Solver.DenseLimit),
	}
}

// CombineMode returns the parsed scenario combination mode.
func (c Config) CombineMode() (scenario.Mode, error) {
	return scenario.ParseMode(c.Scenario.Combine)
}

// IncludeSet converts the include section.
func (c MonteCarloConfig) IncludeSet() montecarlo.Include {
	return montecarlo.Include{
		Technosphere: c.Include.Technosphere,
		Biosphere:    c.Include.Biosphere,
		CF:           c.Include.CF,
		Parameters:   c.Include.Parameters,
	}
}

// ParseInclude reads a comma-separated stream list such as
// "technosphere,cf". "all" selects every stream and "none" none.
func ParseInclude(s string) (montecarlo.Include, error) {
	var inc montecarlo.Include
	for _, part := range strings.Split(s, ",") {
		switch p := strings.ToLower(strings.TrimSpace(part)); p {
		case "":
		case "all":
			inc = montecarlo.All
		case "none":
			inc = montecarlo.Include{}
		case montecarlo.StreamTechnosphere:
			inc.Technosphere = true
		case montecarlo.StreamBiosphere:
			inc.Biosphere = true
		case montecarlo.StreamCF:
			inc.CF = true
		case montecarlo.StreamParameters:
			inc.Parameters = true
		default:
			return inc, fmt.Errorf("%w: unknown stream %q", ErrInvalid, p)
		}
	}

	return inc, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("%w: %s = %q: %w", ErrInvalid, KeyLogLevel, s, err)
	}

	return l, nil
}

// Logger builds the slog logger described by the log section, writing to w.
func (c LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}

	return nil, fmt.Errorf("%w: %s = %q, want text or json", ErrInvalid, KeyLogFormat, c.Format)
}
