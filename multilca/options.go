package multilca

import (
	"log/slog"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/lca"
	"github.com/katalvlaran/lvlca/parameters"
	"github.com/katalvlaran/lvlca/progress"
)

// Option configures an MLCA or a ScenarioMLCA.
type Option func(*options)

type options struct {
	log      *slog.Logger
	progress progress.Func
	assembly []assembly.Option
	solver   []lca.Option
	engine   *parameters.Engine
	noParams bool
}

// WithLogger sets the logger; the default is slog.Default() tagged with
// component=multilca.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgress installs the progress callback.
func WithProgress(fn progress.Func) Option {
	return func(o *options) { o.progress = fn }
}

// WithAssemblyOptions forwards options to assembly.Build.
func WithAssemblyOptions(opts ...assembly.Option) Option {
	return func(o *options) { o.assembly = append(o.assembly, opts...) }
}

// WithSolverOptions forwards options to lca.NewSolver.
func WithSolverOptions(opts ...lca.Option) Option {
	return func(o *options) { o.solver = append(o.solver, opts...) }
}

// WithParameterEngine evaluates parameterized exchanges with e (carrying
// any Update pins) instead of a fresh engine.
func WithParameterEngine(e *parameters.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithoutParameters assembles stored exchange amounts and skips formula
// evaluation.
func WithoutParameters() Option {
	return func(o *options) { o.noParams = true }
}

func gather(opts []Option) options {
	o := options{log: slog.Default().With("component", "multilca")}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
