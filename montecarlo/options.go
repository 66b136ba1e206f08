package montecarlo

import (
	"log/slog"

	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/uncertainty"
)

// Include selects the sampled streams.
type Include struct {
	Technosphere bool
	Biosphere    bool
	CF           bool
	Parameters   bool
}

// All samples every stream.
var All = Include{Technosphere: true, Biosphere: true, CF: true, Parameters: true}

// Option configures a MonteCarlo.
type Option func(*options)

type options struct {
	log           *slog.Logger
	progress      progress.Func
	basicVariance float64
	snapshots     bool
	mlca          []multilca.Option
}

// WithLogger sets the logger; the default is slog.Default() tagged with
// component=montecarlo.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithProgress installs the progress callback (stage mc_iter).
func WithProgress(fn progress.Func) Option {
	return func(o *options) { o.progress = fn }
}

// WithBasicVariance sets the basic variance added to pedigree-only
// exchanges and parameters. It panics if v < 0.
func WithBasicVariance(v float64) Option {
	if v < 0 {
		panic("montecarlo: WithBasicVariance requires v >= 0")
	}

	return func(o *options) { o.basicVariance = v }
}

// WithSnapshots keeps a copy of A and B for every iteration.
func WithSnapshots() Option {
	return func(o *options) { o.snapshots = true }
}

// WithMultiLCAOptions forwards options to the underlying calculation.
func WithMultiLCAOptions(opts ...multilca.Option) Option {
	return func(o *options) { o.mlca = append(o.mlca, opts...) }
}

func gather(opts []Option) options {
	o := options{basicVariance: uncertainty.DefaultBasicVariance}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default().With("component", "montecarlo")
	}

	return o
}
