package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/montecarlo"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/scenario"
)

// Event is one progress notification of a run.
type Event struct {
	RunID   uuid.UUID
	Op      string
	Stage   progress.Stage
	Current int
	Total   int
	Time    time.Time
	// Err is set on the terminal event of a failed run.
	Err error
}

// Sink receives the events of every run, synchronously from the
// calculating goroutine.
type Sink func(Event)

// Option configures a Session.
type Option func(*options)

type options struct {
	log      *slog.Logger
	sink     Sink
	now      func() time.Time
	mlca     []multilca.Option
	scenario []scenario.Option
	mc       []montecarlo.Option
}

// WithLogger sets the logger; the default is slog.Default() tagged with
// component=session. The logger is handed down to every package a run
// drives.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSink installs the progress sink.
func WithSink(fn Sink) Option {
	return func(o *options) { o.sink = fn }
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	if now == nil {
		panic("session: WithClock requires a non-nil clock")
	}

	return func(o *options) { o.now = now }
}

// WithMultiLCAOptions forwards options to every calculation.
func WithMultiLCAOptions(opts ...multilca.Option) Option {
	return func(o *options) { o.mlca = append(o.mlca, opts...) }
}

// WithScenarioOptions forwards options to the scenario engine and plans,
// typically the confirm and relink callbacks of the host.
func WithScenarioOptions(opts ...scenario.Option) Option {
	return func(o *options) { o.scenario = append(o.scenario, opts...) }
}

// WithMonteCarloOptions forwards options to Monte-Carlo runs.
func WithMonteCarloOptions(opts ...montecarlo.Option) Option {
	return func(o *options) { o.mc = append(o.mc, opts...) }
}

// Session drives calculations over one inventory provider.
type Session struct {
	prov inventory.Provider
	o    options
}

// New returns a Session over prov.
func New(prov inventory.Provider, opts ...Option) *Session {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default().With("component", "session")
	}

	return &Session{prov: prov, o: o}
}

// Provider returns the inventory the session reads from.
func (s *Session) Provider() inventory.Provider { return s.prov }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.o.log }

// run tracks one operation between begin and end.
type run struct {
	s     *Session
	id    uuid.UUID
	op    string
	log   *slog.Logger
	start time.Time
}

func (s *Session) begin(op string) *run {
	id := uuid.New()
	r := &run{s: s, id: id, op: op, log: s.o.log.With("run", id.String(), "op", op), start: s.o.now()}
	r.log.Info("run started")

	return r
}

func (r *run) emit(stage progress.Stage, current, total int, err error) {
	if r.s.o.sink == nil {
		return
	}
	r.s.o.sink(Event{
		RunID:   r.id,
		Op:      r.op,
		Stage:   stage,
		Current: current,
		Total:   total,
		Time:    r.s.o.now(),
		Err:     err,
	})
}

// progress adapts the run to the callback shape of the calculation
// packages.
func (r *run) progress() progress.Func {
	return func(stage progress.Stage, current, total int) {
		r.emit(stage, current, total, nil)
	}
}

// end closes the run with its terminal event and returns err, marked
// ErrCanceled when the context stopped it.
func (r *run) end(err error) error {
	elapsed := r.s.o.now().Sub(r.start)
	switch {
	case err == nil:
		r.emit(progress.Finished, 1, 1, nil)
		r.log.Info("run finished", "elapsed", elapsed)
	case canceled(err):
		err = wrapCanceled(err)
		r.emit(progress.Canceled, 0, 1, err)
		r.log.Warn("run canceled", "elapsed", elapsed)
	default:
		r.emit(progress.Finished, 0, 1, err)
		r.log.Error("run failed", "elapsed", elapsed, "error", err)
	}

	return err
}

func (r *run) mlcaOptions() []multilca.Option {
	opts := make([]multilca.Option, 0, len(r.s.o.mlca)+2)
	opts = append(opts, multilca.WithLogger(r.log.With("component", "multilca")))
	opts = append(opts, r.s.o.mlca...)

	return append(opts, multilca.WithProgress(r.progress()))
}

func (r *run) scenarioOptions() []scenario.Option {
	opts := []scenario.Option{scenario.WithLogger(r.log.With("component", "scenario"))}

	return append(opts, r.s.o.scenario...)
}

// Calculate runs a plain Multi-LCA.
func (s *Session) Calculate(ctx context.Context, setup multilca.Setup) (res *multilca.Results, err error) {
	r := s.begin("calculate")
	defer func() { err = r.end(err) }()

	m, err := multilca.New(ctx, s.prov, setup, r.mlcaOptions()...)
	if err != nil {
		return nil, err
	}

	return m.Calculate(ctx)
}

// CalculateScenarios reads, validates and combines the scenario files at
// paths and runs the calculation once per combined scenario. sheet selects
// the Excel worksheet ("" = first).
func (s *Session) CalculateScenarios(ctx context.Context, setup multilca.Setup, mode scenario.Mode, sheet string, paths ...string) (res *multilca.Results, err error) {
	r := s.begin("scenarios")
	defer func() { err = r.end(err) }()

	t, err := scenario.NewEngine(s.prov, r.scenarioOptions()...).Load(ctx, mode, sheet, paths...)
	if err != nil {
		return nil, err
	}

	return s.calculateTable(ctx, r, setup, t)
}

// CalculateTable runs the calculation over an already loaded scenario
// table. The table is prepared first, so hand-built tables may leave keys
// and flow types empty.
func (s *Session) CalculateTable(ctx context.Context, setup multilca.Setup, t *scenario.Table) (res *multilca.Results, err error) {
	r := s.begin("scenarios")
	defer func() { err = r.end(err) }()

	t, err = scenario.NewEngine(s.prov, r.scenarioOptions()...).Prepare(ctx, t)
	if err != nil {
		return nil, err
	}

	return s.calculateTable(ctx, r, setup, t)
}

func (s *Session) calculateTable(ctx context.Context, r *run, setup multilca.Setup, t *scenario.Table) (*multilca.Results, error) {
	plan := scenario.NewPlan(t, r.scenarioOptions()...)
	sm, err := multilca.NewScenario(ctx, s.prov, setup, plan, r.mlcaOptions()...)
	if err != nil {
		return nil, err
	}
	res, err := sm.Calculate(ctx)
	if err != nil {
		return nil, err
	}
	r.log.Info("scenario overlay applied", "rows", len(t.Rows), "cells", len(plan.Entries()), "dropped", plan.Dropped())

	return res, nil
}

// MonteCarlo runs n seeded iterations over setup.
func (s *Session) MonteCarlo(ctx context.Context, setup multilca.Setup, include montecarlo.Include, seed uint64, n int) (res *montecarlo.Results, err error) {
	r := s.begin("montecarlo")
	defer func() { err = r.end(err) }()

	opts := make([]montecarlo.Option, 0, len(s.o.mc)+3)
	opts = append(opts, montecarlo.WithLogger(r.log.With("component", "montecarlo")))
	opts = append(opts, s.o.mc...)
	opts = append(opts,
		montecarlo.WithProgress(r.progress()),
		montecarlo.WithMultiLCAOptions(r.mlcaOptions()...))
	mc, err := montecarlo.New(ctx, s.prov, setup, include, seed, opts...)
	if err != nil {
		return nil, err
	}

	return mc.Run(ctx, n)
}
