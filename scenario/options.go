package scenario

import "log/slog"

// DefaultCancelEvery is how many rows are processed between cancellation
// checks.
const DefaultCancelEvery = 256

// ConfirmFunc decides whether a warning (duplicates, ambiguous metadata or
// dropped columns) may be resolved by the documented recovery. Returning
// false fails the run with the warning as error.
type ConfirmFunc func(w *OffenderError) bool

// RelinkFunc maps database names missing from the inventory onto available
// ones. Returning ok=false declines the relink.
type RelinkFunc func(missing, available []string) (mapping map[string]string, ok bool)

// Option configures an Engine or a Plan.
type Option func(*options)

type options struct {
	log         *slog.Logger
	confirm     ConfirmFunc
	relink      RelinkFunc
	cancelEvery int
}

// WithLogger sets the logger; the default is slog.Default() tagged with
// component=scenario.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithConfirm installs the warning callback. Without one every warning is
// logged and the run proceeds.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *options) { o.confirm = fn }
}

// WithRelinker installs the database relinking callback. Without one,
// unknown databases fail with ErrDatabaseNotFound.
func WithRelinker(fn RelinkFunc) Option {
	return func(o *options) { o.relink = fn }
}

// WithCancelEvery sets the cancellation check period in rows. It panics if
// n < 1.
func WithCancelEvery(n int) Option {
	if n < 1 {
		panic("scenario: WithCancelEvery requires n >= 1")
	}

	return func(o *options) { o.cancelEvery = n }
}

func gather(opts []Option) options {
	o := options{cancelEvery: DefaultCancelEvery}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.Default().With("component", "scenario")
	}

	return o
}

// warn runs the confirm policy for w. It returns w when the host declines.
func (o options) warn(w *OffenderError) error {
	if o.confirm != nil {
		if !o.confirm(w) {
			return w
		}

		return nil
	}
	o.log.Warn("scenario warning resolved by default", "warning", w.Kind.Error(), "total", w.Total, "sample", w.Offenders)

	return nil
}
