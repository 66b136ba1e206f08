package assembly

import (
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/matrix"
	"github.com/katalvlaran/lvlca/parameters"
)

// DefaultCancelEvery is the number of activities assembled between two
// cancellation checks.
const DefaultCancelEvery = 256

// Option configures Build.
type Option func(*options)

type options struct {
	databases []string
	seeds     []inventory.Key
	amounts   map[int]float64
	progress  func(current, total int)
	every     int
	matrix    []matrix.Option
}

// WithDatabases restricts assembly to the named databases. The biosphere
// database is added automatically when the provider has one.
func WithDatabases(names ...string) Option {
	return func(o *options) { o.databases = append(o.databases, names...) }
}

// WithDemand selects the databases to assemble as the dependency closure of
// keys. Ignored when WithDatabases is also given.
func WithDemand(keys ...inventory.Key) Option {
	return func(o *options) { o.seeds = append(o.seeds, keys...) }
}

// WithExchangeAmounts replaces the stored amounts of parameterized
// exchanges by recalculated ones. NaN amounts keep the stored value.
func WithExchangeAmounts(amounts []parameters.ExchangeAmount) Option {
	return func(o *options) {
		if o.amounts == nil {
			o.amounts = make(map[int]float64, len(amounts))
		}
		for _, a := range amounts {
			o.amounts[a.ExchangeID] = a.Amount
		}
	}
}

// WithProgress installs a callback invoked with the number of assembled
// activities.
func WithProgress(fn func(current, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// WithCancelEvery sets how many activities are assembled between two
// context checks. Panics when n < 1.
func WithCancelEvery(n int) Option {
	if n < 1 {
		panic("assembly: WithCancelEvery: n must be >= 1")
	}

	return func(o *options) { o.every = n }
}

// WithMatrixOptions forwards numeric policy options to the created matrices.
func WithMatrixOptions(opts ...matrix.Option) Option {
	return func(o *options) { o.matrix = append(o.matrix, opts...) }
}

func gather(opts []Option) options {
	o := options{every: DefaultCancelEvery}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
