package depgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Visitation markers used by the DFS walkers.
const (
	White = iota // White: the node has not been visited yet.
	Gray         // Gray: the node is on the recursion stack.
	Black        // Black: the node and all its descendants are explored.
)

var (
	// ErrEmptyID is returned when a node ID is the empty string.
	ErrEmptyID = errors.New("depgraph: node ID is empty")

	// ErrNodeNotFound indicates that a referenced node does not exist.
	ErrNodeNotFound = errors.New("depgraph: node not found")

	// ErrCycleDetected indicates that a cycle was encountered while sorting.
	ErrCycleDetected = errors.New("depgraph: cycle detected")
)

// CycleError reports one cycle found by TopologicalSort. Cycle is closed
// (first element repeated at the end) and rotated so that its smallest ID
// comes first.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(e.Cycle, " -> "))
}

// Unwrap lets errors.Is(err, ErrCycleDetected) match.
func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// Option configures optional traversal behavior.
type Option func(*options)

type options struct {
	ctx context.Context // allows cancellation; defaults to Background
}

func defaultOptions() options { return options{ctx: context.Background()} }

// WithContext returns an Option that sets the cancellation context.
// Passing a nil context has no effect.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

func gather(opts []Option) options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return o
}
