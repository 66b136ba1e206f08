package session

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCanceled wraps the context error of a canceled run.
	ErrCanceled = errors.New("session: run canceled")

	// ErrUnknownInventoryFormat indicates an inventory file that is neither
	// a YAML snapshot nor a SQLite store.
	ErrUnknownInventoryFormat = errors.New("session: unknown inventory file format")
)

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// wrapCanceled marks err as ErrCanceled while keeping the context error
// visible to errors.Is.
func wrapCanceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
