package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExchangeNotFound indicates rows whose keys cannot be resolved.
	ErrExchangeNotFound = errors.New("scenario: exchange not found")

	// ErrDatabaseNotFound indicates rows referencing unknown databases.
	ErrDatabaseNotFound = errors.New("scenario: database not found")

	// ErrExchangeDataNotFound indicates a table whose every scenario
	// column is empty.
	ErrExchangeDataNotFound = errors.New("scenario: no scenario values provided")

	// ErrExchangeDataNonNumeric indicates scenario cells that are not numbers.
	ErrExchangeDataNonNumeric = errors.New("scenario: non-numeric scenario values")

	// ErrDuplicateExchange indicates several rows for one (from, to, type)
	// triple. It is a warning unless the host declines.
	ErrDuplicateExchange = errors.New("scenario: duplicate exchanges")

	// ErrUnalignableColumns indicates scenario names missing from some of
	// the tables combined by addition.
	ErrUnalignableColumns = errors.New("scenario: scenario columns cannot be aligned")

	// ErrWrongFileType indicates an unreadable file or a header without the
	// required columns.
	ErrWrongFileType = errors.New("scenario: wrong file type")

	// ErrLinkingFailed indicates rows still unresolved after relinking.
	ErrLinkingFailed = errors.New("scenario: linking failed")

	// ErrAmbiguousNode indicates scenario metadata matching several nodes
	// of one database. It is a warning unless the host declines; the last
	// node in provider order is used.
	ErrAmbiguousNode = errors.New("scenario: metadata matches several nodes")

	// ErrInvalidFlowType indicates a flow type outside technosphere,
	// biosphere, production and substitution.
	ErrInvalidFlowType = errors.New("scenario: invalid flow type")
)

// MaxOffenders caps the offenders carried by an OffenderError.
const MaxOffenders = 5

// Offender is one row or value behind a validation failure.
type Offender struct {
	Line   int // 1-based line in the source table, 0 if not applicable
	Detail string
}

func (o Offender) String() string {
	if o.Line == 0 {
		return o.Detail
	}

	return fmt.Sprintf("line %d: %s", o.Line, o.Detail)
}

// OffenderError is a validation failure (or warning) with a sample of its
// offenders. Total counts every offender, Offenders keeps the first
// MaxOffenders.
type OffenderError struct {
	Kind      error
	Offenders []Offender
	Total     int
}

func newOffenderError(kind error, all []Offender) *OffenderError {
	e := &OffenderError{Kind: kind, Total: len(all)}
	if len(all) > MaxOffenders {
		all = all[:MaxOffenders]
	}
	e.Offenders = append([]Offender(nil), all...)

	return e
}

func (e *OffenderError) Error() string {
	parts := make([]string, len(e.Offenders))
	for i, o := range e.Offenders {
		parts[i] = o.String()
	}
	msg := fmt.Sprintf("%v (%d): %s", e.Kind, e.Total, strings.Join(parts, "; "))
	if e.Total > len(e.Offenders) {
		msg += fmt.Sprintf("; and %d more", e.Total-len(e.Offenders))
	}

	return msg
}

// Unwrap returns Kind.
func (e *OffenderError) Unwrap() error { return e.Kind }
