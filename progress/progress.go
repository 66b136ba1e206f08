// Package progress defines the stages and the callback shape through which
// long-running calculations report advancement to their host.
package progress

// Stage names a phase of a run.
type Stage string

// Stages, in the order a full run passes through them.
const (
	Extraction Stage = "extraction"
	Strategy   Stage = "strategy"
	DBWrite    Stage = "db_write"
	Assemble   Stage = "assemble"
	Scenario   Stage = "scenario"
	MCIter     Stage = "mc_iter"
	Finalize   Stage = "finalize"
)

// Terminal stages close a run; exactly one of them is reported last.
const (
	Finished Stage = "finished"
	Canceled Stage = "canceled"
)

// Terminal reports whether s closes a run.
func (s Stage) Terminal() bool { return s == Finished || s == Canceled }

// Func receives (stage, current, total). It is invoked synchronously from
// the calculating goroutine and must not block for long.
type Func func(stage Stage, current, total int)

// Report calls f when it is set.
func (f Func) Report(stage Stage, current, total int) {
	if f != nil {
		f(stage, current, total)
	}
}
