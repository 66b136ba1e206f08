package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/session"
)

// progressPrinter prints stage completions and the terminal event of
// every run.
func progressPrinter(w io.Writer) session.Sink {
	return func(e session.Event) {
		id := e.RunID.String()[:8]
		switch {
		case e.Stage == progress.Canceled:
			fmt.Fprintf(w, "[%s] %s canceled\n", id, e.Op)
		case e.Stage.Terminal() && e.Err != nil:
			fmt.Fprintf(w, "[%s] %s failed\n", id, e.Op)
		case e.Stage.Terminal():
			fmt.Fprintf(w, "[%s] %s finished\n", id, e.Op)
		case e.Total > 0 && e.Current == e.Total:
			fmt.Fprintf(w, "[%s] %s %d/%d\n", id, e.Stage, e.Current, e.Total)
		}
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
