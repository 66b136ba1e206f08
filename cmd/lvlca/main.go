// Command lvlca runs life-cycle assessment calculations over a YAML or
// SQLite inventory snapshot.
//
//	lvlca calc --inventory inv.yaml --setup setup.yaml --scenario low-high.csv
//	lvlca mc --inventory inv.db --setup setup.toml --iterations 500 --include technosphere,cf
//	lvlca params --inventory inv.yaml
//	lvlca import --from inv.yaml --to inv.db
//	lvlca scenario template --inventory inv.yaml --activity db:electricity --names low,high
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
