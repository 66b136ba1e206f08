// Package lvlca is the compute core of a life-cycle assessment (LCA)
// workbench: it turns an inventory of activities, exchanges and impact
// methods into scores, contributions and uncertainty distributions.
//
// What is in the box?
//
//	A pure-Go, in-memory engine that brings together:
//		• Inventory: keyed nodes and exchanges behind a read-only Provider,
//		  held in memory or persisted to SQLite
//		• Parameters: project, database and activity formulas evaluated in
//		  dependency order
//		• Assembly: technosphere (A), biosphere (B) and characterization
//		  matrices with stable row/column dictionaries
//		• Solving: pivoted LU with a lazily refreshed factorization cache
//		• Multi-LCA: functional units × methods × scenarios score tensors
//		• Scenarios: CSV/Excel superstructure tables, validated, combined and
//		  overlaid onto A and B
//		• Monte-Carlo: seeded, reproducible sampling of exchanges, factors
//		  and parameters
//
// The equations are the usual ones:
//
//	s = A⁻¹ f          supply
//	g = B · diag(s)    inventory
//	h = Σ C_m · g      score of method m
//
// Packages:
//
//	inventory/    Key, Node, Exchange, Method, Parameter; Store; YAML snapshots
//	inventory/sqlitestore/  the same snapshot in SQLite (goose migrations)
//	depgraph/     directed string graph, reachability, topological order
//	formula/      parameter formula language
//	uncertainty/  distributions, pedigree matrix, seeded samplers
//	parameters/   parameter engine
//	matrix/       Sparse storage, sparse LU factorization
//	assembly/     matrix assembly and dictionaries
//	lca/          solver
//	multilca/     calculation setups and result tensors
//	scenario/     scenario tables and overlay plans
//	contrib/      contribution rankings
//	montecarlo/   uncertainty analysis
//	session/      run context: logging, progress, cancellation
//	config/       runtime configuration of the command
//	cmd/lvlca/    command-line front end
//
//	go install github.com/katalvlaran/lvlca/cmd/lvlca@latest
package lvlca
