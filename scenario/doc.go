// Package scenario ingests superstructure scenario tables and turns them into
// matrix overlays.
//
// A table is a tall list of exchanges (from, to, flow type) with one numeric
// column per scenario. The Engine fills missing keys from node metadata,
// infers flow types, resolves duplicates, merges technosphere self-loops into
// their production entry and checks the numeric columns. Several prepared
// tables are combined either as a cartesian product of their scenario axes
// or as the intersection of their scenario names.
//
// A Plan precomputes, once per run, the (row, col, matrix, flip) target of
// every table row plus a dense rows×scenarios value matrix. Applying a
// scenario is then a gather and scatter: concrete cells are set (never
// added) and NaN cells restore the assembled base value, so applying the same
// scenario twice is idempotent and the result never depends on the scenario
// applied before.
package scenario
