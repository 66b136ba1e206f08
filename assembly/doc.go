// Package assembly builds the sparse technosphere (A) and biosphere (B)
// matrices, per-method characterization vectors and the three index
// dictionaries (activities → columns, products → rows, flows → rows) from an
// inventory.Provider.
//
// Sign convention of A:
//
//	production    A[row(input), col(output)] += amount
//	technosphere  A[row(input), col(output)] -= amount
//	substitution  A[row(input), col(output)] += amount
//
// Activities without a production exchange get a unit diagonal. Parallel
// exchanges between the same pair of nodes sum up. Every exchange keeps a
// Coord record (matrix, row, col, sign, base amount, uncertainty) so that
// scenario overlays, parameter recalculation and Monte-Carlo resampling can
// rewrite matrix cells without looking up keys again.
package assembly
