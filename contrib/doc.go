// Package contrib ranks the contributors behind multi-LCA scores.
//
// What:
//
//   - Contributions: one (functional unit, method, scenario) cell of the
//     process or flow contribution tensor, optionally grouped by a node
//     metadata field, reduced to its top contributors plus the positive and
//     negative rests.
//   - ByFunctionalUnit / ByMethod: the same reduction along one axis of the
//     tensor (all functional units for a method, or all methods for a
//     functional unit).
//
// Invariant: Σ Top[i].Value + RestPositive + RestNegative equals the score
// of the cell, so stacked bars stay faithful when contributions have mixed
// signs.
//
// Normalization:
//
//   - Total: relative values are divided by the signed score.
//   - Range: relative values are divided by Σ|value|, so they add up to
//     at most 1 in absolute value even when positive and negative
//     contributions cancel out.
package contrib
