// Package parameters evaluates project, database and activity parameters
// and the formulas of parameterized exchanges.
//
// Scopes nest project ⊂ database ⊂ activity: a formula sees its own scope
// first, then every broader one, so a narrower name shadows a broader name.
// Activity groups are isolated from each other.
//
// Within one scope parameters are ordered topologically by the names their
// formulas reference (depgraph.TopologicalSort); a cycle fails with a
// *CycleError (ErrFormulaCycle) and an unresolved name with a
// *formula.MissingSymbolError (formula.ErrMissingSymbol). Division by zero
// evaluates to NaN, which callers treat as "keep the base value".
package parameters
