// Package multilca runs LCA calculations over the cartesian product of
// functional units and impact methods, optionally along a scenario axis.
//
// An MLCA assembles the matrices once, factorizes A once and then loops over
// (functional unit, method), writing scores and contribution tensors in that
// order. A ScenarioMLCA adds an outer loop over scenarios: before each
// scenario it applies an Overlay to A and B in place, which invalidates the
// factorization only when A actually changed.
//
// Failures inside the loops abort the whole run with a *CalculationError
// naming the offending indices; partial tensors are never returned.
package multilca
