// Package montecarlo propagates input uncertainty through a multi-LCA
// calculation.
//
// Every iteration draws new amounts for the uncertain exchanges of A and B,
// optionally samples uncertain parameters and re-evaluates parameterized
// exchanges (their values win over raw exchange draws on the same
// exchange), optionally samples characterization factors, and records one
// score per (functional unit, method).
//
// Each stream (technosphere, biosphere, cf, parameters) draws from its own
// source derived from the root seed, so the same seed reproduces the same
// scores bit for bit, and toggling one stream leaves the draws of the other
// streams unchanged.
package montecarlo
