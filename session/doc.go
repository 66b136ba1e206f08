// Package session is the explicit run context of the compute core.
//
// A Session binds an inventory provider to a logger and a progress sink and
// drives the calculation packages (multilca, scenario, montecarlo,
// parameters) on behalf of a host. Every run gets its own identifier; its
// progress events carry that identifier and the run is always closed by
// exactly one terminal event (progress.Finished or progress.Canceled).
//
// There is no package state: two sessions over different providers are
// fully independent. A single Session runs one calculation at a time.
package session
