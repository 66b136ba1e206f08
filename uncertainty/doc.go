// Package uncertainty implements the standard catalogue of uncertainty
// distributions attached to exchanges, characterization factors and
// parameters.
//
// Distribution identifiers follow the established numbering used by LCA
// databases (0 undefined … 12 Student's t). A Descriptor carries the raw
// fields {loc, scale, shape, minimum, maximum, negative}; fields irrelevant to
// the chosen distribution are NaN.
//
// Sampling is backed by gonum's stat/distuv and driven by an explicit
// math/rand/v2 Source so that runs are reproducible from a seed. Bounded
// distributions (minimum/maximum set on a distribution that is otherwise
// unbounded) are sampled by rejection.
//
// Pedigree scores are converted to a lognormal sigma with the usual table of
// log-variance contributions; see PedigreeSigma.
package uncertainty
