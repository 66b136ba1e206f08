package uncertainty

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// maxRejections bounds rejection sampling of truncated distributions; the
// last draw is clamped into range when the budget is exhausted.
const maxRejections = 100

// Sampler draws values of one Descriptor from a shared source.
type Sampler struct {
	d    Descriptor
	rng  *rand.Rand
	draw func() float64
}

// NewSampler validates d and binds it to src.
func NewSampler(d Descriptor, src rand.Source) (*Sampler, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s := &Sampler{d: d, rng: rand.New(src)}
	switch d.Type {
	case Undefined, NoUncertainty:
		v := d.Loc
		s.draw = func() float64 { return v }
	case Lognormal:
		dist := distuv.LogNormal{Mu: d.Loc, Sigma: d.Scale, Src: src}
		s.draw = dist.Rand
	case Normal:
		dist := distuv.Normal{Mu: d.Loc, Sigma: d.Scale, Src: src}
		s.draw = dist.Rand
	case Uniform:
		dist := distuv.Uniform{Min: d.Minimum, Max: d.Maximum, Src: src}
		s.draw = dist.Rand
	case Triangular:
		dist := distuv.NewTriangle(d.Minimum, d.Maximum, d.Loc, src)
		s.draw = dist.Rand
	case Bernoulli:
		dist := distuv.Bernoulli{P: d.probability(), Src: src}
		lo, hi := 0.0, 1.0
		if isFinite(d.Minimum) && isFinite(d.Maximum) {
			lo, hi = d.Minimum, d.Maximum
		}
		s.draw = func() float64 {
			if dist.Rand() == 1 {
				return hi
			}
			return lo
		}
	case DiscreteUniform:
		lo, hi := d.bounds(0, d.Maximum)
		s.draw = func() float64 { return math.Floor(lo + s.rng.Float64()*(hi-lo)) }
	case Weibull:
		scale := d.Scale
		if math.IsNaN(scale) {
			scale = 1
		}
		offset := zeroIfNaN(d.Loc)
		dist := distuv.Weibull{K: d.Shape, Lambda: scale, Src: src}
		s.draw = func() float64 { return offset + dist.Rand() }
	case Gamma:
		offset := zeroIfNaN(d.Loc)
		dist := distuv.Gamma{Alpha: d.Shape, Beta: 1 / d.Scale, Src: src}
		s.draw = func() float64 { return offset + dist.Rand() }
	case Beta:
		lo, hi := d.bounds(0, 1)
		dist := distuv.Beta{Alpha: d.Loc, Beta: d.Shape, Src: src}
		s.draw = func() float64 { return lo + (hi-lo)*dist.Rand() }
	case GeneralizedExtremeValue:
		mu, sigma, xi := d.Loc, d.Scale, d.Shape
		s.draw = func() float64 { return gevQuantile(s.uniformOpen(), mu, sigma, xi) }
	case StudentsT:
		scale := d.Scale
		if math.IsNaN(scale) {
			scale = 1
		}
		dist := distuv.StudentsT{Mu: zeroIfNaN(d.Loc), Sigma: scale, Nu: d.Shape, Src: src}
		s.draw = dist.Rand
	}

	return s, nil
}

// Descriptor returns the bound descriptor.
func (s *Sampler) Descriptor() Descriptor { return s.d }

// Sample draws one value, honoring bounds and the Negative flag.
func (s *Sampler) Sample() float64 {
	v := s.bounded()
	if s.d.Negative && s.d.Type == Lognormal {
		v = -v
	}

	return v
}

// bounded applies rejection sampling for distributions whose natural support
// is wider than [Minimum, Maximum].
func (s *Sampler) bounded() float64 {
	switch s.d.Type {
	case Lognormal, Normal, Weibull, Gamma, GeneralizedExtremeValue, StudentsT:
	default:
		return s.draw()
	}
	if !s.d.hasBounds() {
		return s.draw()
	}
	lo, hi := s.d.bounds(math.Inf(-1), math.Inf(1))
	if s.d.Type == Lognormal && s.d.Negative {
		// signed bounds of a negative lognormal mirror onto the magnitude
		lo, hi = -hi, -lo
	}
	var v float64
	for i := 0; i < maxRejections; i++ {
		if v = s.draw(); v >= lo && v <= hi {
			return v
		}
	}

	return math.Max(lo, math.Min(hi, v))
}

// uniformOpen returns a uniform draw in (0, 1).
func (s *Sampler) uniformOpen() float64 {
	for {
		if u := s.rng.Float64(); u > 0 {
			return u
		}
	}
}

// gevQuantile is the inverse CDF of the generalized extreme value
// distribution with location mu, scale sigma and shape xi.
func gevQuantile(u, mu, sigma, xi float64) float64 {
	l := -math.Log(u)
	if xi == 0 {
		return mu - sigma*math.Log(l)
	}

	return mu + sigma*(math.Pow(l, -xi)-1)/xi
}

func zeroIfNaN(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}

	return x
}

// NewSource returns a PCG source seeded from seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, splitmix(seed))
}

// DeriveSeed derives an independent sub-seed for a named stream, so that
// enabling or disabling one stream never shifts the draws of another.
func DeriveSeed(root uint64, stream string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stream))

	return splitmix(root ^ h.Sum64())
}

// splitmix is one round of the SplitMix64 finalizer.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb

	return x ^ (x >> 31)
}
