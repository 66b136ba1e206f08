package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/lvlca/assembly"
	"github.com/katalvlaran/lvlca/inventory"
	"github.com/katalvlaran/lvlca/multilca"
	"github.com/katalvlaran/lvlca/parameters"
	"github.com/katalvlaran/lvlca/progress"
	"github.com/katalvlaran/lvlca/uncertainty"
)

// Stream names, used to derive one seed per stream from the root seed.
const (
	StreamTechnosphere = "technosphere"
	StreamBiosphere    = "biosphere"
	StreamCF           = "cf"
	StreamParameters   = "parameters"
)

type exchangeSampler struct {
	id int
	s  *uncertainty.Sampler
}

type factorSampler struct {
	factor int // index into Characterization.Factors
	s      *uncertainty.Sampler
}

type paramSampler struct {
	name parameters.Name
	s    *uncertainty.Sampler
}

// MonteCarlo runs seeded iterations over one calculation setup. It owns
// its matrices and is not safe for concurrent use.
type MonteCarlo struct {
	m       *multilca.MLCA
	engine  *parameters.Engine
	include Include
	seed    uint64
	o       options

	tech, bio []exchangeSampler
	cfs       [][]factorSampler
	params    []paramSampler
}

// New prepares a Monte-Carlo run: it builds the calculation and one sampler
// per uncertain input of the included streams.
//
// Errors:
//   - the errors of multilca.New.
//   - ErrExchangeErrorValues for a descriptor that cannot be sampled.
func New(ctx context.Context, prov inventory.Provider, setup multilca.Setup, include Include, seed uint64, opts ...Option) (*MonteCarlo, error) {
	o := gather(opts)
	mc := &MonteCarlo{include: include, seed: seed, o: o}

	mopts := slices.Clone(o.mlca)
	mopts = append(mopts, multilca.WithLogger(o.log))
	if include.Parameters {
		e, err := parameters.New(prov)
		if err != nil {
			return nil, fmt.Errorf("montecarlo.New: %w", err)
		}
		mc.engine = e
		mopts = append(mopts, multilca.WithParameterEngine(e))
	}
	m, err := multilca.New(ctx, prov, setup, mopts...)
	if err != nil {
		return nil, err
	}
	mc.m = m
	if err = mc.bind(); err != nil {
		return nil, fmt.Errorf("montecarlo.New: %w", err)
	}
	o.log.Info("monte carlo prepared",
		"seed", seed,
		"technosphere", len(mc.tech),
		"biosphere", len(mc.bio),
		"parameters", len(mc.params))

	return mc, nil
}

func (mc *MonteCarlo) bind() error {
	mats := mc.m.Matrices()
	var err error
	if mc.include.Technosphere {
		src := uncertainty.NewSource(uncertainty.DeriveSeed(mc.seed, StreamTechnosphere))
		if mc.tech, err = exchangeSamplers(mats, assembly.Technosphere, mc.o.basicVariance, src); err != nil {
			return err
		}
	}
	if mc.include.Biosphere {
		src := uncertainty.NewSource(uncertainty.DeriveSeed(mc.seed, StreamBiosphere))
		if mc.bio, err = exchangeSamplers(mats, assembly.Biosphere, mc.o.basicVariance, src); err != nil {
			return err
		}
	}
	if mc.include.CF {
		src := uncertainty.NewSource(uncertainty.DeriveSeed(mc.seed, StreamCF))
		mc.cfs = make([][]factorSampler, len(mc.m.Characterizations()))
		for k, c := range mc.m.Characterizations() {
			for i, f := range c.Factors {
				if f.Uncertainty == nil || !f.Uncertainty.IsUncertain() {
					continue
				}
				s, err := uncertainty.NewSampler(*f.Uncertainty, src)
				if err != nil {
					return fmt.Errorf("%w: method %v, flow %v: %w", ErrExchangeErrorValues, c.Method, f.Flow, err)
				}
				mc.cfs[k] = append(mc.cfs[k], factorSampler{factor: i, s: s})
			}
		}
	}
	if mc.include.Parameters {
		src := uncertainty.NewSource(uncertainty.DeriveSeed(mc.seed, StreamParameters))
		for _, p := range mc.engine.Parameters() {
			var d uncertainty.Descriptor
			switch {
			case p.Uncertainty != nil && p.Uncertainty.IsUncertain():
				d = *p.Uncertainty
			case p.Pedigree != nil && p.Amount != 0:
				if d, err = uncertainty.FromPedigree(p.Amount, *p.Pedigree, mc.o.basicVariance); err != nil {
					return fmt.Errorf("%w: parameter %s/%s: %w", ErrExchangeErrorValues, p.Group, p.Name, err)
				}
			default:
				continue
			}
			s, err := uncertainty.NewSampler(d, src)
			if err != nil {
				return fmt.Errorf("%w: parameter %s/%s: %w", ErrExchangeErrorValues, p.Group, p.Name, err)
			}
			mc.params = append(mc.params, paramSampler{name: parameters.Name{Group: p.Group, Name: p.Name}, s: s})
		}
	}

	return nil
}

func exchangeSamplers(mats *assembly.Matrices, k assembly.Kind, basicVariance float64, src rand.Source) ([]exchangeSampler, error) {
	coords, err := mats.Uncertain(k, basicVariance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeErrorValues, err)
	}
	out := make([]exchangeSampler, 0, len(coords))
	for _, c := range coords {
		s, err := uncertainty.NewSampler(c.Descriptor, src)
		if err != nil {
			return nil, fmt.Errorf("%w: exchange %d: %w", ErrExchangeErrorValues, c.ExchangeID, err)
		}
		out = append(out, exchangeSampler{id: c.ExchangeID, s: s})
	}

	return out, nil
}

// MLCA returns the underlying calculation.
func (mc *MonteCarlo) MLCA() *multilca.MLCA { return mc.m }

// Seed returns the root seed.
func (mc *MonteCarlo) Seed() uint64 { return mc.seed }

// Run performs n iterations. The matrices and pinned parameters are
// restored to their assembled state afterwards, so consecutive runs on the
// same MonteCarlo continue the random streams but start from the same
// base system.
//
// Errors:
//   - ErrNoIterations, ctx.Err(), ErrExchangeErrorValues for a non-finite
//     draw, *multilca.CalculationError for a failed solve.
func (mc *MonteCarlo) Run(ctx context.Context, n int) (*Results, error) {
	if n < 1 {
		return nil, ErrNoIterations
	}
	defer mc.restore()

	setup := mc.m.Setup()
	res := &Results{
		Seed:            mc.seed,
		Include:         mc.include,
		FunctionalUnits: setup.Inv,
		Methods:         setup.IA,
		Scores:          make([][][]float64, n),
	}
	chars := mc.m.Characterizations()
	diags := make([][]float64, len(chars))
	for k, c := range chars {
		diags[k] = slices.Clone(c.Diag)
	}

	for it := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mc.o.progress.Report(progress.MCIter, it, n)
		if err := mc.next(res); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", it, err)
		}
		mc.sampleCFs(chars, diags)
		if mc.o.snapshots {
			mats := mc.m.Matrices()
			res.Technosphere = append(res.Technosphere, mats.Technosphere.CloneSparse())
			res.Biosphere = append(res.Biosphere, mats.Biosphere.CloneSparse())
		}
		scores, err := mc.score(ctx, it, diags)
		if err != nil {
			return nil, err
		}
		res.Scores[it] = scores
	}
	mc.o.progress.Report(progress.MCIter, n, n)
	mc.o.progress.Report(progress.Finalize, 1, 1)
	mc.o.log.Info("monte carlo finished", "iterations", n, "factorizations", mc.m.Solver().Factorizations())

	return res, nil
}

// next draws the exchange and parameter samples of one iteration and
// rewrites A and B.
func (mc *MonteCarlo) next(res *Results) error {
	amounts := make(map[int]float64, len(mc.tech)+len(mc.bio))
	for _, group := range [][]exchangeSampler{mc.tech, mc.bio} {
		for _, x := range group {
			v := x.s.Sample()
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: exchange %d drew %v", ErrExchangeErrorValues, x.id, v)
			}
			amounts[x.id] = v
		}
	}
	if mc.include.Parameters {
		pins := make(map[parameters.Name]float64, len(mc.params))
		for _, p := range mc.params {
			pins[p.name] = p.s.Sample()
		}
		if _, err := mc.engine.Update(pins); err != nil {
			return err
		}
		evaluated, err := mc.engine.RecalculateAll()
		if err != nil {
			return err
		}
		// Parameterized amounts win over raw draws of the same exchange.
		for _, x := range evaluated.Exchanges {
			amounts[x.ExchangeID] = x.Amount
		}
		res.record(evaluated.Flatten())
	}
	if _, err := mc.m.Matrices().Rewrite(amounts); err != nil {
		return err
	}

	return nil
}

// sampleCFs recomputes the diagonal rows that carry uncertain factors.
func (mc *MonteCarlo) sampleCFs(chars []*assembly.Characterization, diags [][]float64) {
	for k, samplers := range mc.cfs {
		if len(samplers) == 0 {
			continue
		}
		drawn := make(map[int]float64, len(samplers))
		for _, fs := range samplers {
			drawn[fs.factor] = fs.s.Sample()
		}
		rows := make(map[int]float64)
		for i, f := range chars[k].Factors {
			v := f.Amount
			if d, ok := drawn[i]; ok {
				v = d
			}
			rows[f.Row] += v
		}
		for row, v := range rows {
			diags[k][row] = v
		}
	}
}

// score returns scores[u][m] of the current matrices.
func (mc *MonteCarlo) score(ctx context.Context, it int, diags [][]float64) ([][]float64, error) {
	solver := mc.m.Solver()
	out := make([][]float64, len(mc.m.Demands()))
	for u, d := range mc.m.Demands() {
		supply, err := solver.RedoLCI(d)
		if err != nil {
			return nil, &multilca.CalculationError{Scenario: it, FunctionalUnit: u, Method: -1, Err: err}
		}
		inv, err := solver.Biosphere().MulVec(supply)
		if err != nil {
			return nil, &multilca.CalculationError{Scenario: it, FunctionalUnit: u, Method: -1, Err: err}
		}
		out[u] = make([]float64, len(diags))
		for k, c := range diags {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			out[u][k] = floats.Dot(c, inv)
		}
	}

	return out, nil
}

func (mc *MonteCarlo) restore() {
	if mc.engine != nil {
		mc.engine.Reset()
	}
	if _, err := mc.m.Matrices().Reset(); err != nil {
		mc.o.log.Warn("restoring assembled matrices", "error", err)
	}
}
