package uncertainty_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvlca/uncertainty"
)

func draws(t *testing.T, d uncertainty.Descriptor, seed uint64, n int) []float64 {
	t.Helper()
	s, err := uncertainty.NewSampler(d, uncertainty.NewSource(seed))
	require.NoError(t, err)
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Sample()
	}

	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}

	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	c := append([]float64(nil), xs...)
	sort.Float64s(c)

	return c[len(c)/2]
}

func TestValidate(t *testing.T) {
	normal := uncertainty.New(uncertainty.Normal)
	normal.Loc, normal.Scale = 1, 0.1
	require.NoError(t, normal.Validate())

	bad := normal
	bad.Scale = 0
	assert.ErrorIs(t, bad.Validate(), uncertainty.ErrInvalidParameters)

	tri := uncertainty.New(uncertainty.Triangular)
	tri.Minimum, tri.Loc, tri.Maximum = 0, 2, 1
	assert.ErrorIs(t, tri.Validate(), uncertainty.ErrInvalidParameters)

	uni := uncertainty.New(uncertainty.Uniform)
	uni.Minimum = 1
	assert.ErrorIs(t, uni.Validate(), uncertainty.ErrInvalidParameters)

	assert.ErrorIs(t, uncertainty.New(uncertainty.ID(42)).Validate(), uncertainty.ErrUnknownDistribution)
	assert.ErrorIs(t, uncertainty.New(uncertainty.Undefined).Validate(), uncertainty.ErrInvalidParameters)
	require.NoError(t, uncertainty.Fixed(3).Validate())
}

func TestAmount(t *testing.T) {
	assert.InDelta(t, -2, uncertainty.NewLognormal(-2, 0.1).Amount(), 1e-12)
	assert.Equal(t, 3.0, uncertainty.Fixed(3).Amount())
	assert.False(t, uncertainty.Fixed(3).IsUncertain())
	assert.True(t, uncertainty.NewLognormal(1, 0.1).IsUncertain())
	assert.Equal(t, "lognormal", uncertainty.Lognormal.String())
}

func TestSampler_Deterministic(t *testing.T) {
	d := uncertainty.NewLognormal(2, 0.3)
	a := draws(t, d, 42, 50)
	b := draws(t, d, 42, 50)
	c := draws(t, d, 43, 50)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSampler_Fixed(t *testing.T) {
	for _, v := range draws(t, uncertainty.Fixed(7), 1, 10) {
		assert.Equal(t, 7.0, v)
	}
}

func TestSampler_Moments(t *testing.T) {
	normal := uncertainty.New(uncertainty.Normal)
	normal.Loc, normal.Scale = 5, 1
	assert.InDelta(t, 5, mean(draws(t, normal, 7, 20000)), 0.05)

	ln := uncertainty.NewLognormal(-4, 0.2)
	xs := draws(t, ln, 7, 20000)
	assert.InDelta(t, -4, median(xs), 0.05)
	for _, x := range xs {
		require.Less(t, x, 0.0)
	}

	gev := uncertainty.New(uncertainty.GeneralizedExtremeValue)
	gev.Loc, gev.Scale, gev.Shape = 0, 1, 0
	assert.InDelta(t, -math.Log(math.Log(2)), median(draws(t, gev, 7, 20000)), 0.05)

	gamma := uncertainty.New(uncertainty.Gamma)
	gamma.Shape, gamma.Scale, gamma.Loc = 2, 3, 1
	assert.InDelta(t, 7, mean(draws(t, gamma, 7, 20000)), 0.2)
}

func TestSampler_Bounds(t *testing.T) {
	d := uncertainty.New(uncertainty.Normal)
	d.Loc, d.Scale, d.Minimum, d.Maximum = 5, 1, 4.5, 5.5
	for _, x := range draws(t, d, 3, 1000) {
		require.GreaterOrEqual(t, x, 4.5)
		require.LessOrEqual(t, x, 5.5)
	}

	du := uncertainty.New(uncertainty.DiscreteUniform)
	du.Maximum = 3
	for _, x := range draws(t, du, 3, 1000) {
		require.Contains(t, []float64{0, 1, 2}, x)
	}

	b := uncertainty.New(uncertainty.Bernoulli)
	b.Loc, b.Minimum, b.Maximum = 15, 10, 20
	for _, x := range draws(t, b, 3, 200) {
		require.Contains(t, []float64{10, 20}, x)
	}

	beta := uncertainty.New(uncertainty.Beta)
	beta.Loc, beta.Shape, beta.Minimum, beta.Maximum = 2, 2, 10, 20
	for _, x := range draws(t, beta, 3, 1000) {
		require.GreaterOrEqual(t, x, 10.0)
		require.LessOrEqual(t, x, 20.0)
	}
}

func TestPedigreeSigma(t *testing.T) {
	s, err := uncertainty.PedigreeSigma(uncertainty.Pedigree{1, 1, 1, 1, 1, 1}, math.NaN())
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(uncertainty.DefaultBasicVariance), s, 1e-15)

	s, err = uncertainty.PedigreeSigma(uncertainty.Pedigree{2, 3, 4, 5, 1, 1}, 0.0006)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(0.0118), s, 1e-12)

	_, err = uncertainty.PedigreeSigma(uncertainty.Pedigree{0, 1, 1, 1, 1, 1}, 0)
	assert.ErrorIs(t, err, uncertainty.ErrInvalidPedigree)

	d, err := uncertainty.FromPedigree(-3, uncertainty.Pedigree{1, 1, 1, 1, 1, 1}, 0.01)
	require.NoError(t, err)
	assert.Equal(t, uncertainty.Lognormal, d.Type)
	assert.True(t, d.Negative)
	assert.InDelta(t, 0.1, d.Scale, 1e-12)
}

func TestDeriveSeed(t *testing.T) {
	a := uncertainty.DeriveSeed(42, "technosphere")
	assert.Equal(t, a, uncertainty.DeriveSeed(42, "technosphere"))
	assert.NotEqual(t, a, uncertainty.DeriveSeed(42, "biosphere"))
	assert.NotEqual(t, a, uncertainty.DeriveSeed(43, "technosphere"))
}
