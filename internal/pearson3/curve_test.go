package pearson3_test

import (
	"math"
	"testing"

	"github.com/couchcryptid/flood-frequency/internal/pearson3"
	"github.com/stretchr/testify/assert"
)

func TestCurve_ValueFromProb(t *testing.T) {
	c := pearson3.Curve{Mean: 100, CV: 1, CS: 2}

	assert.InDelta(t, 460.517019, c.ValueFromProb(0.01), 1e-5)
	assert.InDelta(t, 69.314718, c.ValueFromProb(0.5), 1e-5)
	assert.InDelta(t, 1.005034, c.ValueFromProb(0.99), 1e-5)
}

func TestCurve_ValueFromProb_OutOfRange(t *testing.T) {
	c := pearson3.Curve{Mean: 100, CV: 1, CS: 2}

	assert.True(t, math.IsNaN(c.ValueFromProb(2)))
	assert.True(t, math.IsNaN(c.ValueFromProb(-0.1)))
	assert.True(t, math.IsNaN(c.ValueFromProb(math.NaN())))
}

func TestCurve_ProbFromValue(t *testing.T) {
	c := pearson3.Curve{Mean: 100, CV: 1, CS: 2}

	assert.InDelta(t, 0.60653066, c.ProbFromValue(50), 1e-7)
	assert.InDelta(t, 0.36787944, c.ProbFromValue(100), 1e-7)
	assert.InDelta(t, 0.13533528, c.ProbFromValue(200), 1e-7)
}

func TestCurve_NegativeSkew(t *testing.T) {
	c := pearson3.Curve{Mean: 100, CV: 1, CS: -2}

	// The standardized P-III with skew -2 is the reflection of skew +2:
	// its median is 1-ln2.
	assert.InDelta(t, (1-math.Ln2+1)*50*2, c.ValueFromProb(0.5), 1e-6)
	assert.InDelta(t, 0.5, c.ProbFromValue(c.ValueFromProb(0.5)), 1e-9)
}

func TestCurve_ZeroSkewIsNormal(t *testing.T) {
	c := pearson3.Curve{Mean: 100, CV: 0.5, CS: 0}

	assert.InDelta(t, 100, c.ValueFromProb(0.5), 1e-9)
	// Symmetric tails around the mean.
	assert.InDelta(t, 200, c.ValueFromProb(0.1)+c.ValueFromProb(0.9), 1e-9)
	assert.InDelta(t, 0.5, c.ProbFromValue(100), 1e-9)
}

func TestCurve_RoundTrip(t *testing.T) {
	curves := []pearson3.Curve{
		{Mean: 100, CV: 1, CS: 2},
		{Mean: 1000, CV: 0.5, CS: 1},
		{Mean: 42, CV: 0.3, CS: -1.5},
		{Mean: 250, CV: 0.8, CS: 0.1},
	}
	probs := []float64{0.001, 0.01, 0.1, 0.5, 0.9, 0.99, 0.999}

	for _, c := range curves {
		for _, p := range probs {
			v := c.ValueFromProb(p)
			assert.InDelta(t, p, c.ProbFromValue(v), 1e-8,
				"round trip for p=%g on %+v", p, c)
		}
	}
}

func TestCurve_ExceedanceDecreasesWithValue(t *testing.T) {
	c := pearson3.Curve{Mean: 500, CV: 0.6, CS: 1.2}
	prev := 1.0
	for v := 50.0; v <= 3000; v += 50 {
		p := c.ProbFromValue(v)
		assert.LessOrEqual(t, p, prev, "exceedance must not increase at v=%g", v)
		prev = p
	}
}
