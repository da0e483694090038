package pearson3

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

const (
	defaultMaxIterations = 2000
	defaultTolerance     = 1e-10
)

// FitOptions configures the least-squares refinement.
type FitOptions struct {
	// FixMean holds the mean at its initial value instead of fitting it.
	FixMean bool
	// SkewRatio, when set, constrains CS = CV * ratio instead of fitting the
	// skewness as a free parameter.
	SkewRatio *float64
	// Moments seeds the solver; nil estimates them from the series.
	Moments *Moments
	// MaxIterations bounds the solver; 0 uses the default budget.
	MaxIterations int
	// Tolerance is the absolute function-convergence tolerance; 0 uses the
	// default.
	Tolerance float64
}

// FitCurve refines the P-III moments by nonlinear least squares, minimizing
// the squared residuals between the curve's quantile function and the
// series' empirical (probability, value) pairs. The free parameter subset is
// selected by FixMean and SkewRatio; the remaining moments are held at (or
// derived from) the initial guess. Convergence failure surfaces as *FitError.
func FitCurve(s *Series, opts FitOptions) (Curve, error) {
	m, err := initialMoments(s, opts)
	if err != nil {
		return Curve{}, err
	}

	build, x0 := parameterize(m, opts)

	probs := s.Probabilities()
	values := s.Values()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			c := build(x)
			var sse float64
			for i, p := range probs {
				d := c.ValueFromProb(p) - values[i]
				sse += d * d
			}
			return sse
		},
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	tol := opts.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: 50,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		status := "solver error"
		if result != nil {
			status = result.Status.String()
		}
		return Curve{}, &FitError{Status: status, Err: err}
	}
	if result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit {
		return Curve{}, &FitError{Status: result.Status.String()}
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Curve{}, &FitError{Status: "non-finite parameters"}
		}
	}

	return build(result.X), nil
}

func initialMoments(s *Series, opts FitOptions) (Moments, error) {
	if opts.Moments != nil {
		return *opts.Moments, nil
	}
	return EstimateMoments(s)
}

// parameterize maps the option flags onto one of the four parameter
// configurations: (mean, cv, cs), (cv, cs), (mean, cv) with derived cs, or
// (cv) with derived cs.
func parameterize(m Moments, opts FitOptions) (func(x []float64) Curve, []float64) {
	switch {
	case opts.SkewRatio == nil && !opts.FixMean:
		return func(x []float64) Curve {
			return Curve{Mean: x[0], CV: x[1], CS: x[2]}
		}, []float64{m.Mean, m.CV, m.CS}

	case opts.SkewRatio == nil:
		return func(x []float64) Curve {
			return Curve{Mean: m.Mean, CV: x[0], CS: x[1]}
		}, []float64{m.CV, m.CS}

	case !opts.FixMean:
		ratio := *opts.SkewRatio
		return func(x []float64) Curve {
			return Curve{Mean: x[0], CV: x[1], CS: x[1] * ratio}
		}, []float64{m.Mean, m.CV}

	default:
		ratio := *opts.SkewRatio
		return func(x []float64) Curve {
			return Curve{Mean: m.Mean, CV: x[0], CS: x[0] * ratio}
		}, []float64{m.CV}
	}
}
