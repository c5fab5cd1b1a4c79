package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"famreg/pkg/core"
	"famreg/pkg/data"
	"famreg/pkg/optim"
)

// glmFamily is an exponential-family distribution paired with the log link.
type glmFamily interface {
	family() Family
	// variance is V(μ), the variance function up to the dispersion.
	variance(mu float64) float64
	// start is the initial μ for one observation.
	start(y float64) float64
	devResid(y, mu float64) float64
	validate(y []float64) error
	// logLik is the log-likelihood at the fitted means.
	logLik(y, mu []float64, dev float64) float64
	// estimatesDispersion reports whether φ is estimated from the data.
	estimatesDispersion() bool
}

// GLM fits a log-link generalised linear model by iteratively reweighted
// least squares.
type GLM struct {
	fam      glmFamily
	settings optim.Settings
}

// newGLM returns an IRLS fitter for the given family.
func newGLM(fam glmFamily, opts ...Option) *GLM {
	s := optim.IRLSDefaults()
	for _, o := range opts {
		o(&s)
	}
	return &GLM{fam: fam, settings: s}
}

// Family returns the distribution family.
func (g *GLM) Family() Family { return g.fam.family() }

// Fit runs IRLS until the relative deviance change drops below the tolerance.
func (g *GLM) Fit(ds *data.Dataset, predictors []string, response string) (*FittedModel, error) {
	fam := g.fam.family()
	y, ok := ds.Float(response)
	if !ok {
		return nil, fmt.Errorf("%s: dataset has no response column %q", fam, response)
	}
	if err := g.fam.validate(y); err != nil {
		return nil, fmt.Errorf("%s: %w", fam, err)
	}
	design, err := core.NewDesign(ds, predictors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fam, err)
	}
	X := design.Reduced()
	n, rank := X.Dims()

	mu := make([]float64, n)
	eta := make([]float64, n)
	for i, yi := range y {
		mu[i] = g.fam.start(yi)
		eta[i] = math.Log(mu[i])
	}
	devOld := g.deviance(y, mu)

	var (
		beta      []float64
		dev       float64
		iter      int
		converged bool
	)
	w := make([]float64, n)
	z := make([]float64, n)
	for iter = 1; iter <= g.settings.MaxIter; iter++ {
		g.working(y, mu, eta, w, z)
		beta, err = solveNormal(core.WeightedGram(X, w), core.WeightedCross(X, w, z))
		if err != nil {
			return nil, &ConvergenceError{Family: fam, Iterations: iter, Reason: err.Error()}
		}
		eta = core.LinearPredictor(X, beta)
		for i := range eta {
			mu[i] = math.Exp(eta[i])
		}
		dev = g.deviance(y, mu)
		if math.IsNaN(dev) || math.IsInf(dev, 0) {
			return nil, &ConvergenceError{Family: fam, Iterations: iter, Reason: "deviance is not finite"}
		}
		if optim.DevianceConverged(dev, devOld, g.settings.Tolerance) {
			converged = true
			break
		}
		devOld = dev
	}
	if !converged {
		return nil, &ConvergenceError{Family: fam, Iterations: g.settings.MaxIter, Reason: "iteration limit reached"}
	}

	// unscaled covariance at the converged means
	g.working(y, mu, eta, w, z)
	unscaled, err := invertSym(core.WeightedGram(X, w))
	if err != nil {
		return nil, &ConvergenceError{Family: fam, Iterations: iter, Reason: err.Error()}
	}

	dfRes := n - rank
	phi := 1.0
	params := rank
	statName := "z value"
	if g.fam.estimatesDispersion() {
		phi = math.NaN()
		if dfRes > 0 {
			phi = pearsonChi2(y, mu, g.fam.variance) / float64(dfRes)
		}
		params++
		statName = "t value"
	}

	ll := g.fam.logLik(y, mu, dev)
	stats := FitStats{
		NObs:          n,
		Rank:          rank,
		Params:        params,
		DFResidual:    dfRes,
		LogLik:        ll,
		AIC:           aic(ll, params),
		BIC:           bic(ll, params, n),
		Deviance:      dev,
		Dispersion:    phi,
		Iterations:    iter,
		StatisticName: statName,
	}

	full := design.Expand(beta)
	se := make([]float64, rank)
	for k := range se {
		se[k] = math.Sqrt(phi * unscaled.At(k, k))
	}
	tdf := -1
	if g.fam.estimatesDispersion() {
		tdf = dfRes
	}
	coefs := coefficientTable(design.Terms, design.Aliased, full, design.Expand(se), tdf)

	return &FittedModel{
		Family:       fam,
		Response:     response,
		Predictors:   append([]string(nil), predictors...),
		Coefficients: coefs,
		Stats:        stats,
		Dataset:      ds,
		beta:         full,
		fitted:       append([]float64(nil), mu...),
	}, nil
}

// working fills the IRLS weights and working response for the log link:
// dμ/dη = μ, so w = μ²/V(μ) and z = η + (y-μ)/μ.
func (g *GLM) working(y, mu, eta, w, z []float64) {
	for i := range y {
		w[i] = mu[i] * mu[i] / g.fam.variance(mu[i])
		z[i] = eta[i] + (y[i]-mu[i])/mu[i]
	}
}

func (g *GLM) deviance(y, mu []float64) float64 {
	d := 0.0
	for i := range y {
		d += g.fam.devResid(y[i], mu[i])
	}
	return d
}

func pearsonChi2(y, mu []float64, v func(float64) float64) float64 {
	s := 0.0
	for i := range y {
		r := y[i] - mu[i]
		s += r * r / v(mu[i])
	}
	return s
}

var errSingular = errors.New("information matrix is singular")

func solveNormal(a *mat.SymDense, b *mat.VecDense) ([]float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errSingular
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, b); err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, &x), nil
}

func invertSym(a *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errSingular
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func aic(ll float64, k int) float64 { return -2*ll + 2*float64(k) }

func bic(ll float64, k, n int) float64 { return -2*ll + float64(k)*math.Log(float64(n)) }

// poissonFamily: V(μ) = μ, φ = 1.
type poissonFamily struct{}

func (poissonFamily) family() Family              { return Poisson }
func (poissonFamily) variance(mu float64) float64 { return mu }
func (poissonFamily) start(y float64) float64     { return y + 0.1 }
func (poissonFamily) estimatesDispersion() bool   { return false }

func (poissonFamily) devResid(y, mu float64) float64 {
	r := mu - y
	if y > 0 {
		r += y * math.Log(y/mu)
	}
	return 2 * r
}

func (poissonFamily) validate(y []float64) error {
	for i, v := range y {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("response row %d is %v; Poisson needs non-negative values", i+1, v)
		}
	}
	return nil
}

func (poissonFamily) logLik(y, mu []float64, _ float64) float64 {
	ll := 0.0
	for i := range y {
		lg, _ := math.Lgamma(y[i] + 1)
		ll += y[i]*math.Log(mu[i]) - mu[i] - lg
	}
	return ll
}

// gammaFamily: V(μ) = μ², φ estimated.
type gammaFamily struct{}

func (gammaFamily) family() Family              { return Gamma }
func (gammaFamily) variance(mu float64) float64 { return mu * mu }
func (gammaFamily) start(y float64) float64     { return y }
func (gammaFamily) estimatesDispersion() bool   { return true }

func (gammaFamily) devResid(y, mu float64) float64 {
	return -2 * (math.Log(y/mu) - (y-mu)/mu)
}

func (gammaFamily) validate(y []float64) error {
	return positive(y, "Gamma")
}

// logLik plugs in the dispersion deviance/n, not the Pearson estimate used
// for standard errors.
func (gammaFamily) logLik(y, mu []float64, dev float64) float64 {
	n := float64(len(y))
	disp := dev / n
	shape := 1 / disp
	lgShape, _ := math.Lgamma(shape)
	ll := 0.0
	for i := range y {
		scale := mu[i] * disp
		ll += -lgShape - shape*math.Log(scale) + (shape-1)*math.Log(y[i]) - y[i]/scale
	}
	return ll
}

func positive(y []float64, name string) error {
	for i, v := range y {
		if !(v > 0) {
			return fmt.Errorf("response row %d is %v; %s needs strictly positive values", i+1, v, name)
		}
	}
	return nil
}
