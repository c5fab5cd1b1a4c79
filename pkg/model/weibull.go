package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"famreg/pkg/core"
	"famreg/pkg/data"
	"famreg/pkg/optim"
	"famreg/pkg/stats"
)

// LogScaleTerm names the log σ row of the Weibull coefficient table.
const LogScaleTerm = "Log(scale)"

// WeibullAFT fits log T = Xβ + σW, with W the standard minimum extreme
// value distribution, by Newton's method on (β, log σ). Every observation
// is treated as an event; there is no censoring.
type WeibullAFT struct {
	settings optim.Settings
}

// NewWeibullAFT returns a Weibull accelerated-failure-time fitter.
func NewWeibullAFT(opts ...Option) *WeibullAFT {
	s := optim.NewtonDefaults()
	for _, o := range opts {
		o(&s)
	}
	return &WeibullAFT{settings: s}
}

// Family returns Weibull.
func (w *WeibullAFT) Family() Family { return Weibull }

// Fit maximises the time-scale log-likelihood. The non-intercept columns
// are standardised for the optimiser and the estimates mapped back to the
// original column scale.
func (w *WeibullAFT) Fit(ds *data.Dataset, predictors []string, response string) (*FittedModel, error) {
	y, ok := ds.Float(response)
	if !ok {
		return nil, fmt.Errorf("%s: dataset has no response column %q", Weibull, response)
	}
	if err := positive(y, "Weibull"); err != nil {
		return nil, fmt.Errorf("%s: %w", Weibull, err)
	}
	design, err := core.NewDesign(ds, predictors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Weibull, err)
	}
	X := design.Reduced()
	n, rank := X.Dims()

	logy := make([]float64, n)
	for i, v := range y {
		logy[i] = math.Log(v)
	}
	if n <= rank {
		// a saturated location fit drives σ to zero and the likelihood to +∞
		return nil, &ConvergenceError{
			Family:  Weibull,
			Reason:  fmt.Sprintf("saturated: %d observations for %d location parameters", n, rank),
			Partial: locationFit(design, X, logy, ds, predictors, response),
		}
	}

	Xs, scalings := standardize(X)
	ll := &weibullLik{X: Xs, logy: logy}
	x0, err := ll.start()
	if err != nil {
		return nil, &ConvergenceError{Family: Weibull, Reason: err.Error()}
	}
	nf := float64(n)
	problem := optimize.Problem{
		Func: func(x []float64) float64 { return -ll.value(x) / nf },
		Grad: func(grad, x []float64) {
			ll.gradient(grad, x)
			for i := range grad {
				grad[i] /= -nf
			}
		},
		Hess: func(hess *mat.SymDense, x []float64) {
			ll.hessian(hess, x)
			hess.ScaleSym(-1/nf, hess)
		},
	}
	res, err := optimize.Minimize(problem, x0, w.settings.Optimize(), &optimize.Newton{})
	if res == nil {
		return nil, &ConvergenceError{Family: Weibull, Reason: fmt.Sprint(err)}
	}
	iters := res.Stats.MajorIterations
	if err != nil || !optim.Converged(res.Status) {
		if !ll.stationary(res.X) {
			reason := res.Status.String()
			if err != nil {
				reason = err.Error()
			}
			return nil, &ConvergenceError{Family: Weibull, Iterations: iters, Reason: reason}
		}
	}
	theta := res.X
	sigma := math.Exp(theta[rank])
	loglik := ll.value(theta)
	if !(sigma > 1e-10) || math.IsInf(sigma, 0) || math.IsNaN(loglik) || math.IsInf(loglik, 0) {
		return nil, &ConvergenceError{Family: Weibull, Iterations: iters, Reason: "scale collapsed or likelihood not finite"}
	}

	info := mat.NewSymDense(rank+1, nil)
	ll.hessian(info, theta)
	info.ScaleSym(-1, info)
	covStd, err := invertSym(info)
	if err != nil {
		return nil, &ConvergenceError{Family: Weibull, Iterations: iters, Reason: err.Error()}
	}

	// θ = T θs and cov = T covs Tᵀ
	T := unscale(scalings)
	var est mat.VecDense
	est.MulVec(T, mat.NewVecDense(rank+1, append([]float64(nil), theta...)))
	var tc, cov mat.Dense
	tc.Mul(T, covStd)
	cov.Mul(&tc, T.T())

	beta := make([]float64, rank)
	se := make([]float64, rank)
	for k := range beta {
		beta[k] = est.AtVec(k)
		se[k] = math.Sqrt(cov.At(k, k))
	}
	logScale := theta[rank]
	full := design.Expand(beta)
	coefs := coefficientTable(design.Terms, design.Aliased, full, design.Expand(se), -1)
	logScaleSE := math.Sqrt(cov.At(rank, rank))
	coefs = append(coefs, Coefficient{
		Term:      LogScaleTerm,
		Estimate:  logScale,
		StdError:  logScaleSE,
		Statistic: logScale / logScaleSE,
		PValue:    WaldPValue(logScale/logScaleSE, -1),
	})

	params := rank + 1
	return &FittedModel{
		Family:       Weibull,
		Response:     response,
		Predictors:   append([]string(nil), predictors...),
		Coefficients: coefs,
		Stats: FitStats{
			NObs:          n,
			Rank:          rank,
			Params:        params,
			DFResidual:    n - params,
			LogLik:        loglik,
			AIC:           aic(loglik, params),
			BIC:           bic(loglik, params, n),
			Deviance:      -2 * loglik,
			Dispersion:    sigma,
			Iterations:    iters,
			StatisticName: "z value",
		},
		Scale:   sigma,
		Dataset: ds,
		beta:    full,
		fitted:  expEta(design.X, full),
	}, nil
}

// locationFit is the least-squares fit of log y used when σ has no finite
// maximum. It interpolates a saturated design exactly and carries no
// likelihood statistics.
func locationFit(design *core.Design, X *mat.Dense, logy []float64, ds *data.Dataset, predictors []string, response string) *FittedModel {
	n, rank := X.Dims()
	beta, err := solveNormal(core.WeightedGram(X, ones(n)), core.WeightedCross(X, ones(n), logy))
	if err != nil {
		return nil
	}
	se := make([]float64, rank)
	for k := range se {
		se[k] = math.NaN()
	}
	full := design.Expand(beta)
	nan := math.NaN()
	return &FittedModel{
		Family:       Weibull,
		Response:     response,
		Predictors:   append([]string(nil), predictors...),
		Coefficients: coefficientTable(design.Terms, design.Aliased, full, design.Expand(se), -1),
		Stats: FitStats{
			NObs:          n,
			Rank:          rank,
			Params:        rank + 1,
			DFResidual:    n - rank - 1,
			LogLik:        nan,
			AIC:           nan,
			BIC:           nan,
			Deviance:      nan,
			Dispersion:    0,
			StatisticName: "z value",
		},
		Dataset: ds,
		beta:    full,
		fitted:  expEta(design.X, full),
	}
}

func expEta(X *mat.Dense, beta []float64) []float64 {
	eta := core.LinearPredictor(X, beta)
	for i := range eta {
		eta[i] = math.Exp(eta[i])
	}
	return eta
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// standardize centres and scales every column after the intercept.
func standardize(X *mat.Dense) (*mat.Dense, []stats.Scaling) {
	n, p := X.Dims()
	out := mat.NewDense(n, p, nil)
	scalings := make([]stats.Scaling, p)
	scalings[0] = stats.Identity()
	out.SetCol(0, mat.Col(nil, 0, X))
	for j := 1; j < p; j++ {
		col := mat.Col(nil, j, X)
		scalings[j] = stats.Standardizer(col)
		out.SetCol(j, scalings[j].ApplyAll(col))
	}
	return out, scalings
}

// unscale maps (β on standardised columns, log σ) back to the original
// columns: βj = βj'/sj and β0 = β0' − Σ βj' cj/sj. log σ is unchanged.
func unscale(scalings []stats.Scaling) *mat.Dense {
	p := len(scalings)
	T := mat.NewDense(p+1, p+1, nil)
	T.Set(0, 0, 1)
	for j := 1; j < p; j++ {
		sc := scalings[j]
		T.Set(0, j, -sc.Center/sc.Scale)
		T.Set(j, j, 1/sc.Scale)
	}
	T.Set(p, p, 1)
	return T
}

// weibullLik is the extreme-value log-likelihood in θ = (β, log σ).
// With w = (log y − η)/σ each observation contributes
// −log σ − log y + w − eʷ.
type weibullLik struct {
	X    *mat.Dense
	logy []float64
}

func (l *weibullLik) split(theta []float64) (beta []float64, s, sigma float64) {
	_, p := l.X.Dims()
	return theta[:p], theta[p], math.Exp(theta[p])
}

func (l *weibullLik) z(i int, beta []float64, sigma float64) float64 {
	_, p := l.X.Dims()
	eta := 0.0
	for j := 0; j < p; j++ {
		eta += l.X.At(i, j) * beta[j]
	}
	return (l.logy[i] - eta) / sigma
}

// start uses least squares on log y for β and the residual spread for σ.
func (l *weibullLik) start() ([]float64, error) {
	n, p := l.X.Dims()
	beta, err := solveNormal(core.WeightedGram(l.X, ones(n)), core.WeightedCross(l.X, ones(n), l.logy))
	if err != nil {
		return nil, err
	}
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = l.z(i, beta, 1)
	}
	sd := stats.Std(resid)
	logSigma := 0.0
	if sd > 1e-8 {
		logSigma = math.Log(sd)
	}
	theta := make([]float64, p+1)
	copy(theta, beta)
	theta[p] = logSigma
	return theta, nil
}

func (l *weibullLik) value(theta []float64) float64 {
	beta, s, sigma := l.split(theta)
	sum := 0.0
	for i := range l.logy {
		w := l.z(i, beta, sigma)
		sum += -s - l.logy[i] + w - math.Exp(w)
	}
	return sum
}

func (l *weibullLik) gradient(grad, theta []float64) {
	beta, _, sigma := l.split(theta)
	_, p := l.X.Dims()
	for k := range grad {
		grad[k] = 0
	}
	for i := range l.logy {
		w := l.z(i, beta, sigma)
		e := math.Exp(w)
		for j := 0; j < p; j++ {
			grad[j] += (e - 1) * l.X.At(i, j) / sigma
		}
		grad[p] += -1 - w + w*e
	}
}

func (l *weibullLik) hessian(hess *mat.SymDense, theta []float64) {
	beta, _, sigma := l.split(theta)
	_, p := l.X.Dims()
	h := make([]float64, (p+1)*(p+1))
	for i := range l.logy {
		w := l.z(i, beta, sigma)
		e := math.Exp(w)
		for a := 0; a < p; a++ {
			xa := l.X.At(i, a)
			for b := a; b < p; b++ {
				h[a*(p+1)+b] -= e * xa * l.X.At(i, b) / (sigma * sigma)
			}
			h[a*(p+1)+p] -= xa * (e*w + e - 1) / sigma
		}
		h[p*(p+1)+p] += w - w*e - w*w*e
	}
	for a := 0; a <= p; a++ {
		for b := a; b <= p; b++ {
			hess.SetSym(a, b, h[a*(p+1)+b])
		}
	}
}

// stationary reports whether the averaged score at theta is flat.
func (l *weibullLik) stationary(theta []float64) bool {
	grad := make([]float64, len(theta))
	l.gradient(grad, theta)
	for i := range grad {
		grad[i] /= float64(len(l.logy))
	}
	return optim.Stationary(grad, optim.StationaryTolerance)
}
