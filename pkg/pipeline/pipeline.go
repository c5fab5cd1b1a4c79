// Package pipeline runs the derive, fit, evaluate and cross-validate stages
// over a loaded table and collects everything the reporter needs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"famreg/pkg/config"
	"famreg/pkg/data"
	"famreg/pkg/dataprep"
	"famreg/pkg/eval"
	"famreg/pkg/logging"
	"famreg/pkg/model"
)

// FamilyResult is everything produced for one model family.
type FamilyResult struct {
	eval.Outcome
	Residuals []float64
	CV        *eval.CVResult
}

// Result is the output of one run.
type Result struct {
	RunID      string
	Schema     Schema
	Dataset    *data.Dataset
	Dropped    []dataprep.Dropped
	Families   []FamilyResult
	Comparison eval.Comparison
}

// Family returns the result for f.
func (r *Result) Family(f model.Family) (FamilyResult, bool) {
	for _, fr := range r.Families {
		if fr.Family == f {
			return fr, true
		}
	}
	return FamilyResult{}, false
}

// stage is one step of a run; stages see the result built so far.
type stage struct {
	name string
	run  func(ctx context.Context, res *Result) error
}

// Pipeline chains the stages of a run.
type Pipeline struct {
	cfg      config.Config
	log      *logging.Logger
	schema   Schema
	families []model.Family
	policy   dataprep.Policy
}

// New validates cfg and prepares a Pipeline. A nil logger discards output.
func New(cfg config.Config, log *logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fams, err := cfg.ModelFamilies()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		cfg:      cfg,
		log:      log,
		schema:   Schema{Response: cfg.Response, Predictors: append([]string(nil), cfg.Predictors...)},
		families: fams,
		policy:   policy,
	}, nil
}

// Run executes every stage in order. Load and coercion errors stop the run.
// A fit that fails to converge leaves its row marked in the comparison,
// unless the config asks to abort.
func (p *Pipeline) Run(ctx context.Context, t *data.Table) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Schema: p.schema}
	log := p.log.With("run_id", res.RunID)

	stages := []stage{
		{"derive", func(_ context.Context, r *Result) error { return p.derive(log, t, r) }},
		{"fit", func(ctx context.Context, r *Result) error { return p.fit(ctx, log, r) }},
		{"evaluate", func(_ context.Context, r *Result) error { return p.evaluate(log, r) }},
		{"cross-validate", func(ctx context.Context, r *Result) error { return p.crossValidate(ctx, log, r) }},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		log.Debug("stage started", "stage", s.name)
		if err := s.run(ctx, res); err != nil {
			log.Error("stage failed", "stage", s.name, "error", err)
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		log.Info("stage finished", "stage", s.name, "elapsed", time.Since(start))
	}
	return res, nil
}

func (p *Pipeline) derive(log *logging.Logger, t *data.Table, res *Result) error {
	derived, err := dataprep.Derive(t,
		dataprep.WithPolicy(p.policy),
		dataprep.WithDropHook(func(d dataprep.Dropped) {
			log.Warn("row dropped", "row", d.Row, "column", d.Err.Column, "value", d.Err.Value, "reason", d.Err.Reason)
		}),
	)
	if err != nil {
		return err
	}
	if err := p.schema.Check(derived.Dataset); err != nil {
		return err
	}
	res.Dataset = derived.Dataset
	res.Dropped = derived.Dropped
	log.Info("dataset derived", "rows_read", t.Len(), "rows_kept", derived.Dataset.Len(), "rows_dropped", len(derived.Dropped))
	return nil
}

// fit runs one goroutine per family; each writes only its own slot.
func (p *Pipeline) fit(ctx context.Context, log *logging.Logger, res *Result) error {
	results := make([]FamilyResult, len(p.families))
	g, gctx := errgroup.WithContext(ctx)
	if !p.cfg.Parallel {
		g.SetLimit(1)
	}
	for i, fam := range p.families {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.fitOne(log, fam, res.Dataset)
			err := results[i].Err
			if err == nil {
				return nil
			}
			if errors.Is(err, model.ErrConvergence) && !p.cfg.AbortOnConvergenceError {
				log.Warn("fit did not converge; continuing with a partial report", "family", fam, "error", err)
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	res.Families = results
	return nil
}

func (p *Pipeline) fitOne(log *logging.Logger, fam model.Family, ds *data.Dataset) FamilyResult {
	out := FamilyResult{Outcome: eval.Outcome{Family: fam}}
	fitter, err := model.NewFitter(fam, p.cfg.FitOptions()...)
	if err != nil {
		out.Err = err
		return out
	}
	start := time.Now()
	m, err := fitter.Fit(ds, p.schema.Predictors, p.schema.Response)
	if err != nil {
		out.Err = err
		var ce *model.ConvergenceError
		if errors.As(err, &ce) && ce.Partial != nil {
			if pred, perr := ce.Partial.Predict(ds); perr == nil {
				out.Predictions = pred
				log.Warn("model fit incomplete; keeping location-only predictions", "family", fam, "error", err)
			}
		}
		return out
	}
	pred, err := m.Predict(ds)
	if err != nil {
		out.Err = err
		return out
	}
	out.Model, out.Predictions = m, pred
	log.Info("model fitted",
		"family", fam,
		"iterations", m.Stats.Iterations,
		"loglik", m.Stats.LogLik,
		"aic", m.Stats.AIC,
		"elapsed", time.Since(start),
	)
	return out
}

func (p *Pipeline) evaluate(log *logging.Logger, res *Result) error {
	observed, ok := res.Dataset.Float(p.schema.Response)
	if !ok {
		return fmt.Errorf("no response column %q", p.schema.Response)
	}
	outcomes := make([]eval.Outcome, len(res.Families))
	for i := range res.Families {
		fr := &res.Families[i]
		outcomes[i] = fr.Outcome
		if fr.Err != nil {
			continue
		}
		r, err := eval.PearsonResiduals(observed, fr.Model)
		if err != nil {
			return err
		}
		fr.Residuals = r
	}
	res.Comparison = eval.Compare(observed, outcomes)
	if best, ok := res.Comparison.Best(eval.ColAIC); ok {
		log.Info("comparison ready", "models", len(outcomes), "lowest_aic", best)
	}
	return nil
}

// crossValidate is skipped when cv_folds is 0. A family whose folds fail
// keeps a nil CV and the run carries on.
func (p *Pipeline) crossValidate(ctx context.Context, log *logging.Logger, res *Result) error {
	k := p.cfg.CVFolds
	if k == 0 {
		return nil
	}
	for i := range res.Families {
		if err := ctx.Err(); err != nil {
			return err
		}
		fr := &res.Families[i]
		if fr.Err != nil {
			continue
		}
		fitter, err := model.NewFitter(fr.Family, p.cfg.FitOptions()...)
		if err != nil {
			return err
		}
		cv, err := eval.CrossValidate(fitter, res.Dataset, p.schema.Predictors, p.schema.Response, k, p.cfg.Seed)
		if err != nil {
			log.Warn("cross-validation skipped", "family", fr.Family, "error", err)
			continue
		}
		fr.CV = &cv
		log.Info("cross-validated", "family", fr.Family, "folds", k, "rmse", cv.RMSE)
	}
	return nil
}
