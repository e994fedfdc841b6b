// Package planner orchestrates the planning pipeline: capacity estimation
// and scoring run concurrently over one snapshot, selection folds
// sequentially, and the accepted items are classified into execution queues.
package planner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/abacushq/abacus/internal/capacity"
	"github.com/abacushq/abacus/internal/queues"
	"github.com/abacushq/abacus/internal/scoring"
	"github.com/abacushq/abacus/internal/selection"
	"github.com/abacushq/abacus/internal/types"
)

// Options tune a planning run. The zero value plans a default-length cycle
// with the builtin queue routes.
type Options struct {
	CycleDays int                             // planning iteration length; 0 means types.DefaultCycleDays
	Routes    map[queues.Category]types.Queue // extra queue routes beyond the builtin table
}

// Planner wires the pipeline components together. One Planner is safe for
// concurrent use; every run's state lives on its own stack.
type Planner struct {
	cycleDays  int
	estimator  *capacity.Estimator
	scorer     *scoring.Scorer
	selector   *selection.Selector
	classifier *queues.Classifier
}

// New creates a Planner. It errors only when opts.Routes remaps a builtin
// category or names an unknown queue.
func New(opts Options) (*Planner, error) {
	classifier := queues.NewClassifier()
	if len(opts.Routes) > 0 {
		var err error
		classifier, err = queues.NewClassifierWithRoutes(opts.Routes)
		if err != nil {
			return nil, err
		}
	}
	return &Planner{
		cycleDays:  opts.CycleDays,
		estimator:  capacity.NewEstimator(opts.CycleDays),
		scorer:     scoring.NewScorer(),
		selector:   selection.NewSelector(),
		classifier: classifier,
	}, nil
}

// Plan runs the full pipeline over one snapshot and returns the structured
// result. Only an invalid snapshot errors; capacity exhaustion, missing
// estimates, and dependency exclusions all degrade to advisory flags or
// risk entries on a completed plan.
//
// Plan normalizes the snapshot in place before planning: velocity fields
// derivable from samples are filled in and omitted per-item fields get
// their defaults. Callers that render the snapshot afterwards see the
// normalized values; callers that need the original intact should pass a
// copy.
//
// Plan itself performs no cancellation checks: it is a bounded batch
// computation, and callers that need a deadline should use
// PlanWithDeadline.
func (p *Planner) Plan(ctx context.Context, snap *types.Snapshot) (*types.PlanResult, error) {
	deriveVelocity(snap, p.cycleDays)
	snap.SetDefaults()
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	history := *snap.HistoricalVelocity
	items := snap.Items()
	scored := make([]types.ScoredItem, len(items))
	var budget types.CapacityBudget

	// Estimation and scoring are independent; scoring fans out across
	// worker goroutines with results landing by index, so the output order
	// matches the snapshot regardless of scheduling.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		budget = p.estimator.Estimate(history, *snap.CurrentCycleHealth)
		return nil
	})
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(items) + workers - 1) / workers
	for start := 0; start < len(items); start += chunk {
		start, end := start, min(start+chunk, len(items))
		g.Go(func() error {
			for i := start; i < end; i++ {
				scored[i] = p.scorer.Score(items[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Selection is the one sequential stage: the sub-budget fold must walk
	// the sorted list in order to keep the greedy pass deterministic.
	sel, excl := p.selector.Select(budget, scored, *snap.Dependencies)
	workQueues := p.classifier.Partition(sel.Items)

	result := &types.PlanResult{
		Capacity:  budget,
		Selection: sel,
		Queues:    workQueues,
		Risk: types.RiskAssessment{
			BlockedExcluded:    excl.Blocked,
			CircularExcluded:   excl.Circular,
			AtRiskCount:        snap.CurrentCycleHealth.AtRiskCount,
			CriticalPathLength: snap.Dependencies.CriticalPathLength,
		},
	}

	var unestimated []string
	for _, item := range items {
		if item.Estimate == nil {
			unestimated = append(unestimated, item.ID)
		}
	}
	if len(unestimated) > 0 {
		result.Flags = append(result.Flags, types.Flag{
			Kind:    types.FlagInsufficientData,
			ItemIDs: unestimated,
			Message: "items without estimates were scored and costed at the moderate default",
		})
	}
	if capacity.Exhausted(budget) {
		result.Flags = append(result.Flags, types.Flag{
			Kind:    types.FlagCapacityExhausted,
			Message: "computed capacity is zero; nothing was selected",
		})
	}

	return result, nil
}

// deriveVelocity fills velocity statistics from raw per-cycle samples when
// the snapshot carries samples but not the derived numbers. Explicit values
// always win; derivation must run before defaulting so an omitted trend or
// confidence is graded from the samples instead of pinned at the floor.
func deriveVelocity(snap *types.Snapshot, cycleDays int) {
	v := snap.HistoricalVelocity
	if v == nil || len(v.Samples) == 0 {
		return
	}
	derived := types.DeriveVelocity(v.Samples, cycleDays)
	if v.AvgPerDay <= 0 {
		v.AvgPerDay = derived.AvgPerDay
	}
	if v.Trend == "" {
		v.Trend = derived.Trend
	}
	if v.Confidence == "" {
		v.Confidence = derived.Confidence
	}
}

// PlanWithDeadline races Plan against ctx and returns ctx.Err() if the
// deadline expires first. The computation is not interrupted mid-fold; a
// losing run finishes on its goroutine and its result is discarded.
func (p *Planner) PlanWithDeadline(ctx context.Context, snap *types.Snapshot) (*types.PlanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type outcome struct {
		result *types.PlanResult
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		result, err := p.Plan(ctx, snap)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.result, out.err
	}
}
