package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/abacushq/abacus/internal/types"
)

const planningScopeName = "github.com/abacushq/abacus/planning"

// PlanFunc is the planning entry point shape being instrumented
type PlanFunc func(ctx context.Context, snap *types.Snapshot) (*types.PlanResult, error)

// InstrumentPlan returns fn decorated with a span and ab.plan.* metrics.
// When telemetry is disabled, fn is returned as-is with zero overhead.
func InstrumentPlan(fn PlanFunc) PlanFunc {
	if !Enabled() {
		return fn
	}

	m := Meter(planningScopeName)
	runs, _ := m.Int64Counter("ab.plan.runs",
		metric.WithDescription("Total planning runs executed"),
	)
	dur, _ := m.Float64Histogram("ab.plan.duration",
		metric.WithDescription("Planning run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("ab.plan.errors",
		metric.WithDescription("Planning runs that failed validation or were canceled"),
	)
	selected, _ := m.Int64Gauge("ab.plan.selected_items",
		metric.WithDescription("Items selected by the most recent planning run"),
	)
	tracer := Tracer(planningScopeName)

	return func(ctx context.Context, snap *types.Snapshot) (*types.PlanResult, error) {
		backlog := 0
		if snap != nil {
			backlog = len(snap.Items())
		}
		ctx, span := tracer.Start(ctx, "planner.Plan",
			trace.WithAttributes(attribute.Int("ab.backlog.count", backlog)),
		)
		runs.Add(ctx, 1)

		t0 := time.Now()
		result, err := fn(ctx, snap)
		dur.Record(ctx, float64(time.Since(t0).Milliseconds()))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			errs.Add(ctx, 1)
			span.End()
			return nil, err
		}

		span.SetAttributes(
			attribute.Float64("ab.capacity.points", result.Capacity.Points),
			attribute.Int("ab.selected.count", len(result.Selection.Items)),
			attribute.Int("ab.selected.effort", result.Selection.TotalEffort),
			attribute.Float64("ab.selected.utilization", result.Selection.Utilization),
			attribute.Int("ab.flags.count", len(result.Flags)),
		)
		selected.Record(ctx, int64(len(result.Selection.Items)))
		span.End()
		return result, nil
	}
}
