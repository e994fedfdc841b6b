// Package abacus provides a minimal public API for embedding the cycle
// planning engine in other tools.
//
// Most integrations should shell out to the ab CLI with --json. This package
// exports only the essential types and the planning entry points for Go
// programs that want to run the engine in-process against snapshots they
// build themselves.
package abacus

import (
	"context"

	"github.com/abacushq/abacus/internal/planner"
	"github.com/abacushq/abacus/internal/snapshot"
	"github.com/abacushq/abacus/internal/types"
)

// Core types for working with snapshots and plans
type (
	Snapshot        = types.Snapshot
	BacklogItem     = types.BacklogItem
	CycleHealth     = types.CycleHealth
	VelocityHistory = types.VelocityHistory
	DependencyInfo  = types.DependencyInfo
	CapacityBudget  = types.CapacityBudget
	ScoredItem      = types.ScoredItem
	SelectionResult = types.SelectionResult
	WorkQueues      = types.WorkQueues
	PlanResult      = types.PlanResult
)

// Priority tier constants
const (
	TierUrgent = types.TierUrgent
	TierHigh   = types.TierHigh
	TierMedium = types.TierMedium
	TierLow    = types.TierLow
)

// Item type constants
const (
	TypeFeature  = types.TypeFeature
	TypeBug      = types.TypeBug
	TypeTechDebt = types.TypeTechDebt
	TypeSecurity = types.TypeSecurity
)

// ErrInvalidInput is returned when a snapshot is missing required sections.
var ErrInvalidInput = types.ErrInvalidInput

// ParseSnapshot decodes and validates a JSON snapshot document.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	return snapshot.Parse(data)
}

// LoadSnapshot reads and validates a snapshot file (JSON or YAML).
func LoadSnapshot(path string) (*Snapshot, error) {
	return snapshot.Load(path)
}

// Plan runs the full planning pipeline over one snapshot with the given
// cycle length (0 means the 14-day default). The snapshot is the only
// input; the engine performs no I/O and holds no state between calls.
func Plan(ctx context.Context, snap *Snapshot, cycleDays int) (*PlanResult, error) {
	p, err := planner.New(planner.Options{CycleDays: cycleDays})
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, snap)
}

// PlanWithDeadline is Plan raced against ctx: if the context expires before
// the pipeline finishes, the partial result is discarded and ctx.Err() is
// returned.
func PlanWithDeadline(ctx context.Context, snap *Snapshot, cycleDays int) (*PlanResult, error) {
	p, err := planner.New(planner.Options{CycleDays: cycleDays})
	if err != nil {
		return nil, err
	}
	return p.PlanWithDeadline(ctx, snap)
}
