// Package selection greedily fills a capacity budget from scored backlog
// items under a debt/feature split and dependency exclusions.
package selection

import (
	"sort"

	"github.com/abacushq/abacus/internal/types"
)

// Budget shares: debt work (bug, technical-debt, security) may consume at
// most 30% of capacity, features the remaining 70%.
const (
	DebtShare    = 0.30
	FeatureShare = 0.70
)

// Exclusions lists the items the selector refused to consider, in snapshot
// order, for the plan's risk block.
type Exclusions struct {
	Blocked  []string
	Circular []string
}

// Selector fills capacity budgets. One Selector is safe for concurrent use;
// all per-run state lives in the fold accumulator.
type Selector struct{}

// NewSelector creates a new Selector
func NewSelector() *Selector {
	return &Selector{}
}

// budgetState is the accumulator threaded through the greedy pass. It is
// passed and returned by value so the pass stays a pure fold; nothing here
// escapes into package state.
type budgetState struct {
	debtRemaining    float64
	featureRemaining float64
}

// Select runs the single-pass greedy fill:
//
//  1. Items in the circular-dependency set or marked blocked are excluded
//     up front (circular wins when both apply) and reported in Exclusions.
//  2. Remaining items are stable-sorted by score descending, so ties keep
//     snapshot order and the pass is deterministic.
//  3. Each item is classified debt or feature and accepted iff its effort
//     fits the remaining budget of its class. Skipped items are never
//     reconsidered, and the pass always walks the whole list: a later,
//     smaller item may still fit after a larger one was skipped.
//
// A zero budget short-circuits to an empty selection; exclusions are still
// reported. Items without an estimate count as the moderate default effort.
func (s *Selector) Select(budget types.CapacityBudget, scored []types.ScoredItem, deps types.DependencyInfo) (types.SelectionResult, Exclusions) {
	circular := deps.CircularSet()

	var excl Exclusions
	candidates := make([]types.ScoredItem, 0, len(scored))
	for _, cand := range scored {
		switch {
		case cand.Item.Circular || circular[cand.Item.ID]:
			excl.Circular = append(excl.Circular, cand.Item.ID)
		case cand.Item.Blocked:
			excl.Blocked = append(excl.Blocked, cand.Item.ID)
		default:
			candidates = append(candidates, cand)
		}
	}

	result := types.SelectionResult{Items: []types.ScoredItem{}}
	if budget.Points <= 0 {
		return result, excl
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	state := budgetState{
		debtRemaining:    budget.Points * DebtShare,
		featureRemaining: budget.Points * FeatureShare,
	}

	debtEffort := 0
	for _, cand := range candidates {
		next, accepted := accept(state, cand)
		state = next
		if !accepted {
			continue
		}

		effort := cand.Item.EffortPoints()
		result.Items = append(result.Items, cand)
		result.TotalEffort += effort
		if cand.Item.Type.IsDebt() {
			debtEffort += effort
			result.Debt = append(result.Debt, cand.Item.ID)
		} else {
			result.Features = append(result.Features, cand.Item.ID)
		}
	}

	if result.TotalEffort > 0 {
		result.DebtRatio = float64(debtEffort) / float64(result.TotalEffort)
		result.Utilization = float64(result.TotalEffort) / budget.Points
	}
	return result, excl
}

// accept is one reduction step: it returns the next budget state and whether
// the item fit the remaining budget of its class.
func accept(state budgetState, cand types.ScoredItem) (budgetState, bool) {
	effort := float64(cand.Item.EffortPoints())
	if cand.Item.Type.IsDebt() {
		if effort > state.debtRemaining {
			return state, false
		}
		state.debtRemaining -= effort
		return state, true
	}
	if effort > state.featureRemaining {
		return state, false
	}
	state.featureRemaining -= effort
	return state, true
}
