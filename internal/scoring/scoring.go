// Package scoring converts backlog items into normalized priority scores
// via five weighted sub-factors.
package scoring

import (
	"github.com/abacushq/abacus/internal/types"
)

// Factor weights. They sum to 1.0; complexity and risk are inverted before
// weighting so simpler, safer work scores higher.
const (
	weightBusinessValue = 0.30
	weightComplexity    = 0.20
	weightRisk          = 0.15
	weightAge           = 0.15
	weightDebtImpact    = 0.20
)

// scoreDivisor is carried verbatim from the planning policy: the weighted
// sum is divided by 5 even though the weights already sum to 1.0, which
// compresses final scores into [0, 2] instead of [0, 10]. Kept as a literal
// pending product-owner clarification; do not fold it into the weights.
const scoreDivisor = 5.0

// Scorer computes priority scores for backlog items. Scoring is a pure
// function of each item's fields, so one Scorer is safe for concurrent use.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the five sub-scores and the final weighted score for one
// item. Items with no estimate land in the moderate complexity bucket; the
// caller is responsible for surfacing that substitution as an advisory flag.
func (s *Scorer) Score(item types.BacklogItem) types.ScoredItem {
	sub := types.SubScores{
		BusinessValue: businessValueScore(item.Tier),
		Complexity:    complexityScore(item.Estimate),
		Risk:          riskScore(item.DependencyCount, item.Circular),
		Age:           ageScore(item.AgeDays),
		DebtImpact:    debtImpactScore(item.Type),
	}

	weighted := sub.BusinessValue*weightBusinessValue +
		(10-sub.Complexity)*weightComplexity +
		(10-sub.Risk)*weightRisk +
		sub.Age*weightAge +
		sub.DebtImpact*weightDebtImpact

	return types.ScoredItem{
		Item:   item,
		Scores: sub,
		Score:  weighted / scoreDivisor,
	}
}

// ScoreAll scores every item, preserving input order
func (s *Scorer) ScoreAll(items []types.BacklogItem) []types.ScoredItem {
	scored := make([]types.ScoredItem, len(items))
	for i, item := range items {
		scored[i] = s.Score(item)
	}
	return scored
}

// businessValueScore maps the priority tier to its bucket
func businessValueScore(tier types.Tier) float64 {
	switch tier {
	case types.TierUrgent:
		return 10
	case types.TierHigh:
		return 8
	case types.TierLow:
		return 2
	default:
		return 5 // medium
	}
}

// complexityScore buckets the point estimate. Bucket bounds overlap in the
// policy table; the first matching row wins, so an estimate of exactly 5
// scores 5, not 7. Missing estimates take the moderate bucket.
func complexityScore(estimate *int) float64 {
	if estimate == nil {
		return 5
	}
	switch e := *estimate; {
	case e < 3:
		return 2
	case e <= 5:
		return 5
	case e <= 8:
		return 7
	default:
		return 9
	}
}

// riskScore buckets the dependency count. Membership in a dependency cycle
// overrides the count entirely.
func riskScore(dependencyCount int, circular bool) float64 {
	if circular {
		return 10
	}
	switch {
	case dependencyCount == 0:
		return 2
	case dependencyCount <= 2:
		return 5
	default:
		return 8
	}
}

// ageScore buckets days since creation; first matching row wins, so day 30
// scores 5 and day 90 scores 7.
func ageScore(days int) float64 {
	switch {
	case days < 30:
		return 2
	case days <= 60:
		return 5
	case days <= 90:
		return 7
	default:
		return 10
	}
}

// debtImpactScore maps the work type to its debt-reduction bucket
func debtImpactScore(t types.ItemType) float64 {
	switch t {
	case types.TypeSecurity:
		return 10
	case types.TypeTechDebt:
		return 8
	case types.TypeBug:
		return 6
	default:
		return 0 // feature
	}
}
