// Package capacity converts velocity history and current cycle health into a
// bounded point budget for the upcoming cycle.
package capacity

import (
	"github.com/abacushq/abacus/internal/types"
)

// BufferFactor is the fixed safety buffer applied to every positive estimate.
const BufferFactor = 0.85

// Confidence multipliers by velocity-history confidence level
const (
	confidenceHighFactor   = 1.0
	confidenceMediumFactor = 0.9
	confidenceLowFactor    = 0.8
)

// Health multipliers by current cycle status
const (
	healthBehindFactor  = 0.90
	healthOnTrackFactor = 1.0
	healthAheadFactor   = 1.05
)

// Estimator computes capacity budgets from velocity history and cycle
// health. The zero value uses the default cycle length.
type Estimator struct {
	CycleDays int // planning iteration length in days; 0 means types.DefaultCycleDays
}

// NewEstimator creates an Estimator for the given cycle length. Pass 0 to
// use the default.
func NewEstimator(cycleDays int) *Estimator {
	return &Estimator{CycleDays: cycleDays}
}

// Estimate computes the capacity budget:
//
//  1. base = avgVelocityPerDay x cycleDays
//  2. confidence multiplier (high 1.0, medium 0.9, low 0.8)
//  3. fixed safety buffer x0.85
//  4. health adjustment (behind/at_risk 0.90, on_track 1.0, ahead 1.05)
//
// Each budget flag is set when its adjustment changed the value. A
// non-positive or missing average velocity yields a zero budget, never a
// negative one; callers report that as the capacity-exhausted condition
// rather than an error.
func (e *Estimator) Estimate(history types.VelocityHistory, health types.CycleHealth) types.CapacityBudget {
	days := e.CycleDays
	if days <= 0 {
		days = types.DefaultCycleDays
	}

	if history.AvgPerDay <= 0 {
		return types.CapacityBudget{Points: 0}
	}

	base := history.AvgPerDay * float64(days)

	adjusted := base * confidenceFactor(history.Confidence)
	confidenceAdjusted := adjusted != base

	buffered := adjusted * BufferFactor
	bufferApplied := buffered != adjusted

	final := buffered * healthFactor(health.Status)

	return types.CapacityBudget{
		Points:             final,
		ConfidenceAdjusted: confidenceAdjusted,
		BufferApplied:      bufferApplied,
	}
}

// Exhausted reports whether a budget leaves no room to select work
func Exhausted(budget types.CapacityBudget) bool {
	return budget.Points <= 0
}

// confidenceFactor maps a confidence level to its multiplier. Anything
// unrecognized is treated as low.
func confidenceFactor(c types.Confidence) float64 {
	switch c {
	case types.ConfidenceHigh:
		return confidenceHighFactor
	case types.ConfidenceMedium:
		return confidenceMediumFactor
	default:
		return confidenceLowFactor
	}
}

// healthFactor maps a cycle status to its multiplier. at_risk gets the
// behind multiplier: a cycle already wobbling should not inflate the next
// budget.
func healthFactor(s types.HealthStatus) float64 {
	switch s {
	case types.HealthAhead:
		return healthAheadFactor
	case types.HealthBehind, types.HealthAtRisk:
		return healthBehindFactor
	default:
		return healthOnTrackFactor
	}
}
