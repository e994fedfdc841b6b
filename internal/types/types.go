// Package types defines core data structures for the abacus planning engine.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultCycleDays is the planning iteration length used when the caller
// does not supply one.
const DefaultCycleDays = 14

// DefaultEstimate is the moderate-bucket point value substituted for items
// that carry no estimate. Substitution is advisory: the run records an
// insufficient-data flag listing the affected items.
const DefaultEstimate = 5

// ErrInvalidInput indicates a snapshot missing required top-level sections.
// It is the only fatal condition in the engine; per-item data-quality issues
// degrade to defaults and advisory flags instead.
var ErrInvalidInput = errors.New("invalid snapshot")

// Tier is the business-priority tier of a backlog item
type Tier string

// Priority tier constants
const (
	TierUrgent Tier = "urgent"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// IsValid checks if the tier value is valid
func (t Tier) IsValid() bool {
	switch t {
	case TierUrgent, TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

// ItemType categorizes the kind of work
type ItemType string

// Item type constants
const (
	TypeFeature  ItemType = "feature"
	TypeBug      ItemType = "bug"
	TypeTechDebt ItemType = "technical-debt"
	TypeSecurity ItemType = "security"
)

// IsValid checks if the item type value is valid
func (t ItemType) IsValid() bool {
	switch t {
	case TypeFeature, TypeBug, TypeTechDebt, TypeSecurity:
		return true
	}
	return false
}

// IsDebt reports whether the type counts against the debt sub-budget during
// selection. Everything that is not a feature is debt work.
func (t ItemType) IsDebt() bool {
	switch t {
	case TypeBug, TypeTechDebt, TypeSecurity:
		return true
	}
	return false
}

// HealthStatus describes how the current cycle is tracking
type HealthStatus string

// Cycle health constants
const (
	HealthOnTrack HealthStatus = "on_track"
	HealthAtRisk  HealthStatus = "at_risk"
	HealthBehind  HealthStatus = "behind"
	HealthAhead   HealthStatus = "ahead"
)

// IsValid checks if the health status value is valid
func (h HealthStatus) IsValid() bool {
	switch h {
	case HealthOnTrack, HealthAtRisk, HealthBehind, HealthAhead:
		return true
	}
	return false
}

// Trend is the direction of recent velocity movement
type Trend string

// Velocity trend constants
const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

// IsValid checks if the trend value is valid
func (t Trend) IsValid() bool {
	switch t {
	case TrendIncreasing, TrendStable, TrendDecreasing:
		return true
	}
	return false
}

// Confidence grades how much the velocity history can be trusted
type Confidence string

// Confidence level constants
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid checks if the confidence value is valid
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// BacklogItem represents one unit of candidate work read from the snapshot.
// Items are immutable once read; the engine never mutates them.
type BacklogItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Estimate        *int     `json:"estimate,omitempty"` // points; nil means unestimated
	Tier            Tier     `json:"tier,omitempty"`
	Type            ItemType `json:"type,omitempty"`
	AgeDays         int      `json:"ageDays"`
	DependencyCount int      `json:"dependencyCount"`
	Circular        bool     `json:"circular,omitempty"` // part of a dependency cycle
	Blocked         bool     `json:"blocked,omitempty"`
	FixCategory     string   `json:"fixCategory,omitempty"` // normalized label-derived category for queue routing
}

// Validate checks if the item has valid field values
func (b *BacklogItem) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("item id is required")
	}
	if len(b.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(b.Title))
	}
	if !b.Tier.IsValid() {
		return fmt.Errorf("item %s: invalid tier: %s", b.ID, b.Tier)
	}
	if !b.Type.IsValid() {
		return fmt.Errorf("item %s: invalid type: %s", b.ID, b.Type)
	}
	if b.Estimate != nil && *b.Estimate < 0 {
		return fmt.Errorf("item %s: estimate cannot be negative", b.ID)
	}
	if b.AgeDays < 0 {
		return fmt.Errorf("item %s: ageDays cannot be negative", b.ID)
	}
	if b.DependencyCount < 0 {
		return fmt.Errorf("item %s: dependencyCount cannot be negative", b.ID)
	}
	return nil
}

// SetDefaults applies default values for fields omitted in the snapshot.
// Call this after unmarshaling, before Validate:
//   - Tier: defaults to TierMedium if empty
//   - Type: defaults to TypeFeature if empty
//
// A nil Estimate is left nil; the moderate default is applied downstream so
// the substitution can be flagged.
func (b *BacklogItem) SetDefaults() {
	if b.Tier == "" {
		b.Tier = TierMedium
	}
	if b.Type == "" {
		b.Type = TypeFeature
	}
}

// EffortPoints returns the item's estimate, or DefaultEstimate when the item
// is unestimated.
func (b *BacklogItem) EffortPoints() int {
	if b.Estimate == nil {
		return DefaultEstimate
	}
	return *b.Estimate
}

// CycleHealth summarizes how the in-flight cycle is going
type CycleHealth struct {
	CompletionRate  float64      `json:"completionRate"`
	CurrentVelocity float64      `json:"currentVelocity"`
	AtRiskCount     int          `json:"atRiskCount"`
	Status          HealthStatus `json:"status"`
}

// Validate checks if the health section has valid field values
func (c *CycleHealth) Validate() error {
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid cycle health status: %s", c.Status)
	}
	if c.AtRiskCount < 0 {
		return fmt.Errorf("atRiskCount cannot be negative")
	}
	return nil
}

// VelocityHistory carries recent per-cycle velocity samples and the derived
// statistics the estimator consumes.
type VelocityHistory struct {
	Samples    []float64  `json:"samples,omitempty"` // completed points per cycle, oldest first
	AvgPerDay  float64    `json:"avgPerDay"`
	Trend      Trend      `json:"trend,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// SetDefaults fills derivable fields omitted in the snapshot:
//   - Trend: defaults to TrendStable if empty
//   - Confidence: defaults to ConfidenceLow if empty
func (v *VelocityHistory) SetDefaults() {
	if v.Trend == "" {
		v.Trend = TrendStable
	}
	if v.Confidence == "" {
		v.Confidence = ConfidenceLow
	}
}

// Validate checks if the velocity section has valid field values
func (v *VelocityHistory) Validate() error {
	if !v.Trend.IsValid() {
		return fmt.Errorf("invalid velocity trend: %s", v.Trend)
	}
	if !v.Confidence.IsValid() {
		return fmt.Errorf("invalid velocity confidence: %s", v.Confidence)
	}
	return nil
}

// Relation is one blocking edge in the dependency graph
type Relation struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
}

// DependencyInfo summarizes the snapshot's dependency graph
type DependencyInfo struct {
	BlockedCount       int        `json:"blockedCount"`
	Relations          []Relation `json:"relations,omitempty"`
	CriticalPathLength int        `json:"criticalPathLength"`
	CircularIDs        []string   `json:"circularIds,omitempty"` // items participating in a cycle
}

// CircularSet returns the circular-dependency ids as a lookup set
func (d *DependencyInfo) CircularSet() map[string]bool {
	set := make(map[string]bool, len(d.CircularIDs))
	for _, id := range d.CircularIDs {
		set[id] = true
	}
	return set
}

// BacklogAnalysis is the backlog section of a snapshot
type BacklogAnalysis struct {
	Items      []BacklogItem `json:"items"`
	TotalCount int           `json:"totalCount,omitempty"`
}

// Snapshot is the single immutable input the engine consumes per invocation.
// Section pointers are nil when the snapshot file omitted them, which is the
// one fatal input condition.
type Snapshot struct {
	CurrentCycleHealth *CycleHealth     `json:"currentCycleHealth"`
	HistoricalVelocity *VelocityHistory `json:"historicalVelocity"`
	BacklogAnalysis    *BacklogAnalysis `json:"backlogAnalysis"`
	Dependencies       *DependencyInfo  `json:"dependencies"`
}

// SetDefaults applies defaults to every section and item present
func (s *Snapshot) SetDefaults() {
	if s.HistoricalVelocity != nil {
		s.HistoricalVelocity.SetDefaults()
	}
	if s.BacklogAnalysis != nil {
		for i := range s.BacklogAnalysis.Items {
			s.BacklogAnalysis.Items[i].SetDefaults()
		}
	}
}

// Validate checks that all required top-level sections are present and that
// every section and item is well formed. A missing section returns an error
// wrapping ErrInvalidInput that names every absent section.
func (s *Snapshot) Validate() error {
	var missing []string
	if s.CurrentCycleHealth == nil {
		missing = append(missing, "currentCycleHealth")
	}
	if s.HistoricalVelocity == nil {
		missing = append(missing, "historicalVelocity")
	}
	if s.BacklogAnalysis == nil {
		missing = append(missing, "backlogAnalysis")
	}
	if s.Dependencies == nil {
		missing = append(missing, "dependencies")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required sections: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if err := s.CurrentCycleHealth.Validate(); err != nil {
		return fmt.Errorf("currentCycleHealth: %w", err)
	}
	if err := s.HistoricalVelocity.Validate(); err != nil {
		return fmt.Errorf("historicalVelocity: %w", err)
	}
	for i := range s.BacklogAnalysis.Items {
		if err := s.BacklogAnalysis.Items[i].Validate(); err != nil {
			return fmt.Errorf("backlogAnalysis: %w", err)
		}
	}
	return nil
}

// Items returns the backlog item list, or nil for an unvalidated snapshot
// with no backlog section.
func (s *Snapshot) Items() []BacklogItem {
	if s.BacklogAnalysis == nil {
		return nil
	}
	return s.BacklogAnalysis.Items
}

// CapacityBudget is the point-value ceiling of work selectable for the
// upcoming cycle. Points is never negative.
type CapacityBudget struct {
	Points             float64 `json:"points"`
	ConfidenceAdjusted bool    `json:"confidenceAdjusted"` // confidence multiplier changed the value
	BufferApplied      bool    `json:"bufferApplied"`      // safety buffer changed the value
}

// SubScores are the five per-factor scores backing a final priority score.
// Each is on the 0-10 bucket scale before weighting.
type SubScores struct {
	BusinessValue float64 `json:"businessValue"`
	Complexity    float64 `json:"complexity"`
	Risk          float64 `json:"risk"`
	Age           float64 `json:"age"`
	DebtImpact    float64 `json:"debtImpact"`
}

// ScoredItem pairs a backlog item with its priority score. Score lands in
// [0, 2]: the documented policy divides the weighted factor sum by 5, which
// compresses the range, and that constant is preserved as-is.
type ScoredItem struct {
	Item   BacklogItem `json:"item"`
	Scores SubScores   `json:"scores"`
	Score  float64     `json:"score"`
}

// SelectionResult is the accepted work for the upcoming cycle. Items holds
// the accepted set in selection order; Debt and Features partition the same
// set by id.
type SelectionResult struct {
	Items       []ScoredItem `json:"items"`
	Debt        []string     `json:"debt,omitempty"`
	Features    []string     `json:"features,omitempty"`
	TotalEffort int          `json:"totalEffort"`
	DebtRatio   float64      `json:"debtRatio"`   // debt effort / total effort; 0 when nothing selected
	Utilization float64      `json:"utilization"` // total effort / capacity; 0 when capacity is 0
}

// Queue identifies a downstream execution queue
type Queue string

// Execution queue constants
const (
	QueueExecutor Queue = "executor" // mechanical, low-risk changes
	QueueGuardian Queue = "guardian" // pipeline and infrastructure work
	QueueAuditor  Queue = "auditor"  // review, assessment, and audit work
)

// IsValid checks if the queue value is valid
func (q Queue) IsValid() bool {
	switch q {
	case QueueExecutor, QueueGuardian, QueueAuditor:
		return true
	}
	return false
}

// WorkQueues partitions the selected item ids into the three execution
// queues. The lists are disjoint and preserve selection order.
type WorkQueues struct {
	Executor []string `json:"executor"`
	Guardian []string `json:"guardian"`
	Auditor  []string `json:"auditor"`
}

// Total returns the number of queued ids across all three queues
func (w *WorkQueues) Total() int {
	return len(w.Executor) + len(w.Guardian) + len(w.Auditor)
}

// RiskAssessment summarizes what the selector excluded and why
type RiskAssessment struct {
	BlockedExcluded    []string `json:"blockedExcluded,omitempty"`
	CircularExcluded   []string `json:"circularExcluded,omitempty"`
	AtRiskCount        int      `json:"atRiskCount"`
	CriticalPathLength int      `json:"criticalPathLength"`
}

// FlagKind labels an advisory condition raised during planning
type FlagKind string

// Advisory flag constants
const (
	// FlagInsufficientData marks items that needed the moderate default
	// because a field (usually the estimate) was missing.
	FlagInsufficientData FlagKind = "insufficient_data"
	// FlagCapacityExhausted marks a run whose computed capacity was zero.
	FlagCapacityExhausted FlagKind = "capacity_exhausted"
)

// Flag is an advisory condition attached to a plan. Flags degrade gracefully:
// they never abort the run.
type Flag struct {
	Kind    FlagKind `json:"kind"`
	ItemIDs []string `json:"itemIds,omitempty"`
	Message string   `json:"message,omitempty"`
}

// PlanResult is the engine's full structured output for one invocation
type PlanResult struct {
	Capacity  CapacityBudget  `json:"capacity"`
	Selection SelectionResult `json:"selection"`
	Queues    WorkQueues      `json:"queues"`
	Risk      RiskAssessment  `json:"risk"`
	Flags     []Flag          `json:"flags,omitempty"`
}

// HasFlag reports whether a flag of the given kind is present
func (p *PlanResult) HasFlag(kind FlagKind) bool {
	for _, f := range p.Flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// FindFlag returns the first flag of the given kind, or nil
func (p *PlanResult) FindFlag(kind FlagKind) *Flag {
	for i := range p.Flags {
		if p.Flags[i].Kind == kind {
			return &p.Flags[i]
		}
	}
	return nil
}
