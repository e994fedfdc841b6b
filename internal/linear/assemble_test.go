package linear

import (
	"math"
	"testing"
	"time"

	"github.com/abacushq/abacus/internal/types"
)

func floatPtr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTierFromPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority int
		want     types.Tier
	}{
		{"no priority defaults to medium", 0, types.TierMedium},
		{"urgent", 1, types.TierUrgent},
		{"high", 2, types.TierHigh},
		{"medium", 3, types.TierMedium},
		{"low", 4, types.TierLow},
		{"unknown value defaults to medium", 7, types.TierMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tierFromPriority(tt.priority); got != tt.want {
				t.Errorf("tierFromPriority(%d) = %s, want %s", tt.priority, got, tt.want)
			}
		})
	}
}

func TestTypeFromLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   types.ItemType
	}{
		{"no labels defaults to feature", nil, types.TypeFeature},
		{"exact bug label", []string{"Bug"}, types.TypeBug},
		{"defect maps to bug", []string{"customer", "Defect"}, types.TypeBug},
		{"security keyword inside label", []string{"Security Review"}, types.TypeSecurity},
		{"technical debt exact", []string{"technical-debt"}, types.TypeTechDebt},
		{"debt keyword inside label", []string{"debt-service"}, types.TypeTechDebt},
		{"refactor maps to debt", []string{"refactor"}, types.TypeTechDebt},
		{"unrelated labels default to feature", []string{"platform", "q3"}, types.TypeFeature},
		{"exact match beats substring match", []string{"bugfix", "feature"}, types.TypeFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := make([]labelPayload, len(tt.labels))
			for i, name := range tt.labels {
				labels[i] = labelPayload{Name: name}
			}
			if got := typeFromLabels(labels); got != tt.want {
				t.Errorf("typeFromLabels(%v) = %s, want %s", tt.labels, got, tt.want)
			}
		})
	}
}

func TestCategoryFromLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"no category label", []string{"bug", "urgent"}, ""},
		{"slash prefix", []string{"Category/CI-CD Pipeline"}, "ci-cd-pipeline"},
		{"colon prefix", []string{"category:dead code removal"}, "dead-code-removal"},
		{"first category label wins", []string{"category/formatting", "category/security-audit"}, "formatting"},
		{"prefix is case insensitive", []string{"CATEGORY/Documentation"}, "documentation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := make([]labelPayload, len(tt.labels))
			for i, name := range tt.labels {
				labels[i] = labelPayload{Name: name}
			}
			if got := categoryFromLabels(labels); got != tt.want {
				t.Errorf("categoryFromLabels(%v) = %q, want %q", tt.labels, got, tt.want)
			}
		})
	}
}

func TestItemFromIssue(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		issue        issuePayload
		wantEstimate *int
		wantAge      int
		wantTier     types.Tier
	}{
		{
			name: "estimate rounds to nearest point",
			issue: issuePayload{
				Identifier: "ENG-1",
				Estimate:   floatPtr(2.5),
				Priority:   2,
				CreatedAt:  now.AddDate(0, 0, -10),
			},
			wantEstimate: intPtr(3),
			wantAge:      10,
			wantTier:     types.TierHigh,
		},
		{
			name: "fractional estimate rounds down",
			issue: issuePayload{
				Identifier: "ENG-2",
				Estimate:   floatPtr(2.4),
				Priority:   4,
				CreatedAt:  now.AddDate(0, 0, -1),
			},
			wantEstimate: intPtr(2),
			wantAge:      1,
			wantTier:     types.TierLow,
		},
		{
			name: "missing estimate stays nil",
			issue: issuePayload{
				Identifier: "ENG-3",
				Priority:   1,
				CreatedAt:  now.AddDate(0, 0, -40),
			},
			wantEstimate: nil,
			wantAge:      40,
			wantTier:     types.TierUrgent,
		},
		{
			name: "future creation date yields zero age",
			issue: issuePayload{
				Identifier: "ENG-4",
				Estimate:   floatPtr(1),
				CreatedAt:  now.AddDate(0, 0, 2),
			},
			wantEstimate: intPtr(1),
			wantAge:      0,
			wantTier:     types.TierMedium,
		},
		{
			name:         "zero creation date yields zero age",
			issue:        issuePayload{Identifier: "ENG-5"},
			wantEstimate: nil,
			wantAge:      0,
			wantTier:     types.TierMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := itemFromIssue(tt.issue, now)
			if item.ID != tt.issue.Identifier {
				t.Errorf("ID = %s, want %s", item.ID, tt.issue.Identifier)
			}
			switch {
			case tt.wantEstimate == nil && item.Estimate != nil:
				t.Errorf("Estimate = %d, want nil", *item.Estimate)
			case tt.wantEstimate != nil && item.Estimate == nil:
				t.Errorf("Estimate = nil, want %d", *tt.wantEstimate)
			case tt.wantEstimate != nil && *item.Estimate != *tt.wantEstimate:
				t.Errorf("Estimate = %d, want %d", *item.Estimate, *tt.wantEstimate)
			}
			if item.AgeDays != tt.wantAge {
				t.Errorf("AgeDays = %d, want %d", item.AgeDays, tt.wantAge)
			}
			if item.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s", item.Tier, tt.wantTier)
			}
		})
	}
}

func blockerIssue(id string, blocks ...string) issuePayload {
	iss := issuePayload{Identifier: id}
	for _, target := range blocks {
		rel := relationPayload{Type: "blocks"}
		rel.RelatedIssue.Identifier = target
		iss.Relations.Nodes = append(iss.Relations.Nodes, rel)
	}
	return iss
}

func TestAnalyzeGraphChainAndCycle(t *testing.T) {
	issues := []issuePayload{
		blockerIssue("ENG-10", "ENG-11"),
		blockerIssue("ENG-11", "ENG-12"),
		blockerIssue("ENG-12"),
		blockerIssue("ENG-20", "ENG-21"),
		blockerIssue("ENG-21", "ENG-20"),
	}

	g := analyzeGraph(issues)

	if len(g.edges) != 4 {
		t.Fatalf("edges = %d, want 4", len(g.edges))
	}
	if g.criticalPath != 3 {
		t.Errorf("criticalPath = %d, want 3", g.criticalPath)
	}

	wantBlocked := []string{"ENG-11", "ENG-12", "ENG-20", "ENG-21"}
	for _, id := range wantBlocked {
		if !g.blocked[id] {
			t.Errorf("expected %s to be blocked", id)
		}
	}
	if g.blocked["ENG-10"] {
		t.Error("ENG-10 has no blockers, should not be blocked")
	}

	gotCircular := g.circularIDs()
	wantCircular := []string{"ENG-20", "ENG-21"}
	if len(gotCircular) != len(wantCircular) {
		t.Fatalf("circular = %v, want %v", gotCircular, wantCircular)
	}
	for i, id := range wantCircular {
		if gotCircular[i] != id {
			t.Errorf("circular[%d] = %s, want %s", i, gotCircular[i], id)
		}
	}

	if g.incident["ENG-11"] != 2 {
		t.Errorf("incident[ENG-11] = %d, want 2", g.incident["ENG-11"])
	}
	if g.incident["ENG-12"] != 1 {
		t.Errorf("incident[ENG-12] = %d, want 1", g.incident["ENG-12"])
	}
}

func TestAnalyzeGraphDeduplicatesMirroredRelations(t *testing.T) {
	blocked := issuePayload{Identifier: "ENG-31"}
	rel := relationPayload{Type: "blockedBy"}
	rel.RelatedIssue.Identifier = "ENG-30"
	blocked.Relations.Nodes = append(blocked.Relations.Nodes, rel)

	issues := []issuePayload{
		blockerIssue("ENG-30", "ENG-31"),
		blocked,
	}

	g := analyzeGraph(issues)

	if len(g.edges) != 1 {
		t.Fatalf("edges = %d, want 1 after dedup", len(g.edges))
	}
	if g.edges[0].Blocker != "ENG-30" || g.edges[0].Blocked != "ENG-31" {
		t.Errorf("edge = %+v, want ENG-30 blocks ENG-31", g.edges[0])
	}
	if g.criticalPath != 2 {
		t.Errorf("criticalPath = %d, want 2", g.criticalPath)
	}
}

func TestAnalyzeGraphIgnoresUnknownAndSelfEdges(t *testing.T) {
	self := blockerIssue("ENG-40", "ENG-40")
	issues := []issuePayload{
		self,
		blockerIssue("ENG-41", "GONE-99"),
	}

	g := analyzeGraph(issues)

	if len(g.edges) != 0 {
		t.Errorf("edges = %d, want 0", len(g.edges))
	}
	if g.criticalPath != 0 {
		t.Errorf("criticalPath = %d, want 0 with no edges", g.criticalPath)
	}
	if len(g.blocked) != 0 {
		t.Errorf("blocked = %v, want empty", g.blocked)
	}
}

func TestHealthFromCycle(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	starts := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)

	cycle := func(progress float64) *cyclePayload {
		return &cyclePayload{Number: 9, StartsAt: starts, EndsAt: ends, Progress: progress}
	}

	tests := []struct {
		name  string
		cycle *cyclePayload
		want  types.HealthStatus
	}{
		{"no active cycle", nil, types.HealthOnTrack},
		{"well ahead of schedule", cycle(0.65), types.HealthAhead},
		{"exactly at the ahead margin", cycle(0.60), types.HealthAhead},
		{"tracking the elapsed fraction", cycle(0.45), types.HealthOnTrack},
		{"slipping but recoverable", cycle(0.30), types.HealthAtRisk},
		{"well behind schedule", cycle(0.20), types.HealthBehind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := healthFromCycle(tt.cycle, now)
			if got.Status != tt.want {
				t.Errorf("Status = %s, want %s", got.Status, tt.want)
			}
		})
	}

	t.Run("current velocity from completed scope", func(t *testing.T) {
		c := cycle(0.45)
		c.CompletedScopeHistory = []float64{2, 5, 9, 14, 21}
		got := healthFromCycle(c, now)
		if !almostEqual(got.CurrentVelocity, 3.0) {
			t.Errorf("CurrentVelocity = %f, want 3.0", got.CurrentVelocity)
		}
		if !almostEqual(got.CompletionRate, 0.45) {
			t.Errorf("CompletionRate = %f, want 0.45", got.CompletionRate)
		}
	})

	t.Run("zero-length cycle window", func(t *testing.T) {
		c := &cyclePayload{StartsAt: starts, EndsAt: starts, Progress: 0.9}
		got := healthFromCycle(c, now)
		if got.Status != types.HealthOnTrack {
			t.Errorf("Status = %s, want on_track for degenerate window", got.Status)
		}
	})
}

func TestSamplesFromCycles(t *testing.T) {
	cycles := []cyclePayload{
		{Number: 8, CompletedScopeHistory: []float64{6, 12, 18}},
		{Number: 6, CompletedScopeHistory: []float64{4, 9, 14}},
		{Number: 7, CompletedScopeHistory: []float64{5, 10, 16}},
		{Number: 5},
	}

	got := samplesFromCycles(cycles)
	want := []float64{14, 16, 18}

	if len(got) != len(want) {
		t.Fatalf("samples = %v, want %v", got, want)
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("samples[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	team := &teamPayload{
		ID:  "team-1",
		Key: "ENG",
		ActiveCycle: &cyclePayload{
			Number:                9,
			StartsAt:              time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			EndsAt:                time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC),
			Progress:              0.45,
			CompletedScopeHistory: []float64{2, 5, 9, 14, 21},
		},
	}
	team.Cycles.Nodes = []cyclePayload{
		{Number: 7, CompletedScopeHistory: []float64{16}},
		{Number: 8, CompletedScopeHistory: []float64{18}},
	}

	blocker := blockerIssue("ENG-50", "ENG-51")
	blocker.Title = "Stand up staging cluster"
	blocker.Estimate = floatPtr(8)
	blocker.Priority = 2
	blocker.CreatedAt = now.AddDate(0, 0, -30)

	blocked := issuePayload{
		Identifier: "ENG-51",
		Title:      "Migrate traffic to staging",
		Priority:   3,
		CreatedAt:  now.AddDate(0, 0, -12),
	}

	snap := buildSnapshot(team, []issuePayload{blocker, blocked}, now)

	if err := snap.Validate(); err != nil {
		t.Fatalf("assembled snapshot failed validation: %v", err)
	}

	items := snap.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if snap.BacklogAnalysis.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", snap.BacklogAnalysis.TotalCount)
	}
	if items[0].Blocked {
		t.Error("ENG-50 should not be blocked")
	}
	if !items[1].Blocked {
		t.Error("ENG-51 should be blocked")
	}
	if items[1].Estimate != nil {
		t.Error("ENG-51 has no estimate in Linear, Estimate should stay nil")
	}
	if items[0].DependencyCount != 1 || items[1].DependencyCount != 1 {
		t.Errorf("dependency counts = %d/%d, want 1/1", items[0].DependencyCount, items[1].DependencyCount)
	}

	deps := snap.Dependencies
	if deps.BlockedCount != 1 {
		t.Errorf("BlockedCount = %d, want 1", deps.BlockedCount)
	}
	if deps.CriticalPathLength != 2 {
		t.Errorf("CriticalPathLength = %d, want 2", deps.CriticalPathLength)
	}
	if len(deps.CircularIDs) != 0 {
		t.Errorf("CircularIDs = %v, want none", deps.CircularIDs)
	}

	health := snap.CurrentCycleHealth
	if health.Status != types.HealthOnTrack {
		t.Errorf("health = %s, want on_track", health.Status)
	}
	if health.AtRiskCount != 1 {
		t.Errorf("AtRiskCount = %d, want 1 (blocked item proxy)", health.AtRiskCount)
	}

	samples := snap.HistoricalVelocity.Samples
	if len(samples) != 2 || !almostEqual(samples[0], 16) || !almostEqual(samples[1], 18) {
		t.Errorf("Samples = %v, want [16 18]", samples)
	}
	if snap.HistoricalVelocity.AvgPerDay != 0 {
		t.Error("AvgPerDay should be left for the planner to derive")
	}
	if snap.HistoricalVelocity.Trend != types.TrendStable {
		t.Errorf("Trend = %q, want %q graded from the samples", snap.HistoricalVelocity.Trend, types.TrendStable)
	}
	if snap.HistoricalVelocity.Confidence != types.ConfidenceLow {
		t.Errorf("Confidence = %q, want %q for two samples", snap.HistoricalVelocity.Confidence, types.ConfidenceLow)
	}
}
