package linear

import (
	"sort"
	"strings"
	"time"

	"github.com/abacushq/abacus/internal/queues"
	"github.com/abacushq/abacus/internal/types"
)

// Linear priorities: 0 = none, 1 = urgent, 2 = high, 3 = medium, 4 = low.
var priorityTiers = map[int]types.Tier{
	1: types.TierUrgent,
	2: types.TierHigh,
	3: types.TierMedium,
	4: types.TierLow,
}

func tierFromPriority(p int) types.Tier {
	if tier, ok := priorityTiers[p]; ok {
		return tier
	}
	return types.TierMedium
}

// labelTypeRules maps label keywords to item types, most specific first so
// the substring pass cannot mistake "technical-debt" for plain "debt".
var labelTypeRules = []struct {
	keyword  string
	itemType types.ItemType
}{
	{"technical-debt", types.TypeTechDebt},
	{"tech-debt", types.TypeTechDebt},
	{"debt", types.TypeTechDebt},
	{"refactor", types.TypeTechDebt},
	{"vulnerability", types.TypeSecurity},
	{"security", types.TypeSecurity},
	{"defect", types.TypeBug},
	{"bug", types.TypeBug},
	{"enhancement", types.TypeFeature},
	{"feature", types.TypeFeature},
}

// typeFromLabels infers the work type from issue labels: exact keyword match
// first, then a contains pass. Unlabeled issues default to feature.
func typeFromLabels(labels []labelPayload) types.ItemType {
	for _, label := range labels {
		name := strings.ToLower(label.Name)
		for _, rule := range labelTypeRules {
			if name == rule.keyword {
				return rule.itemType
			}
		}
	}
	for _, label := range labels {
		name := strings.ToLower(label.Name)
		for _, rule := range labelTypeRules {
			if strings.Contains(name, rule.keyword) {
				return rule.itemType
			}
		}
	}
	return types.TypeFeature
}

// categoryFromLabels extracts a routing category from a "category/<name>" or
// "category:<name>" label. The first such label wins.
func categoryFromLabels(labels []labelPayload) string {
	for _, label := range labels {
		name := strings.ToLower(strings.TrimSpace(label.Name))
		for _, prefix := range []string{"category/", "category:"} {
			if strings.HasPrefix(name, prefix) {
				return string(queues.Normalize(strings.TrimPrefix(name, prefix)))
			}
		}
	}
	return ""
}

// itemFromIssue converts one Linear issue to a backlog item. Graph-derived
// fields (blocked, circular, dependency count) are filled by the caller.
func itemFromIssue(p issuePayload, now time.Time) types.BacklogItem {
	item := types.BacklogItem{
		ID:          p.Identifier,
		Title:       p.Title,
		Tier:        tierFromPriority(p.Priority),
		Type:        typeFromLabels(p.Labels.Nodes),
		FixCategory: categoryFromLabels(p.Labels.Nodes),
	}
	if p.Estimate != nil && *p.Estimate >= 0 {
		est := int(*p.Estimate + 0.5)
		item.Estimate = &est
	}
	if !p.CreatedAt.IsZero() {
		if age := int(now.Sub(p.CreatedAt).Hours() / 24); age > 0 {
			item.AgeDays = age
		}
	}
	return item
}

// graphInfo is the digest of the blocking graph over fetched issues
type graphInfo struct {
	edges        []types.Relation
	incident     map[string]int
	blocked      map[string]bool
	circular     map[string]bool
	criticalPath int
}

func (g *graphInfo) circularIDs() []string {
	ids := make([]string, 0, len(g.circular))
	for id := range g.circular {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// analyzeGraph builds the blocking graph from issue relations and derives
// blocked flags, cycle membership, and the longest blocker chain. Both sides
// of a relation report it, so edges are deduplicated. Edges pointing at
// issues outside the fetched set are dropped.
func analyzeGraph(issues []issuePayload) *graphInfo {
	known := make(map[string]bool, len(issues))
	for _, iss := range issues {
		known[iss.Identifier] = true
	}

	g := &graphInfo{
		incident: make(map[string]int),
		blocked:  make(map[string]bool),
		circular: make(map[string]bool),
	}
	succ := make(map[string][]string)
	seen := make(map[string]bool)

	for _, iss := range issues {
		for _, rel := range iss.Relations.Nodes {
			var blocker, blockedID string
			switch rel.Type {
			case "blocks":
				blocker, blockedID = iss.Identifier, rel.RelatedIssue.Identifier
			case "blockedBy":
				// Inverse: the related issue blocks this one.
				blocker, blockedID = rel.RelatedIssue.Identifier, iss.Identifier
			default:
				continue
			}
			if !known[blocker] || !known[blockedID] || blocker == blockedID {
				continue
			}
			key := blocker + "\x00" + blockedID
			if seen[key] {
				continue
			}
			seen[key] = true
			succ[blocker] = append(succ[blocker], blockedID)
			g.edges = append(g.edges, types.Relation{Blocker: blocker, Blocked: blockedID})
			g.blocked[blockedID] = true
		}
	}
	if len(g.edges) == 0 {
		return g
	}

	// Depth-first coloring. A back edge into a gray node marks everything
	// from that node up the stack as part of a cycle; depth memoizes the
	// longest blocker chain, counted in nodes, starting at each node.
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(known))
	depth := make(map[string]int, len(known))
	var stack []string

	var visit func(id string) int
	visit = func(id string) int {
		color[id] = gray
		stack = append(stack, id)
		longest := 0
		for _, next := range succ[id] {
			switch color[next] {
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					g.circular[stack[i]] = true
					if stack[i] == next {
						break
					}
				}
			case white:
				if d := visit(next); d > longest {
					longest = d
				}
			default:
				if d := depth[next]; d > longest {
					longest = d
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		depth[id] = longest + 1
		return longest + 1
	}

	for _, iss := range issues {
		if color[iss.Identifier] == white {
			if d := visit(iss.Identifier); d > g.criticalPath {
				g.criticalPath = d
			}
		}
	}

	for _, e := range g.edges {
		g.incident[e.Blocker]++
		g.incident[e.Blocked]++
	}
	return g
}

// Health thresholds compare cycle progress against the elapsed fraction of
// the cycle window.
const (
	aheadMargin  = 0.10
	onTrackSlack = 0.10
	atRiskSlack  = 0.25
)

// healthFromCycle grades the active cycle. With no active cycle the team is
// between cycles and reported as on track with zero progress.
func healthFromCycle(c *cyclePayload, now time.Time) types.CycleHealth {
	health := types.CycleHealth{Status: types.HealthOnTrack}
	if c == nil {
		return health
	}
	health.CompletionRate = c.Progress

	window := c.EndsAt.Sub(c.StartsAt)
	if window <= 0 {
		return health
	}
	elapsed := now.Sub(c.StartsAt)
	frac := float64(elapsed) / float64(window)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	switch {
	case c.Progress >= frac+aheadMargin:
		health.Status = types.HealthAhead
	case c.Progress >= frac-onTrackSlack:
		health.Status = types.HealthOnTrack
	case c.Progress >= frac-atRiskSlack:
		health.Status = types.HealthAtRisk
	default:
		health.Status = types.HealthBehind
	}

	if days := elapsed.Hours() / 24; days >= 1 && len(c.CompletedScopeHistory) > 0 {
		health.CurrentVelocity = c.CompletedScopeHistory[len(c.CompletedScopeHistory)-1] / days
	}
	return health
}

// samplesFromCycles extracts completed points per past cycle, oldest first.
// Each cycle's last history entry is its final completed total.
func samplesFromCycles(cycles []cyclePayload) []float64 {
	ordered := make([]cyclePayload, len(cycles))
	copy(ordered, cycles)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var samples []float64
	for _, c := range ordered {
		if len(c.CompletedScopeHistory) == 0 {
			continue
		}
		samples = append(samples, c.CompletedScopeHistory[len(c.CompletedScopeHistory)-1])
	}
	return samples
}

// buildSnapshot assembles the full planning snapshot from fetched data
func buildSnapshot(team *teamPayload, issues []issuePayload, now time.Time) *types.Snapshot {
	graph := analyzeGraph(issues)

	items := make([]types.BacklogItem, 0, len(issues))
	for _, iss := range issues {
		item := itemFromIssue(iss, now)
		item.DependencyCount = graph.incident[item.ID]
		item.Blocked = graph.blocked[item.ID]
		item.Circular = graph.circular[item.ID]
		items = append(items, item)
	}

	health := healthFromCycle(team.ActiveCycle, now)
	// Blocked backlog is the best at-risk proxy available from this data.
	health.AtRiskCount = len(graph.blocked)

	// Grade trend and confidence from the cycle samples, as snapshot loading
	// does for files. AvgPerDay stays zero: its derivation needs the cycle
	// length, which only the planner knows.
	velocity := &types.VelocityHistory{Samples: samplesFromCycles(team.Cycles.Nodes)}
	if len(velocity.Samples) > 0 {
		derived := types.DeriveVelocity(velocity.Samples, 0)
		velocity.Trend = derived.Trend
		velocity.Confidence = derived.Confidence
	}

	snap := &types.Snapshot{
		CurrentCycleHealth: &health,
		HistoricalVelocity: velocity,
		BacklogAnalysis:    &types.BacklogAnalysis{Items: items, TotalCount: len(items)},
		Dependencies: &types.DependencyInfo{
			BlockedCount:       len(graph.blocked),
			Relations:          graph.edges,
			CriticalPathLength: graph.criticalPath,
			CircularIDs:        graph.circularIDs(),
		},
	}
	snap.SetDefaults()
	return snap
}
