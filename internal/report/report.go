// Package report renders a plan result as a markdown cycle report and as
// machine-readable JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abacushq/abacus/internal/types"
	"github.com/abacushq/abacus/internal/ui"
)

// Commitment band thresholds as shares of plan capacity. Items fitting
// inside the first 70% of capacity are hard commitments; the 70-90% slice
// is expected; the tail is opportunistic.
const (
	mustShare   = 0.70
	shouldShare = 0.90
)

// QuickWinPoints is the effort ceiling for flagging an item as a quick win.
const QuickWinPoints = 2

// maxTitleWidth truncates long titles in report tables
const maxTitleWidth = 48

// Band is the commitment band of a selected item
type Band string

// Commitment band constants
const (
	BandMust   Band = "must"
	BandShould Band = "should"
	BandCould  Band = "could"
)

// Meta carries run context that is not part of the plan result itself
type Meta struct {
	Team        string
	GeneratedAt time.Time
	CycleDays   int
	CycleStart  time.Time // planned cycle start date; zero when not scheduled
}

// Bands assigns a commitment band to each selected item, in selection
// order: an item is a must while cumulative effort stays within 70% of
// capacity, a should within 90%, and a could past that.
func Bands(sel types.SelectionResult, capacity float64) []Band {
	bands := make([]Band, len(sel.Items))

	cum := 0.0
	for i, item := range sel.Items {
		cum += float64(item.Item.EffortPoints())
		switch {
		case cum <= capacity*mustShare:
			bands[i] = BandMust
		case cum <= capacity*shouldShare:
			bands[i] = BandShould
		default:
			bands[i] = BandCould
		}
	}
	return bands
}

// QuickWins returns the ids of selected items at or under QuickWinPoints,
// in selection order.
func QuickWins(sel types.SelectionResult) []string {
	var wins []string
	for _, item := range sel.Items {
		if item.Item.EffortPoints() <= QuickWinPoints {
			wins = append(wins, item.Item.ID)
		}
	}
	return wins
}

// Markdown renders the full cycle report. The snapshot supplies velocity
// and health context that the plan result does not carry.
func Markdown(result *types.PlanResult, snap *types.Snapshot, meta Meta) string {
	var b strings.Builder

	title := "Cycle Plan"
	if meta.Team != "" {
		title += " — " + meta.Team
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !meta.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Generated %s\n\n", meta.GeneratedAt.Format("2006-01-02 15:04"))
	}

	writeCapacity(&b, result, snap, meta)
	writeSelection(&b, result)
	writeBalance(&b, result)
	writeQueues(&b, result)
	writeRisk(&b, result)
	writeAdvisories(&b, result)

	return b.String()
}

func writeCapacity(b *strings.Builder, result *types.PlanResult, snap *types.Snapshot, meta Meta) {
	b.WriteString("## Capacity\n\n")

	days := meta.CycleDays
	if days <= 0 {
		days = types.DefaultCycleDays
	}

	var notes []string
	if result.Capacity.ConfidenceAdjusted {
		notes = append(notes, "confidence-adjusted")
	}
	if result.Capacity.BufferApplied {
		notes = append(notes, "15% buffer")
	}
	suffix := ""
	if len(notes) > 0 {
		suffix = " (" + strings.Join(notes, ", ") + ")"
	}

	fmt.Fprintf(b, "- Available capacity: **%.1f points**%s\n", result.Capacity.Points, suffix)
	fmt.Fprintf(b, "- Cycle length: %d days\n", days)
	if !meta.CycleStart.IsZero() {
		end := meta.CycleStart.AddDate(0, 0, days)
		fmt.Fprintf(b, "- Cycle window: %s to %s\n",
			meta.CycleStart.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	if v := snap.HistoricalVelocity; v != nil {
		fmt.Fprintf(b, "- Historical velocity: %.2f pts/day (%s confidence, %s trend)\n", v.AvgPerDay, v.Confidence, v.Trend)
	}
	if h := snap.CurrentCycleHealth; h != nil {
		fmt.Fprintf(b, "- Current cycle health: %s\n", h.Status)
	}
	b.WriteString("\n")
}

func writeSelection(b *strings.Builder, result *types.PlanResult) {
	sel := result.Selection
	fmt.Fprintf(b, "## Selected Work (%d items, %d points, %.0f%% utilized)\n\n",
		len(sel.Items), sel.TotalEffort, sel.Utilization*100)

	if len(sel.Items) == 0 {
		b.WriteString("No items selected.\n\n")
		return
	}

	bands := Bands(sel, result.Capacity.Points)
	b.WriteString("| Band | ID | Title | Tier | Type | Points | Score |\n")
	b.WriteString("|------|----|-------|------|------|--------|-------|\n")
	for i, item := range sel.Items {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %d | %.2f |\n",
			bands[i], item.Item.ID, tableCell(item.Item.Title),
			item.Item.Tier, item.Item.Type, item.Item.EffortPoints(), item.Score)
	}
	b.WriteString("\n")

	if wins := QuickWins(sel); len(wins) > 0 {
		fmt.Fprintf(b, "Quick wins (≤%d pts): %s\n\n", QuickWinPoints, strings.Join(wins, ", "))
	}
}

func writeBalance(b *strings.Builder, result *types.PlanResult) {
	sel := result.Selection
	if sel.TotalEffort == 0 {
		return
	}

	debtPts := int(sel.DebtRatio*float64(sel.TotalEffort) + 0.5)
	featurePts := sel.TotalEffort - debtPts

	b.WriteString("## Debt / Feature Balance\n\n")
	fmt.Fprintf(b, "- Debt: %d points (%.0f%%, target 30%%)\n", debtPts, sel.DebtRatio*100)
	fmt.Fprintf(b, "- Features: %d points (%.0f%%, target 70%%)\n", featurePts, (1-sel.DebtRatio)*100)
	b.WriteString("\n")
}

func writeQueues(b *strings.Builder, result *types.PlanResult) {
	if result.Queues.Total() == 0 {
		return
	}

	b.WriteString("## Execution Queues\n\n")
	writeQueue(b, types.QueueExecutor, result.Queues.Executor)
	writeQueue(b, types.QueueGuardian, result.Queues.Guardian)
	writeQueue(b, types.QueueAuditor, result.Queues.Auditor)
	b.WriteString("\n")
}

func writeQueue(b *strings.Builder, q types.Queue, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(b, "- %s (0): —\n", q)
		return
	}
	fmt.Fprintf(b, "- %s (%d): %s\n", q, len(ids), strings.Join(ids, ", "))
}

func writeRisk(b *strings.Builder, result *types.PlanResult) {
	risk := result.Risk
	if len(risk.CircularExcluded) == 0 && len(risk.BlockedExcluded) == 0 &&
		risk.AtRiskCount == 0 && risk.CriticalPathLength == 0 {
		return
	}

	b.WriteString("## Risk\n\n")
	if n := len(risk.CircularExcluded); n > 0 {
		fmt.Fprintf(b, "- %d excluded for circular dependencies: %s\n", n, strings.Join(risk.CircularExcluded, ", "))
	}
	if n := len(risk.BlockedExcluded); n > 0 {
		fmt.Fprintf(b, "- %d excluded as blocked: %s\n", n, strings.Join(risk.BlockedExcluded, ", "))
	}
	if risk.AtRiskCount > 0 {
		fmt.Fprintf(b, "- %d items at risk in the current cycle\n", risk.AtRiskCount)
	}
	if risk.CriticalPathLength > 0 {
		fmt.Fprintf(b, "- Critical path length: %d\n", risk.CriticalPathLength)
	}
	b.WriteString("\n")
}

func writeAdvisories(b *strings.Builder, result *types.PlanResult) {
	if len(result.Flags) == 0 {
		return
	}

	b.WriteString("## Advisories\n\n")
	for _, flag := range result.Flags {
		line := "- **" + string(flag.Kind) + "**"
		if flag.Message != "" {
			line += ": " + flag.Message
		}
		if len(flag.ItemIDs) > 0 {
			line += " (" + strings.Join(flag.ItemIDs, ", ") + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

// tableCell escapes and truncates a value for a markdown table cell
func tableCell(s string) string {
	s = ui.TruncateSimple(s, maxTitleWidth)
	return strings.ReplaceAll(s, "|", "\\|")
}

// WriteJSON writes the plan result as indented JSON, matching the shape the
// --json flag emits everywhere else.
func WriteJSON(w io.Writer, result *types.PlanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode plan result: %w", err)
	}
	return nil
}
