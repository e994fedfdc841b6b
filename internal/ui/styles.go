// Package ui provides terminal styling for abacus CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abacushq/abacus/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	// Semantic status colors (Ayu theme - adaptive light/dark)
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

// Status styles - consistent across all commands
var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

// Status icons - consistent semantic indicators
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
	IconInfo = "ℹ"
)

// Tree characters for hierarchical display
const (
	TreeChild  = "⎿ "  // child indicator
	TreeLast   = "└─ " // last child / detail line
	TreeIndent = "  "  // 2-space indent per level
)

// Separators
const (
	SeparatorLight = "──────────────────────────────────────────"
	SeparatorHeavy = "══════════════════════════════════════════"
)

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderWarn renders text with warning (yellow) styling
func RenderWarn(s string) string {
	return WarnStyle.Render(s)
}

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderAccent renders text with accent (blue) styling
func RenderAccent(s string) string {
	return AccentStyle.Render(s)
}

// RenderCategory renders a category header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderTier colors a priority tier: urgent red, high yellow, medium blue,
// low muted.
func RenderTier(tier types.Tier) string {
	s := string(tier)
	switch tier {
	case types.TierUrgent:
		return FailStyle.Render(s)
	case types.TierHigh:
		return WarnStyle.Render(s)
	case types.TierMedium:
		return AccentStyle.Render(s)
	default:
		return MutedStyle.Render(s)
	}
}

// RenderHealth colors a cycle health status
func RenderHealth(status types.HealthStatus) string {
	s := string(status)
	switch status {
	case types.HealthOnTrack, types.HealthAhead:
		return PassStyle.Render(s)
	case types.HealthAtRisk:
		return WarnStyle.Render(s)
	case types.HealthBehind:
		return FailStyle.Render(s)
	default:
		return MutedStyle.Render(s)
	}
}

// RenderQueue colors an execution queue name
func RenderQueue(q types.Queue) string {
	s := string(q)
	switch q {
	case types.QueueExecutor:
		return AccentStyle.Render(s)
	case types.QueueGuardian:
		return WarnStyle.Render(s)
	case types.QueueAuditor:
		return PassStyle.Render(s)
	default:
		return MutedStyle.Render(s)
	}
}

// RenderScore formats a priority score to two decimals, colored by band:
// 1.0 and up green, 0.5 and up yellow, below muted. Scores land in [0, 2].
func RenderScore(score float64) string {
	s := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 1.0:
		return PassStyle.Render(s)
	case score >= 0.5:
		return WarnStyle.Render(s)
	default:
		return MutedStyle.Render(s)
	}
}

// RenderPassIcon renders the pass icon with styling
func RenderPassIcon() string {
	return PassStyle.Render(IconPass)
}

// RenderWarnIcon renders the warning icon with styling
func RenderWarnIcon() string {
	return WarnStyle.Render(IconWarn)
}

// RenderFailIcon renders the fail icon with styling
func RenderFailIcon() string {
	return FailStyle.Render(IconFail)
}

// RenderInfoIcon renders the info icon with styling
func RenderInfoIcon() string {
	return AccentStyle.Render(IconInfo)
}
