// Package ui provides terminal styling for abacus CLI output.
package ui

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor decides whether output gets ANSI color.
// Precedence: NO_COLOR > CLICOLOR_FORCE > CLICOLOR=0 > terminal detection.
// NO_COLOR disables when present at all, even set to the empty string,
// per the no-color.org convention.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if !IsTerminal() {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// ShouldUseEmoji reports whether output may include emoji. AB_NO_EMOJI
// disables it; otherwise emoji follows terminal detection.
func ShouldUseEmoji() bool {
	if os.Getenv("AB_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// IsAgentMode reports whether an automation agent is driving the CLI.
// Agents declare themselves with AB_AGENT_MODE; agent mode skips decorative
// rendering so output stays cheap to parse.
func IsAgentMode() bool {
	v := os.Getenv("AB_AGENT_MODE")
	return v != "" && v != "0"
}
