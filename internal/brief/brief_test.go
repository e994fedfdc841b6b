package brief

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/abacushq/abacus/internal/types"
)

func intPtr(i int) *int {
	return &i
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := New("")
	if !errors.Is(err, ErrAPIKeyRequired) {
		t.Errorf("New(\"\") error = %v, want ErrAPIKeyRequired", err)
	}

	if _, err := New("sk-ant-explicit"); err != nil {
		t.Errorf("New with explicit key error = %v", err)
	}
}

func TestNewModelSelection(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	t.Run("default model", func(t *testing.T) {
		t.Setenv(modelEnv, "")
		w, err := New("")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if string(w.model) != defaultModel {
			t.Errorf("model = %s, want %s", w.model, defaultModel)
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv(modelEnv, "claude-sonnet-4-5")
		w, err := New("")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if string(w.model) != "claude-sonnet-4-5" {
			t.Errorf("model = %s, want claude-sonnet-4-5", w.model)
		}
	})

	t.Run("option override", func(t *testing.T) {
		t.Setenv(modelEnv, "")
		w, err := New("", WithModel("claude-opus-4-1"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if string(w.model) != "claude-opus-4-1" {
			t.Errorf("model = %s, want claude-opus-4-1", w.model)
		}
	})

	t.Run("env beats option", func(t *testing.T) {
		t.Setenv(modelEnv, "claude-sonnet-4-5")
		w, err := New("", WithModel("claude-opus-4-1"))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if string(w.model) != "claude-sonnet-4-5" {
			t.Errorf("model = %s, want claude-sonnet-4-5", w.model)
		}
	})

	t.Run("empty option is a no-op", func(t *testing.T) {
		t.Setenv(modelEnv, "")
		w, err := New("", WithModel(""))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if string(w.model) != defaultModel {
			t.Errorf("model = %s, want %s", w.model, defaultModel)
		}
	})
}

func samplePlan() *types.PlanResult {
	return &types.PlanResult{
		Capacity: types.CapacityBudget{Points: 17.0, BufferApplied: true},
		Selection: types.SelectionResult{
			Items: []types.ScoredItem{
				{Item: types.BacklogItem{ID: "ENG-101", Title: "Fix login timeout", Estimate: intPtr(5), Type: types.TypeBug}, Score: 1.34},
				{Item: types.BacklogItem{ID: "ENG-102", Title: "Parallelize CI jobs", Estimate: intPtr(8), Type: types.TypeFeature}, Score: 1.01},
			},
			Debt:        []string{"ENG-101"},
			Features:    []string{"ENG-102"},
			TotalEffort: 13,
			DebtRatio:   5.0 / 13.0,
			Utilization: 13.0 / 17.0,
		},
		Queues: types.WorkQueues{
			Executor: []string{},
			Guardian: []string{"ENG-102"},
			Auditor:  []string{"ENG-101"},
		},
		Risk: types.RiskAssessment{
			BlockedExcluded:  []string{"ENG-105"},
			CircularExcluded: []string{"ENG-104"},
		},
		Flags: []types.Flag{
			{Kind: types.FlagInsufficientData, ItemIDs: []string{"ENG-105"}, Message: "items without estimates were scored and costed at the moderate default"},
		},
	}
}

func TestRenderPrompt(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	w, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	prompt, err := w.renderPrompt(samplePlan(), "ENG", 14)
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}

	wantFragments := []string{
		"Team: ENG",
		"Cycle length: 14 days",
		"Capacity: 17.0 points",
		"Committed: 2 items, 13 points (76% of capacity)",
		"Debt share: 38% of committed points",
		"- ENG-101 [bug, 5 pts, auditor queue] Fix login timeout",
		"- ENG-102 [feature, 8 pts, guardian queue] Parallelize CI jobs",
		"Excluded as blocked: ENG-105",
		"Excluded for circular dependencies: ENG-104",
		"insufficient_data: items without estimates",
		"**Focus:**",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q\nprompt:\n%s", fragment, prompt)
		}
	}
}

func TestRenderPromptOmitsEmptySections(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	w, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	plan := samplePlan()
	plan.Risk.BlockedExcluded = nil
	plan.Risk.CircularExcluded = nil
	plan.Flags = nil

	prompt, err := w.renderPrompt(plan, "ENG", 14)
	if err != nil {
		t.Fatalf("renderPrompt() error = %v", err)
	}

	for _, absent := range []string{"Excluded as blocked", "circular dependencies", "Advisories:"} {
		if strings.Contains(prompt, absent) {
			t.Errorf("prompt should omit %q when the data is empty", absent)
		}
	}
}

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "dial tcp: i/o timeout" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"network timeout", &fakeNetError{timeout: true}, true},
		{"network non-timeout", &fakeNetError{timeout: false}, false},
		{"rate limited", &anthropic.Error{StatusCode: 429}, true},
		{"server error", &anthropic.Error{StatusCode: 529}, true},
		{"bad request", &anthropic.Error{StatusCode: 400}, false},
		{"unknown error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
