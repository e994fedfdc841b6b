// Package brief generates AI-written executive briefs of cycle plans using
// Claude Haiku. The brief is advisory prose layered over the structured plan;
// planning itself never depends on the API being reachable.
package brief

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/abacushq/abacus/internal/telemetry"
	"github.com/abacushq/abacus/internal/types"
)

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxTokens      = 1024

	// defaultModel is used unless ABACUS_BRIEF_MODEL overrides it.
	defaultModel = "claude-haiku-4-5"
	modelEnv     = "ABACUS_BRIEF_MODEL"
)

// ErrAPIKeyRequired is returned when no Anthropic API key is available
var ErrAPIKeyRequired = errors.New("API key required")

// Writer calls the Anthropic API to turn plan results into short briefs
type Writer struct {
	client         anthropic.Client
	model          anthropic.Model
	tmpl           *template.Template
	maxRetries     int
	initialBackoff time.Duration
}

// Option customizes a Writer
type Option func(*Writer)

// WithModel overrides the default model. The ABACUS_BRIEF_MODEL env var
// still takes precedence, matching how the API key resolves.
func WithModel(model string) Option {
	return func(w *Writer) {
		if model != "" {
			w.model = anthropic.Model(model)
		}
	}
}

// New creates a brief writer. Env var ANTHROPIC_API_KEY takes precedence
// over the explicit apiKey.
func New(apiKey string, opts ...Option) (*Writer, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or configure anthropic.api_key", ErrAPIKeyRequired)
	}

	tmpl, err := template.New("brief").Parse(briefPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse brief template: %w", err)
	}

	aiMetricsOnce.Do(initAIMetrics)

	w := &Writer{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:          anthropic.Model(defaultModel),
		tmpl:           tmpl,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
	}
	for _, opt := range opts {
		opt(w)
	}
	if envModel := os.Getenv(modelEnv); envModel != "" {
		w.model = anthropic.Model(envModel)
	}
	return w, nil
}

// Write produces an executive brief for one plan
func (w *Writer) Write(ctx context.Context, result *types.PlanResult, team string, cycleDays int) (string, error) {
	prompt, err := w.renderPrompt(result, team, cycleDays)
	if err != nil {
		return "", fmt.Errorf("render brief prompt: %w", err)
	}
	return w.callWithRetry(ctx, prompt)
}

// aiMetrics holds lazily-initialized OTel instruments for Anthropic API calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter("github.com/abacushq/abacus/ai")
	aiMetrics.inputTokens, _ = m.Int64Counter("ab.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("ab.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("ab.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (w *Writer) callWithRetry(ctx context.Context, prompt string) (string, error) {
	tracer := telemetry.Tracer("github.com/abacushq/abacus/ai")
	ctx, span := tracer.Start(ctx, "anthropic.messages.new")
	defer span.End()
	span.SetAttributes(
		attribute.String("ab.ai.model", string(w.model)),
		attribute.String("ab.ai.operation", "brief"),
	)

	var lastErr error
	params := anthropic.MessageNewParams{
		Model:     w.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			wait := w.initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		t0 := time.Now()
		message, err := w.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())

		if err == nil {
			modelAttr := attribute.String("ab.ai.model", string(w.model))
			if aiMetrics.inputTokens != nil {
				aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))
				aiMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr))
			}
			span.SetAttributes(
				attribute.Int64("ab.ai.input_tokens", message.Usage.InputTokens),
				attribute.Int64("ab.ai.output_tokens", message.Usage.OutputTokens),
				attribute.Int("ab.ai.attempts", attempt+1),
			)

			if len(message.Content) == 0 {
				return "", fmt.Errorf("unexpected response format: no content blocks")
			}
			content := message.Content[0]
			if content.Type != "text" {
				return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
			}
			return content.Text, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if !isRetryable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("non-retryable error: %w", err)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
	}
	return "", fmt.Errorf("failed after %d retries: %w", w.maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	return false
}

type briefData struct {
	Team        string
	CycleDays   int
	Points      float64
	ItemCount   int
	TotalEffort int
	Utilization float64
	DebtPct     float64
	Items       []briefItem
	Blocked     []string
	Circular    []string
	Flags       []string
}

type briefItem struct {
	ID     string
	Title  string
	Points int
	Type   string
	Queue  string
}

func (w *Writer) renderPrompt(result *types.PlanResult, team string, cycleDays int) (string, error) {
	queueOf := make(map[string]string)
	for _, id := range result.Queues.Executor {
		queueOf[id] = string(types.QueueExecutor)
	}
	for _, id := range result.Queues.Guardian {
		queueOf[id] = string(types.QueueGuardian)
	}
	for _, id := range result.Queues.Auditor {
		queueOf[id] = string(types.QueueAuditor)
	}

	data := briefData{
		Team:        team,
		CycleDays:   cycleDays,
		Points:      result.Capacity.Points,
		ItemCount:   len(result.Selection.Items),
		TotalEffort: result.Selection.TotalEffort,
		Utilization: result.Selection.Utilization * 100,
		DebtPct:     result.Selection.DebtRatio * 100,
		Blocked:     result.Risk.BlockedExcluded,
		Circular:    result.Risk.CircularExcluded,
	}
	for _, scored := range result.Selection.Items {
		data.Items = append(data.Items, briefItem{
			ID:     scored.Item.ID,
			Title:  scored.Item.Title,
			Points: scored.Item.EffortPoints(),
			Type:   string(scored.Item.Type),
			Queue:  queueOf[scored.Item.ID],
		})
	}
	for _, flag := range result.Flags {
		msg := string(flag.Kind)
		if flag.Message != "" {
			msg += ": " + flag.Message
		}
		data.Flags = append(data.Flags, msg)
	}

	var sb strings.Builder
	if err := w.tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

const briefPromptTemplate = `You are writing a short executive brief for an engineering team's upcoming work cycle. Be factual and concise; do not invent items or numbers beyond what is listed.

Team: {{.Team}}
Cycle length: {{.CycleDays}} days
Capacity: {{printf "%.1f" .Points}} points
Committed: {{.ItemCount}} items, {{.TotalEffort}} points ({{printf "%.0f" .Utilization}}% of capacity)
Debt share: {{printf "%.0f" .DebtPct}}% of committed points

Committed work:
{{range .Items}}- {{.ID}} [{{.Type}}, {{.Points}} pts, {{.Queue}} queue] {{.Title}}
{{end}}
{{- if .Blocked}}
Excluded as blocked: {{range .Blocked}}{{.}} {{end}}
{{- end}}
{{- if .Circular}}
Excluded for circular dependencies: {{range .Circular}}{{.}} {{end}}
{{- end}}
{{- if .Flags}}
Advisories:
{{range .Flags}}- {{.}}
{{end}}
{{- end}}

Write the brief in exactly this format:

**Focus:** [One sentence naming the cycle's main theme]

**Commitments:** [2-3 sentences on what ships and why the mix makes sense]

**Watch items:** [1-2 sentences on risks, exclusions, or data-quality advisories; "None." if clear]`
