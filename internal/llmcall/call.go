// Package llmcall records reasoning calls for traceability.
// Every call is appended as one JSON line with its prompt, response and usage.
package llmcall

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Call represents a recorded reasoning call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`
	Attempts  int       `json:"attempts"`

	// Context references
	RunID    string `json:"run_id,omitempty"`
	Document string `json:"document,omitempty"`
	Page     int    `json:"page,omitempty"` // 1-based; 0 for whole-document calls

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"` // Hash of the system prompt actually sent

	// Model info
	Model          string `json:"model"`
	ResponseFormat string `json:"response_format,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response string `json:"response,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewCall starts a Call for the trace carried by ctx.
func NewCall(ctx context.Context, promptKey, model string) *Call {
	t := TraceFrom(ctx)
	return &Call{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		RunID:     t.RunID,
		Document:  t.Document,
		Page:      t.Page,
		PromptKey: promptKey,
		Model:     model,
	}
}

// Trace identifies the work a call belongs to.
type Trace struct {
	RunID    string
	Document string
	Page     int
}

type traceKey struct{}

// TraceFrom returns the trace attached to ctx, or the zero Trace.
func TraceFrom(ctx context.Context) Trace {
	t, _ := ctx.Value(traceKey{}).(Trace)
	return t
}

// WithRun attaches a batch run ID.
func WithRun(ctx context.Context, runID string) context.Context {
	t := TraceFrom(ctx)
	t.RunID = runID
	return context.WithValue(ctx, traceKey{}, t)
}

// WithDocument attaches the document being processed.
func WithDocument(ctx context.Context, path string) context.Context {
	t := TraceFrom(ctx)
	t.Document = path
	t.Page = 0
	return context.WithValue(ctx, traceKey{}, t)
}

// WithPage attaches the 1-based page being processed.
func WithPage(ctx context.Context, page int) context.Context {
	t := TraceFrom(ctx)
	t.Page = page
	return context.WithValue(ctx, traceKey{}, t)
}
