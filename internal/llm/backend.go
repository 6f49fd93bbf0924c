// Package llm declares the contract between the agent loop and the LLM
// backend. The backend itself — token streaming, KV-cache management,
// sampling — is an external collaborator; only the interface the core
// calls through is declared here.
package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ErrCancelled is returned by Complete when the backend observed the
// request context cancelled (or polled an interrupt flag) before or
// during generation. The agent loop treats this as USER_CANCELLED and
// does not append a partial assistant message.
var ErrCancelled = errors.New("llm: completion cancelled")

// CompletionRequest is one turn's worth of context handed to the
// backend: the full transcript so far, the tools available this turn
// (already filtered by allowed_tools), and sampling parameters.
type CompletionRequest struct {
	Messages    []*schema.Message
	Tools       []*schema.ToolInfo
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Timings carries the per-completion accounting the backend reports
// back, which Session Statistics folds into its running counters.
type Timings struct {
	InputTokens   int
	OutputTokens  int
	CachedTokens  int
	PromptTime    time.Duration
	PredictedTime time.Duration
	// ContextWindow is the backend's total context window size in
	// tokens, used to compute the 70%/80% usage warnings.
	ContextWindow int
}

// CompletionResult is the backend's synchronous response to one
// CompletionRequest: an assistant message (which may carry tool
// calls) plus the timings for that round.
type CompletionResult struct {
	Message *schema.Message
	Timings Timings
}

// Backend is the synchronous completion contract the agent loop calls
// on each iteration. Implementations are expected to block until a
// completion is produced or ctx is cancelled; a cancelled ctx must
// surface as ErrCancelled, never a partial successful result.
type Backend interface {
	// Complete requests one assistant turn for the given request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// ClearCache clears the backend's KV-cache for the given slot,
	// forcing the next Complete on that slot to reprocess its full
	// transcript from scratch. The subagent manager calls this before
	// and after every spawn so neither the parent nor the child
	// observes the other's cached tokens. The empty string names the
	// default/shared slot.
	ClearCache(slot string) error
}
