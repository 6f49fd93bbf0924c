// Package stats implements running token and timing counters fed by
// the LLM backend's per-completion timings, and the idempotent
// 70%/80% context-window warnings.
package stats

import (
	"sync"
	"time"

	"github.com/llama-agent/llama-agent/internal/llm"
)

// Warning is a one-shot context-window usage notice.
type Warning struct {
	Threshold float64 // 0.70 or 0.80
	UsedTokens int
	WindowTokens int
}

// Stats accumulates counters across a session's completions.
type Stats struct {
	mu sync.Mutex

	TotalInputTokens  int
	TotalOutputTokens int
	TotalCachedTokens int
	TotalPromptTime   time.Duration
	TotalPredictedTime time.Duration

	// CurrentContextTokens is the context-window occupancy as of the
	// most recent completion (input + output of that turn).
	CurrentContextTokens int
	ContextWindow        int

	warned70 bool
	warned80 bool
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// Record folds one completion's timings into the running counters and
// returns any newly-crossed warning (nil if none fired this call).
func (s *Stats) Record(t llm.Timings) *Warning {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalInputTokens += t.InputTokens
	s.TotalOutputTokens += t.OutputTokens
	s.TotalCachedTokens += t.CachedTokens
	s.TotalPromptTime += t.PromptTime
	s.TotalPredictedTime += t.PredictedTime
	s.CurrentContextTokens = t.InputTokens + t.OutputTokens
	if t.ContextWindow > 0 {
		s.ContextWindow = t.ContextWindow
	}

	if s.ContextWindow == 0 {
		return nil
	}
	usage := float64(s.CurrentContextTokens) / float64(s.ContextWindow)

	if usage >= 0.80 && !s.warned80 {
		s.warned80 = true
		s.warned70 = true
		return &Warning{Threshold: 0.80, UsedTokens: s.CurrentContextTokens, WindowTokens: s.ContextWindow}
	}
	if usage >= 0.70 && !s.warned70 {
		s.warned70 = true
		return &Warning{Threshold: 0.70, UsedTokens: s.CurrentContextTokens, WindowTokens: s.ContextWindow}
	}
	return nil
}

// Snapshot is a read-only copy of the current counters, safe to print
// or render without holding the Stats lock.
type Snapshot struct {
	TotalInputTokens     int
	TotalOutputTokens    int
	TotalCachedTokens    int
	TotalPromptTime      time.Duration
	TotalPredictedTime   time.Duration
	CurrentContextTokens int
	ContextWindow        int
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalInputTokens:     s.TotalInputTokens,
		TotalOutputTokens:    s.TotalOutputTokens,
		TotalCachedTokens:    s.TotalCachedTokens,
		TotalPromptTime:      s.TotalPromptTime,
		TotalPredictedTime:   s.TotalPredictedTime,
		CurrentContextTokens: s.CurrentContextTokens,
		ContextWindow:        s.ContextWindow,
	}
}
