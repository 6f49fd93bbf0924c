package llm

import (
	"context"
)

// Mock is a deterministic, in-process Backend used by the core's own
// test suites (agentloop, subagent, planning) in place of a real
// provider: a direct function double, since the core never talks HTTP
// to its backend.
type Mock struct {
	// Responses is consumed in order, one per Complete call. When
	// exhausted, the last entry repeats.
	Responses []*CompletionResult
	// Err, if set, is returned by every Complete call instead of a response.
	Err error

	calls        int
	ClearedSlots []string
}

// NewMock builds a Mock that returns results in sequence.
func NewMock(results ...*CompletionResult) *Mock {
	return &Mock{Responses: results}
}

func (m *Mock) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &CompletionResult{Message: nil}, nil
	}
	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], nil
}

func (m *Mock) ClearCache(slot string) error {
	m.ClearedSlots = append(m.ClearedSlots, slot)
	return nil
}

// Calls returns how many times Complete has been invoked.
func (m *Mock) Calls() int { return m.calls }
