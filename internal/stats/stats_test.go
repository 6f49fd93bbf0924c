package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llama-agent/llama-agent/internal/llm"
)

func TestStats_AccumulatesCounters(t *testing.T) {
	s := New()
	s.Record(llm.Timings{InputTokens: 10, OutputTokens: 5, CachedTokens: 2, ContextWindow: 1000})
	s.Record(llm.Timings{InputTokens: 20, OutputTokens: 8, CachedTokens: 1, ContextWindow: 1000})

	snap := s.Snapshot()
	assert.Equal(t, 30, snap.TotalInputTokens)
	assert.Equal(t, 13, snap.TotalOutputTokens)
	assert.Equal(t, 3, snap.TotalCachedTokens)
	assert.Equal(t, 28, snap.CurrentContextTokens) // latest turn only
}

func TestStats_WarningsAreIdempotent(t *testing.T) {
	s := New()

	w := s.Record(llm.Timings{InputTokens: 700, OutputTokens: 0, ContextWindow: 1000})
	require.NotNil(t, w)
	assert.Equal(t, 0.70, w.Threshold)

	w = s.Record(llm.Timings{InputTokens: 710, OutputTokens: 0, ContextWindow: 1000})
	assert.Nil(t, w, "70%% warning must not refire")

	w = s.Record(llm.Timings{InputTokens: 850, OutputTokens: 0, ContextWindow: 1000})
	require.NotNil(t, w)
	assert.Equal(t, 0.80, w.Threshold)

	w = s.Record(llm.Timings{InputTokens: 900, OutputTokens: 0, ContextWindow: 1000})
	assert.Nil(t, w, "80%% warning must not refire")
}

func TestStats_JumpingStraightPast80PercentFiresOnly80(t *testing.T) {
	s := New()
	w := s.Record(llm.Timings{InputTokens: 950, OutputTokens: 0, ContextWindow: 1000})
	require.NotNil(t, w)
	assert.Equal(t, 0.80, w.Threshold)
}
