// Package agentloop implements the bounded synchronous
// completion-and-tool-execution loop that drives one agent's
// conversation: each iteration requests a completion, executes any
// tool calls it carries, and appends the results, until the model
// stops calling tools, the iteration cap is hit, or the caller
// cancels.
package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/llama-agent/llama-agent/internal/errkind"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/message"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/stats"
	"github.com/llama-agent/llama-agent/internal/tool"
)

// Retry tuning for completion calls.
const (
	RetryInitialInterval = time.Second
	RetryMaxInterval     = 30 * time.Second
	RetryMaxElapsedTime  = 2 * time.Minute
	RetryMaxRetries      = 3
)

const defaultMaxIterations = 25
const defaultToolTimeoutMS = 120_000

// StopReason is why Run returned.
type StopReason string

const (
	StopCompleted     StopReason = "COMPLETED"
	StopMaxIterations StopReason = "MAX_ITERATIONS"
	StopUserCancelled StopReason = "USER_CANCELLED"
)

// RunResult is the outcome of one Run call.
type RunResult struct {
	Stop          StopReason
	FinalResponse string
	Iterations    int
}

// PersistFunc is fired after every transcript append, letting the
// caller (the context store, or a subagent's no-op) mirror the
// in-memory transcript to disk. A nil PersistFunc is legal and means
// "don't persist".
type PersistFunc func(m message.Message) error

// Config is the set of parameters a Loop is built from.
type Config struct {
	CustomSystemPrompt string
	SkipToolTable      bool
	Skills             []string
	AvailableAgents    []AgentSummary

	AllowedTools  []string
	MaxIterations int
	ToolTimeoutMS int

	WorkingDir      string
	ContextBasePath string
	ContextID       string
}

func (c Config) maxIterations() int {
	if c.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return c.MaxIterations
}

func (c Config) toolTimeoutMS() int {
	if c.ToolTimeoutMS <= 0 {
		return defaultToolTimeoutMS
	}
	return c.ToolTimeoutMS
}

// Loop owns a transcript, a permission manager (own or delegating to a
// parent), stats, the shared tool context fields, and an atomic
// interrupt flag.
type Loop struct {
	cfg       Config
	registry  *tool.Registry
	backend   llm.Backend
	perm      *permission.Manager
	stats     *stats.Stats
	transcript *message.Transcript
	interrupt *atomic.Bool
	subagent  tool.SubagentSpawner
	planStore tool.PlanReader
	persist   PersistFunc
	log       zerolog.Logger
}

// New builds a Loop and its system prompt (message 0 of the
// transcript).
func New(
	cfg Config,
	registry *tool.Registry,
	backend llm.Backend,
	perm *permission.Manager,
	st *stats.Stats,
	subagent tool.SubagentSpawner,
	planStore tool.PlanReader,
	persist PersistFunc,
	log zerolog.Logger,
) *Loop {
	prompt := buildSystemPrompt(cfg, registry)
	return &Loop{
		cfg:        cfg,
		registry:   registry,
		backend:    backend,
		perm:       perm,
		stats:      st,
		transcript: message.NewWithSystem(prompt),
		interrupt:  &atomic.Bool{},
		subagent:   subagent,
		planStore:  planStore,
		persist:    persist,
		log:        log.With().Str("component", "agentloop").Logger(),
	}
}

// Interrupt returns the loop's interrupt flag, so a caller (e.g. a
// ctrl-C handler) can raise it from outside Run.
func (l *Loop) Interrupt() *atomic.Bool { return l.interrupt }

// Transcript returns a read-only view of the current messages.
func (l *Loop) Transcript() []message.Message { return l.transcript.Messages() }

// Stats returns the running statistics this loop is recording into,
// e.g. for a /stats slash command to snapshot.
func (l *Loop) Stats() *stats.Stats { return l.stats }

// Clear resets the loop to a fresh system-only transcript, rebuilding
// the system prompt from the loop's stored Config and tool registry.
func (l *Loop) Clear() {
	prompt := buildSystemPrompt(l.cfg, l.registry)
	l.transcript.Clear(prompt)
}

// LoadTranscript replaces the in-memory transcript with messages,
// e.g. when the CLI switches to a context persisted by an earlier
// process invocation. The loaded transcript must still satisfy the
// transcript invariants (system first, tool_call_id backlinks
// resolve).
func (l *Loop) LoadTranscript(messages []message.Message) error {
	l.transcript.SetMessages(messages)
	return l.transcript.Validate()
}

// Run drives the loop to completion for one user turn: append the
// prompt, then alternate completion and tool execution until the
// model stops calling tools, the iteration cap is hit, or the caller
// cancels.
func (l *Loop) Run(ctx context.Context, userPrompt string) (RunResult, error) {
	l.append(message.NewUser(userPrompt))

	retryBackoff := newRetryBackoff(ctx)
	i := 0
	for {
		if l.interrupt.Load() {
			l.log.Debug().Int("iteration", i).Msg("interrupt flag set, stopping")
			return RunResult{Stop: StopUserCancelled, Iterations: i}, nil
		}
		if i >= l.cfg.maxIterations() {
			l.log.Debug().Int("iteration", i).Msg("max iterations reached")
			return RunResult{Stop: StopMaxIterations, Iterations: i}, nil
		}

		result, err := l.complete(ctx)
		if errors.Is(err, llm.ErrCancelled) {
			l.log.Debug().Int("iteration", i).Msg("backend observed cancellation")
			return RunResult{Stop: StopUserCancelled, Iterations: i}, nil
		}
		if err != nil {
			nextInterval := retryBackoff.NextBackOff()
			if nextInterval == backoff.Stop {
				l.log.Error().Err(err).Int("iteration", i).Msg("completion failed, retries exhausted")
				return RunResult{}, errkind.New(errkind.BackendFailed, err)
			}
			l.log.Warn().Err(err).Dur("retry_in", nextInterval).Msg("completion failed, retrying")
			select {
			case <-ctx.Done():
				return RunResult{}, errkind.New(errkind.Cancelled, ctx.Err())
			case <-time.After(nextInterval):
			}
			continue
		}
		retryBackoff.Reset()

		if warn := l.stats.Record(result.Timings); warn != nil {
			l.log.Warn().Float64("threshold", warn.Threshold).Int("used_tokens", warn.UsedTokens).
				Int("window_tokens", warn.WindowTokens).Msg("context window usage warning")
		}

		assistantMsg := message.FromEino(result.Message)
		l.append(assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			i++
			l.log.Debug().Int("iteration", i).Msg("completion finished with no tool calls")
			return RunResult{Stop: StopCompleted, FinalResponse: assistantMsg.Content, Iterations: i}, nil
		}

		l.log.Debug().Int("iteration", i).Int("tool_calls", len(assistantMsg.ToolCalls)).Msg("executing tool calls")
		for _, call := range assistantMsg.ToolCalls {
			l.executeToolCall(ctx, call)
		}

		i++
	}
}

// executeToolCall resolves, validates, authorizes, and runs one tool
// call, appending a tool-role reply in every case. Failures at any
// step produce an error tool-role message rather than aborting the
// turn.
func (l *Loop) executeToolCall(ctx context.Context, call message.ToolCall) {
	t, ok := l.registry.Get(call.Name)
	if !ok {
		l.log.Debug().Str("tool", call.Name).Msg("unknown tool")
		l.append(message.NewToolResult(call.ID, fmt.Sprintf("unknown tool %q", call.Name)))
		return
	}

	args := json.RawMessage(call.Arguments)
	var probe any
	if err := json.Unmarshal(args, &probe); err != nil {
		l.log.Debug().Str("tool", call.Name).Err(err).Msg("malformed tool arguments")
		l.append(message.NewToolResult(call.ID, fmt.Sprintf("malformed arguments: %s", err)))
		return
	}

	resourceKey := call.Name
	if rk, ok := t.(tool.ResourceKeyer); ok {
		resourceKey = rk.ResourceKey(args)
	}

	action, err := l.perm.Decide(ctx, call.Name, resourceKey, call.Name)
	if err != nil || action != permission.Allow {
		l.log.Debug().Str("tool", call.Name).Str("resource_key", resourceKey).Str("action", string(action)).Msg("permission denied")
		l.append(message.NewToolResult(call.ID, "Permission denied"))
		return
	}

	toolCtx := &tool.Context{
		WorkDir:         l.cfg.WorkingDir,
		Interrupt:       l.interrupt,
		TimeoutMS:       l.cfg.toolTimeoutMS(),
		ContextBasePath: l.cfg.ContextBasePath,
		ContextID:       l.cfg.ContextID,
		Subagent:        l.subagent,
		PlanStore:       l.planStore,
	}

	res, err := l.registry.Execute(ctx, call.Name, args, toolCtx)
	if err != nil {
		l.log.Debug().Str("tool", call.Name).Err(err).Msg("tool execution error")
		l.append(message.NewToolResult(call.ID, err.Error()))
		return
	}

	if res.Success {
		l.append(message.NewToolResult(call.ID, res.Output))
	} else {
		l.append(message.NewToolResult(call.ID, res.Error))
	}
}

func (l *Loop) complete(ctx context.Context) (*llm.CompletionResult, error) {
	tools := l.registry.Filter(l.cfg.AllowedTools)
	req := &llm.CompletionRequest{
		Messages: message.ToEino(l.transcript.Messages()),
		Tools:    tool.ToolInfos(tools),
	}
	return l.backend.Complete(ctx, req)
}

func (l *Loop) append(m message.Message) {
	l.transcript.Append(m)
	if l.persist != nil {
		if err := l.persist(m); err != nil {
			l.log.Warn().Err(err).Str("role", string(m.Role)).Msg("persistence callback failed")
		}
	}
}

func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, RetryMaxRetries), ctx)
}
