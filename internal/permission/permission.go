// Package permission implements the decision function and memoization
// cache behind every tool call that touches the filesystem or a shell.
package permission

import (
	"context"
	"fmt"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Action is the outcome of a permission decision.
type Action string

const (
	Allow  Action = "allow"
	Deny   Action = "deny"
	Prompt Action = "prompt"
)

// Prompter asks a human yes/no/always about one request and returns
// their answer. Implementations live at the CLI boundary (terminal
// prompt); the manager never renders UI itself.
type Prompter interface {
	Ask(ctx context.Context, req Request) (Answer, error)
}

// Answer is a user's response to a prompt.
type Answer string

const (
	AnswerOnce   Answer = "once"
	AnswerAlways Answer = "always"
	AnswerDeny   Answer = "deny"
)

// Request describes what is being asked permission for.
type Request struct {
	ID          string
	Tool        string
	ResourceKey string
	Title       string
}

// DeniedError is returned by Decide when the resolved action is Deny.
type DeniedError struct {
	Tool        string
	ResourceKey string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied for tool %q (resource %q)", e.Tool, e.ResourceKey)
}

// Manager implements the decide(tool, resource_key, ctx) -> {allow,
// deny, prompt} function: a session-scoped memoization cache over
// prior decisions, a yolo_mode short-circuit, and a Prompter for
// cache misses.
type Manager struct {
	mu       sync.RWMutex
	cache    map[string]map[string]Action // tool -> resourceKey -> decision
	parent   *Manager
	yoloMode bool
	prompter Prompter
	log      zerolog.Logger
}

// New builds a top-level Manager. yoloMode short-circuits every
// decision to Allow without consulting the cache or the prompter.
func New(prompter Prompter, yoloMode bool, log zerolog.Logger) *Manager {
	return &Manager{
		cache:    make(map[string]map[string]Action),
		yoloMode: yoloMode,
		prompter: prompter,
		log:      log.With().Str("component", "permission").Logger(),
	}
}

// NewDelegating builds a Manager for a subagent that reads and writes
// through parent's cache: a decision made by the main loop (or an
// ancestor subagent) applies transitively to descendants.
func NewDelegating(parent *Manager) *Manager {
	return &Manager{
		cache:    make(map[string]map[string]Action),
		parent:   parent,
		yoloMode: parent.yoloMode,
		prompter: parent.prompter,
		log:      parent.log,
	}
}

// Decide resolves whether tool may act on resourceKey, consulting the
// cache (and the parent's cache, if delegating), prompting on a miss,
// and memoizing an "always" answer back into the cache that was
// consulted.
func (m *Manager) Decide(ctx context.Context, tool, resourceKey, title string) (Action, error) {
	if m.yoloMode {
		return Allow, nil
	}

	if action, ok := m.lookup(tool, resourceKey); ok {
		return action, nil
	}

	req := Request{ID: ulid.Make().String(), Tool: tool, ResourceKey: resourceKey, Title: title}
	m.log.Debug().Str("tool", tool).Str("resource_key", resourceKey).Str("request_id", req.ID).Msg("prompting for permission")

	answer, err := m.prompter.Ask(ctx, req)
	if err != nil {
		return Prompt, err
	}

	switch answer {
	case AnswerOnce:
		return Allow, nil
	case AnswerAlways:
		m.remember(tool, resourceKey, Allow)
		return Allow, nil
	case AnswerDeny:
		return Deny, &DeniedError{Tool: tool, ResourceKey: resourceKey}
	default:
		return Deny, &DeniedError{Tool: tool, ResourceKey: resourceKey}
	}
}

// lookup checks this manager's cache for an exact resourceKey match,
// then for a wildcard pattern match, falling back to the parent chain.
func (m *Manager) lookup(tool, resourceKey string) (Action, bool) {
	m.mu.RLock()
	byKey, ok := m.cache[tool]
	if ok {
		if action, ok := byKey[resourceKey]; ok {
			m.mu.RUnlock()
			return action, true
		}
		for pattern, action := range byKey {
			if matches(pattern, resourceKey) {
				m.mu.RUnlock()
				return action, true
			}
		}
	}
	m.mu.RUnlock()

	if m.parent != nil {
		return m.parent.lookup(tool, resourceKey)
	}
	return "", false
}

// remember writes a decision into this manager's cache, or the
// parent's cache when delegating, so the memoization is shared with
// the main loop.
func (m *Manager) remember(tool, resourceKey string, action Action) {
	if m.parent != nil {
		m.parent.remember(tool, resourceKey, action)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache[tool] == nil {
		m.cache[tool] = make(map[string]Action)
	}
	m.cache[tool][resourceKey] = action
}

// matches reports whether resourceKey satisfies pattern, using
// doublestar so bash-command resource keys like "git commit *" and
// glob-style tool-name keys behave the same way.
func matches(pattern, resourceKey string) bool {
	if pattern == resourceKey {
		return true
	}
	ok, err := doublestar.Match(pattern, resourceKey)
	return err == nil && ok
}
