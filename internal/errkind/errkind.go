// Package errkind classifies errors so callers can decide whether an
// error surfaces to the LLM as a tool-role message, ends the turn for
// the user, or is fatal at startup — without string matching. Errors
// are wrapped with plain fmt.Errorf("...: %w", ...); this just adds a
// typed tag on top of that.
package errkind

import "errors"

// Kind is one of the classified error kinds.
type Kind string

const (
	InvalidConfig       Kind = "invalid-config"
	IO                  Kind = "io"
	Parse               Kind = "parse"
	UnknownTool         Kind = "unknown-tool"
	PermissionDenied    Kind = "permission-denied"
	ToolFailed          Kind = "tool-failed"
	BackendFailed       Kind = "backend-failed"
	UnknownAgent        Kind = "unknown-agent"
	SpawnDepthExceeded  Kind = "spawn-depth-exceeded"
	InvalidWorkingDir   Kind = "invalid-working-dir"
	StateTransitionBad  Kind = "state-transition-invalid"
	Cancelled           Kind = "cancelled"
)

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind. If err is nil, New returns nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err (or something it wraps) was tagged with kind.
func Is(err error, kind Kind) bool {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind == kind
	}
	return false
}

// KindOf returns the Kind tagged on err, and false if err carries none.
func KindOf(err error) (Kind, bool) {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return "", false
}

// SurfacesToLLM reports whether an error of this kind should become a
// tool-role message instead of ending the turn.
func SurfacesToLLM(kind Kind) bool {
	switch kind {
	case UnknownTool, Parse, PermissionDenied, ToolFailed, UnknownAgent, SpawnDepthExceeded:
		return true
	default:
		return false
	}
}

// EndsTurn reports whether an error of this kind should be surfaced to
// the user and end the current turn.
func EndsTurn(kind Kind) bool {
	switch kind {
	case BackendFailed, Cancelled, StateTransitionBad:
		return true
	default:
		return false
	}
}

// Fatal reports whether an error of this kind is fatal at startup.
func Fatal(kind Kind) bool {
	switch kind {
	case InvalidConfig, InvalidWorkingDir:
		return true
	default:
		return false
	}
}
