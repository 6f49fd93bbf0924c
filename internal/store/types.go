// Package store implements atomic JSON persistence of contexts,
// compaction archives, and plan state under a configurable base
// directory.
package store

import (
	"time"

	"github.com/llama-agent/llama-agent/internal/message"
)

// ISOMilli formats t as an ISO-8601 timestamp with millisecond
// precision, UTC.
func ISOMilli(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Archive is one entry in a Context's metadata.archives sequence,
// recording that a compaction moved messages out of the live
// conversation and into an archive file.
type Archive struct {
	Timestamp     string `json:"timestamp"`
	MessageCount  int    `json:"message_count"`
	CompactRef    string `json:"compact_ref"`
}

// Metadata holds the optional bookkeeping fields of a Context State.
type Metadata struct {
	Archives []Archive `json:"archives,omitempty"`
	PlanRef  string    `json:"plan_ref,omitempty"`
}

// State is the persisted Context State: id, created_at, updated_at,
// messages, and metadata.
type State struct {
	ID        string             `json:"id"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
	Messages  []message.Message  `json:"messages"`
	Metadata  Metadata           `json:"metadata"`
}

// CompactEntry is the persisted artifact of one compaction: a hybrid
// of programmatically extracted fields and LLM-generated fields,
// tagged with the filename-safe timestamp used in its own path.
type CompactEntry struct {
	Timestamp string `json:"timestamp"`

	// Programmatically extracted.
	UserMessages  []string `json:"user_messages"`
	FilesModified []string `json:"files_modified"`
	CommandsRun   []string `json:"commands_run"`
	PlanRef       string   `json:"plan_ref,omitempty"`

	// LLM-generated.
	Summary      string   `json:"summary"`
	KeyDecisions []string `json:"key_decisions"`
	CurrentState string   `json:"current_state"`
	PendingTasks []string `json:"pending_tasks"`
}

// Listing is one row of List's output.
type Listing struct {
	ID        string
	UpdatedAt string
	Preview   string
}
