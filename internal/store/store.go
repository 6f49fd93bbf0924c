package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/llama-agent/llama-agent/internal/errkind"
	"github.com/llama-agent/llama-agent/internal/message"
)

// ErrNotFound is returned by Load when a context id has no persisted
// state.
var ErrNotFound = errors.New("store: context not found")

// Store is a directory tree under BasePath holding one subdirectory
// per context id.
type Store struct {
	basePath string
	locks    *pathLocks
}

// New returns a Store rooted at basePath. basePath is created lazily
// on first write.
func New(basePath string) *Store {
	return &Store{basePath: basePath, locks: newPathLocks()}
}

// BasePath returns the directory the store is rooted at, for callers
// that need to hand it to a fresh tool context (e.g. the subagent
// manager wiring a child's ContextBasePath).
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) contextDir(id string) string {
	return filepath.Join(s.basePath, "contexts", id)
}

func (s *Store) conversationPath(id string) string {
	return filepath.Join(s.contextDir(id), "conversation.json")
}

func (s *Store) archivePath(id, ts string) string {
	return filepath.Join(s.contextDir(id), fmt.Sprintf("conversation_%s.json", ts))
}

func (s *Store) compactPath(id, ts string) string {
	return filepath.Join(s.contextDir(id), fmt.Sprintf("compact_%s.json", ts))
}

func (s *Store) planPath(id string) string {
	return filepath.Join(s.contextDir(id), "plan.md")
}

// PlanPath returns the path a context's plan.md lives at.
func (s *Store) PlanPath(id string) string {
	return s.planPath(id)
}

// PlanStatePath returns the path the planning package persists its
// PlanningSession under, colocated with this context at
// <base>/contexts/<ctx-id>/plan_state.json.
func (s *Store) PlanStatePath(id string) string {
	return filepath.Join(s.contextDir(id), "plan_state.json")
}

// filenameTimestamp renders t as the filename-safe timestamp used in
// archive/compact filenames (no colons).
func filenameTimestamp(t time.Time) string {
	return t.UTC().Format("20060102-150405.000")
}

// Create allocates a new Context with a random UUIDv4 id, empty
// messages, and persists it immediately.
func (s *Store) Create(now time.Time) (*State, error) {
	id := uuid.NewString()
	ts := ISOMilli(now)
	st := &State{ID: id, CreatedAt: ts, UpdatedAt: ts, Messages: []message.Message{}}
	if err := s.Save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load reads a Context State by id. It returns ErrNotFound if the
// conversation file does not exist; any other read/parse failure is
// wrapped as errkind.IO or errkind.Parse.
func (s *Store) Load(id string) (*State, error) {
	path := s.conversationPath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errkind.New(errkind.IO, fmt.Errorf("read context %s: %w", id, err))
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errkind.New(errkind.Parse, fmt.Errorf("parse context %s: %w", id, err))
	}
	return &st, nil
}

// Save writes the full Context State atomically, bumping updated_at.
func (s *Store) Save(st *State) error {
	st.UpdatedAt = ISOMilli(time.Now())
	return s.writeJSONAtomic(s.conversationPath(st.ID), st)
}

// AppendMessage loads the context, appends one message, and saves.
func (s *Store) AppendMessage(id string, m message.Message) error {
	st, err := s.Load(id)
	if err != nil {
		return err
	}
	st.Messages = append(st.Messages, m)
	return s.Save(st)
}

// SaveMessages replaces the full message list (bulk write), used when
// loading/persisting a freshly-compacted or freshly-loaded transcript.
func (s *Store) SaveMessages(id string, messages []message.Message) error {
	st, err := s.Load(id)
	if err != nil {
		return err
	}
	st.Messages = messages
	return s.Save(st)
}

// Exists reports whether a context id has a persisted conversation.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.conversationPath(id))
	return err == nil
}

// Delete removes a context's entire directory. Deleting an absent
// context is not an error.
func (s *Store) Delete(id string) error {
	if err := os.RemoveAll(s.contextDir(id)); err != nil {
		return errkind.New(errkind.IO, fmt.Errorf("delete context %s: %w", id, err))
	}
	return nil
}

// Archives returns the metadata.archives sequence for a context.
func (s *Store) Archives(id string) ([]Archive, error) {
	st, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	return st.Metadata.Archives, nil
}

// List enumerates all contexts under the base, sorted by updated_at
// descending, with a preview of the last user message (first line,
// truncated to 80 chars with an ellipsis at 77).
func (s *Store) List() ([]Listing, error) {
	dir := filepath.Join(s.basePath, "contexts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errkind.New(errkind.IO, fmt.Errorf("list contexts: %w", err))
	}

	var out []Listing
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		st, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		out = append(out, Listing{
			ID:        st.ID,
			UpdatedAt: st.UpdatedAt,
			Preview:   previewOf(st.Messages),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func previewOf(messages []message.Message) string {
	var last string
	for _, m := range messages {
		if m.Role == message.RoleUser {
			last = m.Content
		}
	}
	if idx := strings.IndexByte(last, '\n'); idx >= 0 {
		last = last[:idx]
	}
	if len(last) > 80 {
		last = last[:77] + "..."
	}
	return last
}

// Compact archives the context's current messages and replaces them
// with a single synthetic system message rendering entry.
// entry.UserMessages/FilesModified/CommandsRun are expected to already
// be populated by the caller (internal/compaction's Run); Compact fills
// entry.Timestamp if empty and owns the archive/compact-entry/metadata
// bookkeeping.
func (s *Store) Compact(id string, entry CompactEntry) error {
	st, err := s.Load(id)
	if err != nil {
		return err
	}

	ts := entry.Timestamp
	if ts == "" {
		ts = filenameTimestamp(time.Now())
		entry.Timestamp = ts
	}

	if err := s.writeJSONAtomic(s.archivePath(id, ts), st.Messages); err != nil {
		return err
	}
	if err := s.writeJSONAtomic(s.compactPath(id, ts), entry); err != nil {
		return err
	}

	st.Metadata.Archives = append(st.Metadata.Archives, Archive{
		Timestamp:    ts,
		MessageCount: len(st.Messages),
		CompactRef:   filepath.Base(s.compactPath(id, ts)),
	})
	st.Messages = []message.Message{message.NewSystem(renderCompactMarkdown(entry))}

	return s.Save(st)
}

// renderCompactMarkdown builds the synthetic system message body from
// a compact entry: summary, current state, pending tasks, files
// modified, and plan reference.
func renderCompactMarkdown(entry CompactEntry) string {
	var b strings.Builder
	b.WriteString("# Conversation summary\n\n")
	if entry.Summary != "" {
		b.WriteString(entry.Summary)
		b.WriteString("\n\n")
	}
	if entry.CurrentState != "" {
		b.WriteString("## Current state\n\n")
		b.WriteString(entry.CurrentState)
		b.WriteString("\n\n")
	}
	if len(entry.PendingTasks) > 0 {
		b.WriteString("## Pending tasks\n\n")
		for _, t := range entry.PendingTasks {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}
	if len(entry.FilesModified) > 0 {
		b.WriteString("## Files modified\n\n")
		for _, f := range entry.FilesModified {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if entry.PlanRef != "" {
		fmt.Fprintf(&b, "## Plan\n\nSee %s\n", entry.PlanRef)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// SavePlanState atomically persists v (a *planning.PlanningSession,
// kept as `any` here to avoid an import cycle) at PlanStatePath(id).
func (s *Store) SavePlanState(id string, v any) error {
	return s.writeJSONAtomic(s.PlanStatePath(id), v)
}

// LoadPlanState reads the JSON at PlanStatePath(id) into v, returning
// ErrNotFound if no planning session has been persisted for id.
func (s *Store) LoadPlanState(id string, v any) error {
	data, err := os.ReadFile(s.PlanStatePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errkind.New(errkind.IO, fmt.Errorf("read plan state for %s: %w", id, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errkind.New(errkind.Parse, fmt.Errorf("parse plan state for %s: %w", id, err))
	}
	return nil
}

// SavePlan writes plan.md for a context atomically.
func (s *Store) SavePlan(id, content string) error {
	return s.writeFileAtomic(s.planPath(id), []byte(content))
}

// LoadPlan reads a context's plan.md, returning ErrNotFound if absent.
func (s *Store) LoadPlan(id string) (string, error) {
	data, err := os.ReadFile(s.planPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", errkind.New(errkind.IO, fmt.Errorf("read plan for %s: %w", id, err))
	}
	return string(data), nil
}

// HasPlan reports whether a context has a saved plan.md.
func (s *Store) HasPlan(id string) bool {
	_, err := os.Stat(s.planPath(id))
	return err == nil
}

func (s *Store) writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errkind.New(errkind.Parse, fmt.Errorf("marshal %s: %w", path, err))
	}
	return s.writeFileAtomic(path, data)
}

// writeFileAtomic serializes to path+".tmp", flushes, then renames
// over the target; on rename failure it removes the temp file.
func (s *Store) writeFileAtomic(path string, data []byte) error {
	lock := s.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errkind.New(errkind.IO, fmt.Errorf("create dir %s: %w", dir, err))
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errkind.New(errkind.IO, fmt.Errorf("open temp file %s: %w", tmp, err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errkind.New(errkind.IO, fmt.Errorf("write temp file %s: %w", tmp, err))
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errkind.New(errkind.IO, fmt.Errorf("flush temp file %s: %w", tmp, err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errkind.New(errkind.IO, fmt.Errorf("close temp file %s: %w", tmp, err))
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errkind.New(errkind.IO, fmt.Errorf("rename %s to %s: %w", tmp, path, err))
	}
	return nil
}
