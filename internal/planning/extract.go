package planning

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var qaFence = regexp.MustCompile("(?is)```json\\s*\\n(.*?)\\n```")

// rawQuestion accepts both the canonical and aliased key names of the
// Questions-JSON format: `question` for `text`, `answers` for
// `options`.
type rawQuestion struct {
	ID       json.Number `json:"id"`
	Text     string      `json:"text"`
	Question string      `json:"question"`
	Options  []string    `json:"options"`
	Answers  []string    `json:"answers"`
}

type rawPayload struct {
	Questions []rawQuestion `json:"questions"`
}

// extractQuestions finds the planning agent's Q&A payload in reply:
// first the first fenced ```json``` block (case-insensitive), then —
// if none parses — a balanced-brace scan starting at the literal
// `{"questions"`.
func extractQuestions(reply string) ([]Question, bool) {
	if m := qaFence.FindStringSubmatch(reply); m != nil {
		if qs, ok := parsePayload(m[1]); ok {
			return qs, true
		}
	}
	if raw, ok := scanBalancedBraces(reply); ok {
		if qs, ok := parsePayload(raw); ok {
			return qs, true
		}
	}
	return nil, false
}

func parsePayload(raw string) ([]Question, bool) {
	var payload rawPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, false
	}
	if len(payload.Questions) == 0 {
		return nil, false
	}
	out := make([]Question, 0, len(payload.Questions))
	for i, rq := range payload.Questions {
		text := rq.Text
		if text == "" {
			text = rq.Question
		}
		options := rq.Options
		if len(options) == 0 {
			options = rq.Answers
		}
		id, err := rq.ID.Int64()
		if err != nil {
			id = int64(i + 1)
		}
		out = append(out, Question{ID: int(id), Text: text, Options: options})
	}
	return out, true
}

// scanBalancedBraces locates the literal `{"questions"` and returns
// the substring from there through its matching closing brace,
// tolerating naive brace counting inside string literals by skipping
// escaped and quoted content.
func scanBalancedBraces(s string) (string, bool) {
	idx := strings.Index(s, `{"questions"`)
	if idx < 0 {
		idx = strings.Index(s, `{ "questions"`)
	}
	if idx < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := idx; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[idx : i+1], true
			}
		}
	}
	return "", false
}

// formatAnswersPrompt builds the "just the user's answers" prompt,
// instructing the planning agent to emit follow-up questions in the
// same format if it still needs clarification.
func formatAnswersPrompt(questions []Question, answers []Answer) string {
	byID := make(map[int]string, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a.Text
	}
	var b strings.Builder
	b.WriteString("Here are the answers to your questions:\n\n")
	for _, q := range questions {
		b.WriteString(strconv.Itoa(q.ID))
		b.WriteString(". ")
		b.WriteString(q.Text)
		b.WriteString("\n   -> ")
		b.WriteString(byID[q.ID])
		b.WriteString("\n")
	}
	b.WriteString("\nRevise the plan accordingly. If anything is still ambiguous, emit a new fenced json questions block; otherwise omit it.")
	return b.String()
}
