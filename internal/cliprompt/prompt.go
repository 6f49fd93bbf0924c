// Package cliprompt implements terminal-facing prompters for two
// interfaces: permission.Prompter (the human decision source behind
// permission checks) and planning.ApprovalPrompter (the plan approval
// gate). Both read a single line from stdin rather than drive a full
// TUI.
package cliprompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/llama-agent/llama-agent/internal/permission"
)

// TerminalPrompter asks permission questions on the given reader/writer,
// normally os.Stdin/os.Stdout.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

// Ask implements permission.Prompter: once/always/deny, defaulting to
// deny on EOF or an unrecognized answer so an unattended run fails
// closed rather than open.
func (p *TerminalPrompter) Ask(ctx context.Context, req permission.Request) (permission.Answer, error) {
	fmt.Fprintf(p.out, "\nPermission requested: %s\n  resource: %s\n", req.Title, req.ResourceKey)
	fmt.Fprint(p.out, "Allow? [y]es-once / [a]lways / [n]o: ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return permission.AnswerDeny, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return permission.AnswerOnce, nil
	case "a", "always":
		return permission.AnswerAlways, nil
	default:
		return permission.AnswerDeny, nil
	}
}

// TerminalApproval implements planning.ApprovalPrompter: prints the
// plan summary and asks for approval or feedback.
type TerminalApproval struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalApproval(in io.Reader, out io.Writer) *TerminalApproval {
	return &TerminalApproval{in: bufio.NewReader(in), out: out}
}

// PromptApproval implements planning.ApprovalPrompter. An empty answer
// or "y"/"yes" approves; anything else is treated as feedback text to
// send back to the planning agent for another refinement pass.
func (p *TerminalApproval) PromptApproval(summary string) (bool, string, error) {
	fmt.Fprintln(p.out, "\n--- Plan ---")
	fmt.Fprintln(p.out, summary)
	fmt.Fprintln(p.out, "---")
	fmt.Fprint(p.out, "Approve this plan? [y]es / or type feedback to refine: ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, "", nil
	}
	trimmed := strings.TrimSpace(line)
	switch strings.ToLower(trimmed) {
	case "", "y", "yes":
		return true, "", nil
	default:
		return false, trimmed, nil
	}
}
