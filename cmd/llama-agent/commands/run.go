package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/agentloop"
	"github.com/llama-agent/llama-agent/internal/compaction"
	"github.com/llama-agent/llama-agent/internal/errkind"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive agent loop (default command)",
	Long: `run starts the bounded tool-using agent loop. With -p/--prompt or
piped stdin it runs a single turn and exits; otherwise it opens an
interactive prompt reading lines from stdin, with a slash-command
table for session management (/list, /switch, /compact, /plan, ...).`,
	RunE: runInteractive,
}

// session is the interactive REPL's mutable state: the active context
// and the Agent Loop bound to it. Re-created wholesale by /switch and
// /clear.
type session struct {
	app        *app
	contextID  string
	loop       *agentloop.Loop
	interrupt  *atomic.Bool
	turnActive atomic.Bool
}

func newSession(a *app) (*session, error) {
	st, err := a.store.Create(time.Now())
	if err != nil {
		return nil, err
	}
	loop := a.newLoop(st.ID)
	return &session{app: a, contextID: st.ID, loop: loop, interrupt: loop.Interrupt()}, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	a, err := newApp(flagWorkingDir)
	if err != nil {
		return err
	}

	prompt, oneShot := initialPrompt()
	sess, err := newSession(a)
	if err != nil {
		return err
	}
	installInterruptHandler(sess)

	if oneShot {
		return runOneShot(sess, prompt)
	}
	return runREPL(sess, prompt)
}

// initialPrompt resolves the initial prompt: -p/--prompt, or piped
// stdin (consumed as the initial prompt; implies single-turn). An
// empty, non-piped stdin means no initial prompt and no forced
// single-turn.
func initialPrompt() (prompt string, oneShot bool) {
	if strings.TrimSpace(flagPrompt) != "" {
		return flagPrompt, true
	}
	if isPiped(os.Stdin) {
		data, err := io.ReadAll(os.Stdin)
		if err == nil && strings.TrimSpace(string(data)) != "" {
			return strings.TrimSpace(string(data)), true
		}
	}
	return "", false
}

func isPiped(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

func runOneShot(sess *session, prompt string) error {
	ctx := context.Background()
	sess.turnActive.Store(true)
	result, err := sess.loop.Run(ctx, prompt)
	sess.turnActive.Store(false)
	if err != nil {
		return reportTurnError(err)
	}
	switch result.Stop {
	case agentloop.StopCompleted:
		fmt.Println(result.FinalResponse)
	case agentloop.StopUserCancelled:
		fmt.Println("[Cancelled by user]")
	case agentloop.StopMaxIterations:
		fmt.Fprintln(os.Stderr, "[Stopped: max iterations reached]")
	}
	return nil
}

func runREPL(sess *session, initial string) error {
	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	if initial != "" {
		if err := runTurn(ctx, sess, initial); err != nil {
			return err
		}
	}

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errkind.New(errkind.IO, err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := dispatchSlash(ctx, sess, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			if done {
				return nil
			}
			continue
		}

		if err := runTurn(ctx, sess, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func runTurn(ctx context.Context, sess *session, prompt string) error {
	sess.turnActive.Store(true)
	result, err := sess.loop.Run(ctx, prompt)
	sess.turnActive.Store(false)
	if err != nil {
		return reportTurnError(err)
	}
	switch result.Stop {
	case agentloop.StopCompleted:
		fmt.Println(result.FinalResponse)
	case agentloop.StopUserCancelled:
		fmt.Println("[Cancelled by user]")
		sess.interrupt.Store(false)
	case agentloop.StopMaxIterations:
		fmt.Fprintln(os.Stderr, "[Stopped: max iterations reached]")
	}
	return nil
}

// reportTurnError prints the error and ends the turn, rather than
// propagate a non-zero exit for a mid-session backend failure.
func reportTurnError(err error) error {
	if errkind.Is(err, errkind.Cancelled) {
		fmt.Println("[Cancelled by user]")
		return nil
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return nil
}

// installInterruptHandler raises sess.interrupt on SIGINT/SIGTERM,
// letting the current Run call observe it at its next iteration
// boundary rather than killing the process outright. A signal received
// while no turn is in flight means the user wants out of the whole
// process, so that case exits directly with code 130.
func installInterruptHandler(sess *session) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range sig {
			if !sess.turnActive.Load() {
				fmt.Println()
				os.Exit(130)
			}
			sess.interrupt.Store(true)
		}
	}()
}

// installSimpleInterruptHandler just raises interrupt on SIGINT/SIGTERM,
// for single-operation commands (e.g. `plan`) that have no REPL idle
// state to distinguish from an in-flight turn.
func installSimpleInterruptHandler(interrupt *atomic.Bool) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		interrupt.Store(true)
	}()
}

// dispatchSlash runs one slash command. done reports whether the REPL
// should exit.
func dispatchSlash(ctx context.Context, sess *session, line string) (bool, error) {
	fields := strings.SplitN(line, " ", 2)
	name := fields[0]
	var rest string
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	switch name {
	case "/exit", "/quit":
		return true, nil
	case "/clear":
		sess.loop.Clear()
		fmt.Println("Context cleared.")
		return false, nil
	case "/list":
		return false, cmdList(sess)
	case "/switch":
		return false, cmdSwitch(sess, rest)
	case "/delete":
		return false, cmdDelete(sess, rest)
	case "/compact":
		return false, cmdCompact(ctx, sess, rest)
	case "/plan":
		return false, cmdPlan(ctx, sess, rest)
	case "/stats":
		fmt.Println(renderStats(sess.loop.Stats().Snapshot()))
		return false, nil
	case "/tools":
		fmt.Println(renderTools(sess.app.tools))
		return false, nil
	case "/skills":
		return false, cmdSkills(sess)
	case "/subagents":
		fmt.Println(renderAgents(sess.app.registry))
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q", name)
	}
}

func cmdList(sess *session) error {
	listings, err := sess.app.store.List()
	if err != nil {
		return err
	}
	for _, l := range listings {
		marker := "  "
		if l.ID == sess.contextID {
			marker = "* "
		}
		fmt.Printf("%s%s  %s  %s\n", marker, l.ID, l.UpdatedAt, truncatePreview(l.Preview, 60))
	}
	return nil
}

func truncatePreview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// resolvePrefix finds the unique context id matching prefix among
// every persisted context, failing clearly on zero or multiple
// matches.
func resolvePrefix(sess *session, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("usage: /switch <id-prefix>")
	}
	listings, err := sess.app.store.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, l := range listings {
		if strings.HasPrefix(l.ID, prefix) {
			matches = append(matches, l.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no context matches prefix %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("prefix %q matches %d contexts, be more specific", prefix, len(matches))
	}
}

func cmdSwitch(sess *session, prefix string) error {
	id, err := resolvePrefix(sess, prefix)
	if err != nil {
		return err
	}
	st, err := sess.app.store.Load(id)
	if err != nil {
		return err
	}
	loop := sess.app.newLoop(id)
	if err := loop.LoadTranscript(st.Messages); err != nil {
		return err
	}
	sess.contextID = id
	sess.loop = loop
	sess.interrupt = loop.Interrupt()
	fmt.Printf("Switched to context %s.\n", id)
	return nil
}

func cmdDelete(sess *session, prefix string) error {
	id, err := resolvePrefix(sess, prefix)
	if err != nil {
		return err
	}
	if id == sess.contextID {
		return fmt.Errorf("cannot delete the current context; /switch away first")
	}
	if err := sess.app.store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted context %s.\n", id)
	return nil
}

func cmdCompact(ctx context.Context, sess *session, directive string) error {
	st, err := sess.app.store.Load(sess.contextID)
	if err != nil {
		return err
	}
	entry, err := compaction.Run(ctx, sess.app.backend, sess.app.store, sess.contextID, st.Messages, directive)
	if err != nil {
		return err
	}
	reloaded, err := sess.app.store.Load(sess.contextID)
	if err != nil {
		return err
	}
	if err := sess.loop.LoadTranscript(reloaded.Messages); err != nil {
		return err
	}
	fmt.Printf("Compacted %d user message(s), %d file(s), %d command(s). Summary: %s\n",
		len(entry.UserMessages), len(entry.FilesModified), len(entry.CommandsRun), entry.Summary)
	return nil
}

func cmdPlan(ctx context.Context, sess *session, task string) error {
	if strings.TrimSpace(task) == "" {
		return fmt.Errorf("usage: /plan <task>")
	}
	psess, err := sess.app.runPlan(ctx, sess.interrupt, task, sess.contextID)
	if err != nil {
		return err
	}
	printPlanOutcome(psess)
	return nil
}

func cmdSkills(sess *session) error {
	contents := sess.app.skillsContent()
	if len(contents) == 0 {
		fmt.Println("No skills loaded.")
		return nil
	}
	for i, c := range contents {
		fmt.Printf("--- skill %d ---\n%s\n", i+1, c)
	}
	return nil
}
