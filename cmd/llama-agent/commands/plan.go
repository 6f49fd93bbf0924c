package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/cliprompt"
	"github.com/llama-agent/llama-agent/internal/planning"
)

var planCmd = &cobra.Command{
	Use:   "plan [task]",
	Short: "Run the explorer/planner/Q&A/approval planning workflow",
	Long: `plan drives the interactive planning workflow to completion: an
explorer subagent gathers context, the planning agent synthesizes a
plan and may ask clarifying questions, and the user approves or
requests a revision.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")
		a, err := newApp(flagWorkingDir)
		if err != nil {
			return err
		}
		st, err := a.store.Create(time.Now())
		if err != nil {
			return err
		}
		interrupt := &atomic.Bool{}
		installSimpleInterruptHandler(interrupt)

		sess, err := a.runPlan(context.Background(), interrupt, task, st.ID)
		if err != nil {
			return err
		}
		if interrupt.Load() {
			return errAborted
		}
		printPlanOutcome(sess)
		return nil
	},
}

// newPlanningEngine wires the planning workflow with terminal-facing
// Q&A and approval UIs, shared by both the `plan` subcommand and the
// interactive `/plan` slash command.
func (a *app) newPlanningEngine() *planning.Engine {
	approval := cliprompt.NewTerminalApproval(os.Stdin, os.Stdout)
	return planning.New(a.registry, a.subagent, a.tools, a.backend, a.perm, a.store, planning.BubbleteaQA{}, approval, a.workDir, a.log)
}

// runPlan resumes a persisted planning session for contextID if one is
// active, else starts a fresh one for task, and drives it to a
// terminal state (approved/aborted) or an interruption.
func (a *app) runPlan(ctx context.Context, interrupt *atomic.Bool, task, contextID string) (*planning.PlanningSession, error) {
	engine := a.newPlanningEngine()

	sess, active, err := engine.Resume(contextID)
	if err != nil {
		return nil, err
	}
	if active {
		fmt.Fprintf(os.Stdout, "Resuming planning session for context %s (state=%s). Continue? [y]es / [n]o start fresh: ", contextID, sess.State)
		if !readYes() {
			active = false
		}
	}
	if active {
		return engine.Continue(ctx, interrupt, sess)
	}
	return engine.Start(ctx, interrupt, task, contextID)
}

func printPlanOutcome(sess *planning.PlanningSession) {
	if sess == nil {
		return
	}
	switch sess.State {
	case planning.StateApproved:
		fmt.Printf("\nPlan approved: %s\n", sess.PlanPath)
	case planning.StateAborted:
		fmt.Println("\nPlanning aborted.")
	default:
		fmt.Printf("\nPlanning paused in state %s; resume with /plan or `llama-agent plan`.\n", sess.State)
	}
}

func readYes() bool {
	var line string
	fmt.Scanln(&line)
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "" || line == "y" || line == "yes"
}
