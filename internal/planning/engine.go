package planning

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/llama-agent/llama-agent/internal/agentdef"
	"github.com/llama-agent/llama-agent/internal/agentloop"
	"github.com/llama-agent/llama-agent/internal/errkind"
	"github.com/llama-agent/llama-agent/internal/llm"
	"github.com/llama-agent/llama-agent/internal/permission"
	"github.com/llama-agent/llama-agent/internal/stats"
	"github.com/llama-agent/llama-agent/internal/store"
	"github.com/llama-agent/llama-agent/internal/subagent"
	"github.com/llama-agent/llama-agent/internal/tool"
)

const (
	explorerAgentName = "explorer-agent"
	plannerAgentName  = "planning-agent"
)

// Engine drives the explorer/planner/Q&A/approval workflow, spawning
// explorer-agent one-shot,
// holding a persistent planning-agent Agent Loop across the
// synthesize/refine turns of a single run, and delegating the
// interactive pieces (Q&A, approval) to pluggable interfaces so the
// state machine itself stays testable without a terminal.
type Engine struct {
	registry  *agentdef.Registry
	subagents *subagent.Manager
	tools     *tool.Registry
	backend   llm.Backend
	perm      *permission.Manager
	store     *store.Store
	qa        QAUI
	approval  ApprovalPrompter
	workDir   string
	log       zerolog.Logger
}

func New(
	registry *agentdef.Registry,
	subagents *subagent.Manager,
	tools *tool.Registry,
	backend llm.Backend,
	perm *permission.Manager,
	st *store.Store,
	qa QAUI,
	approval ApprovalPrompter,
	workDir string,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		registry:  registry,
		subagents: subagents,
		tools:     tools,
		backend:   backend,
		perm:      perm,
		store:     st,
		qa:        qa,
		approval:  approval,
		workDir:   workDir,
		log:       log.With().Str("component", "planning").Logger(),
	}
}

// Resume loads a persisted session for contextID, reporting whether
// one exists and is still active.
func (e *Engine) Resume(contextID string) (*PlanningSession, bool, error) {
	var sess PlanningSession
	if err := e.store.LoadPlanState(contextID, &sess); err != nil {
		if err == store.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &sess, sess.State.IsActive(), nil
}

// Start begins a new session for task, requiring a non-empty task.
func (e *Engine) Start(ctx context.Context, interrupt *atomic.Bool, task, contextID string) (*PlanningSession, error) {
	if strings.TrimSpace(task) == "" {
		return nil, errkind.New(errkind.InvalidConfig, fmt.Errorf("planning: task must not be empty"))
	}
	now := time.Now().UTC().Format(time.RFC3339)
	sess := &PlanningSession{
		State:     StateIdle,
		ContextID: contextID,
		Task:      task,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sess.transitionTo(StateExploring); err != nil {
		return nil, err
	}
	return e.run(ctx, interrupt, sess)
}

// Continue resumes an existing, active session from wherever it left
// off.
func (e *Engine) Continue(ctx context.Context, interrupt *atomic.Bool, sess *PlanningSession) (*PlanningSession, error) {
	return e.run(ctx, interrupt, sess)
}

func (e *Engine) run(ctx context.Context, interrupt *atomic.Bool, sess *PlanningSession) (*PlanningSession, error) {
	var planner *agentloop.Loop

	for {
		sess.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

		switch sess.State {
		case StateExploring:
			findings, err := e.explore(ctx, sess.Task)
			if err != nil {
				return sess, err
			}
			sess.ExplorationFindings = findings
			if err := sess.transitionTo(StateSynthesizing); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}

		case StateSynthesizing:
			planner = e.newPlannerLoop(sess)
			reply, err := e.runPlanner(ctx, planner, synthesizePrompt(sess.Task, sess.ExplorationFindings))
			if err != nil {
				return sess, err
			}
			sess.PlanContent = reply
			if err := e.afterPlannerReply(sess, reply); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}
			if sess.State == StateQuestioning {
				continue
			}

		case StateQuestioning:
			if err := sess.transitionTo(StateAwaitingAnswers); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}

		case StateAwaitingAnswers:
			result, answers, err := e.qa.Run(sess.Questions, interrupt)
			if err != nil {
				return sess, err
			}
			switch result {
			case QAAborted:
				if err := sess.transitionTo(StateAborted); err != nil {
					return sess, err
				}
				return sess, e.persist(sess)
			case QAInterrupted:
				return sess, e.persist(sess)
			}
			sess.Answers = answers
			if err := sess.transitionTo(StateRefining); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}

		case StateRefining:
			if planner == nil {
				planner = e.newPlannerLoop(sess)
			}
			reply, err := e.runPlanner(ctx, planner, formatAnswersPrompt(sess.Questions, sess.Answers))
			if err != nil {
				return sess, err
			}
			sess.PlanContent = reply
			sess.Iteration++
			if err := e.afterPlannerReply(sess, reply); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}
			if sess.State == StateQuestioning {
				continue
			}

		case StateAwaitingApproval:
			approved, feedback, err := e.approval.PromptApproval(planSummary(sess))
			if err != nil {
				return sess, err
			}
			if approved {
				path, err := e.writePlan(sess)
				if err != nil {
					return sess, err
				}
				sess.PlanPath = path
				if err := sess.transitionTo(StateApproved); err != nil {
					return sess, err
				}
				return sess, e.persist(sess)
			}
			if strings.TrimSpace(feedback) == "" {
				return sess, e.persist(sess)
			}
			if planner == nil {
				planner = e.newPlannerLoop(sess)
			}
			reply, err := e.runPlanner(ctx, planner, "The user declined to approve the plan with this feedback:\n\n"+feedback+"\n\nRevise the plan.")
			if err != nil {
				return sess, err
			}
			sess.PlanContent = reply
			if err := sess.transitionTo(StateRefining); err != nil {
				return sess, err
			}
			if err := e.afterPlannerReply(sess, reply); err != nil {
				return sess, err
			}
			if err := e.persist(sess); err != nil {
				return sess, err
			}

		case StateApproved, StateAborted:
			return sess, nil

		default:
			return sess, errkind.New(errkind.StateTransitionBad, fmt.Errorf("planning: unhandled state %s", sess.State))
		}
	}
}

// afterPlannerReply extracts questions from a planner reply and moves
// the session into QUESTIONING or AWAITING_APPROVAL accordingly.
func (e *Engine) afterPlannerReply(sess *PlanningSession, reply string) error {
	questions, found := extractQuestions(reply)
	if found {
		sess.Questions = questions
		return sess.transitionTo(StateQuestioning)
	}
	sess.Questions = nil
	return sess.transitionTo(StateAwaitingApproval)
}

func (e *Engine) explore(ctx context.Context, task string) (string, error) {
	res, err := e.subagents.SpawnFull(ctx, subagent.Request{
		AgentName: explorerAgentName,
		Task:      explorationPrompt(task),
	})
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", errkind.New(errkind.ToolFailed, fmt.Errorf("exploration failed: %s", res.FailureMessage))
	}
	return res.Output, nil
}

func (e *Engine) newPlannerLoop(sess *PlanningSession) *agentloop.Loop {
	def, ok := e.registry.Get(plannerAgentName)
	instructions := ""
	allowedTools := []string{"read", "glob", "grep", "ls"}
	maxIter := 25
	if ok {
		instructions = def.Instructions
		allowedTools = def.AllowedTools
		maxIter = def.MaxIterations
	}
	cfg := agentloop.Config{
		CustomSystemPrompt: instructions,
		AllowedTools:       allowedTools,
		MaxIterations:      maxIter,
		WorkingDir:         e.workDir,
		ContextBasePath:    e.store.BasePath(),
		ContextID:          sess.ContextID,
	}
	return agentloop.New(cfg, e.tools, e.backend, e.perm, stats.New(), e.subagents, e.subagents, nil, e.log)
}

func (e *Engine) runPlanner(ctx context.Context, planner *agentloop.Loop, prompt string) (string, error) {
	res, err := planner.Run(ctx, prompt)
	if err != nil {
		return "", err
	}
	if res.Stop != agentloop.StopCompleted {
		return "", errkind.New(errkind.ToolFailed, fmt.Errorf("planning agent stopped early: %s", res.Stop))
	}
	return res.FinalResponse, nil
}

func (e *Engine) persist(sess *PlanningSession) error {
	return e.store.SavePlanState(sess.ContextID, sess)
}

func explorationPrompt(task string) string {
	return "Explore the codebase to gather context for the following task, then report concrete findings:\n\n" + task
}

func synthesizePrompt(task, findings string) string {
	return "# Task\n\n" + task + "\n\n# Exploration findings\n\n" + findings
}

func planSummary(sess *PlanningSession) string {
	var b strings.Builder
	b.WriteString("Task: " + sess.Task + "\n\n")
	b.WriteString(sess.PlanContent)
	return b.String()
}

// writePlan constructs the final plan markdown (header, metadata,
// design-decisions section drawn from the Q&A, then the plan body)
// and writes it atomically via the Context Store.
func (e *Engine) writePlan(sess *PlanningSession) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan: %s\n\n", sess.Task)
	fmt.Fprintf(&b, "_Generated %s, %d refinement iteration(s)._\n\n", sess.UpdatedAt, sess.Iteration)
	if len(sess.Answers) > 0 {
		b.WriteString("## Design decisions\n\n")
		byID := make(map[int]Question, len(sess.Questions))
		for _, q := range sess.Questions {
			byID[q.ID] = q
		}
		for _, a := range sess.Answers {
			q := byID[a.QuestionID]
			fmt.Fprintf(&b, "- **%s** %s\n", q.Text, a.Text)
		}
		b.WriteString("\n")
	}
	b.WriteString(sess.PlanContent)
	content := strings.TrimRight(b.String(), "\n") + "\n"

	if err := e.store.SavePlan(sess.ContextID, content); err != nil {
		return "", err
	}
	return e.store.PlanPath(sess.ContextID), nil
}
