// Package planning implements a persistent, resumable
// explorer→planner→Q&A→approval workflow driven by a validated state
// machine: a dedicated LLM turn against a hand-built prompt,
// persisted incrementally.
package planning

import (
	"fmt"

	"github.com/llama-agent/llama-agent/internal/errkind"
)

// State is one node of the Planning Session's state machine.
type State string

const (
	StateIdle              State = "IDLE"
	StateExploring         State = "EXPLORING"
	StateSynthesizing      State = "SYNTHESIZING"
	StateQuestioning       State = "QUESTIONING"
	StateAwaitingAnswers   State = "AWAITING_ANSWERS"
	StateRefining          State = "REFINING"
	StateAwaitingApproval  State = "AWAITING_APPROVAL"
	StateApproved          State = "APPROVED"
	StateAborted           State = "ABORTED"
)

// transitions is the legal-target table: anything not listed here is
// a no-op that fails with errkind.StateTransitionBad.
var transitions = map[State][]State{
	StateIdle:             {StateExploring},
	StateExploring:        {StateSynthesizing, StateAborted},
	StateSynthesizing:     {StateQuestioning, StateAwaitingApproval, StateAborted},
	StateQuestioning:      {StateAwaitingAnswers, StateAborted},
	StateAwaitingAnswers:  {StateRefining, StateAborted},
	StateRefining:         {StateQuestioning, StateAwaitingApproval, StateAborted},
	StateAwaitingApproval: {StateApproved, StateRefining, StateAborted},
	StateApproved:         {StateIdle},
	StateAborted:          {StateIdle},
}

// CanTransition reports whether to is a legal target from from.
func CanTransition(from, to State) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsActive reports whether a session in this state is still being
// worked on: everywhere except IDLE and the terminal states.
func (s State) IsActive() bool { return s != StateIdle && !s.IsTerminal() }

// IsTerminal reports whether this state ends the workflow.
func (s State) IsTerminal() bool { return s == StateApproved || s == StateAborted }

// Question is one entry of a planning agent's Q&A payload.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// Answer pairs a Question's id with the user's chosen or typed reply.
type Answer struct {
	QuestionID int    `json:"question_id"`
	Text       string `json:"text"`
}

// PlanningSession is the persisted planning state, one file per
// context id at <base>/contexts/<ctx-id>/plan_state.json.
type PlanningSession struct {
	State               State      `json:"state"`
	ContextID           string     `json:"context_id"`
	Task                string     `json:"task"`
	ExplorationFindings string     `json:"exploration_findings,omitempty"`
	PlanContent         string     `json:"plan_content,omitempty"`
	Questions           []Question `json:"questions,omitempty"`
	Answers             []Answer   `json:"answers,omitempty"`
	Iteration           int        `json:"iteration"`
	PlanPath            string     `json:"plan_path,omitempty"`
	CreatedAt           string     `json:"created_at"`
	UpdatedAt           string     `json:"updated_at"`
}

// transitionTo validates and applies a state change against the
// legal-transition table.
func (p *PlanningSession) transitionTo(target State) error {
	if !CanTransition(p.State, target) {
		return errkind.New(errkind.StateTransitionBad, fmt.Errorf("planning: %s -> %s is not a legal transition", p.State, target))
	}
	p.State = target
	return nil
}
