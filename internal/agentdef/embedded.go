package agentdef

// Embedded returns the compiled-in agent definitions the planning
// workflow depends on: planning-agent (read-only analysis that
// produces a plan and clarifying questions) and explorer-agent
// (read-only codebase exploration).
func Embedded() []*Definition {
	return []*Definition{
		{
			Name:        "planning-agent",
			Description: "Produces an implementation plan and clarifying questions from exploration findings, without making changes",
			AllowedTools: []string{"read", "glob", "grep", "ls"},
			MaxIterations: 25,
			Instructions: planningAgentInstructions,
			Metadata:      map[string]string{},
		},
		{
			Name:          "explorer-agent",
			Description:  "Explores the codebase read-only to gather context before planning or implementation",
			AllowedTools: []string{"read", "glob", "grep", "ls"},
			MaxIterations: 25,
			Instructions:  explorerAgentInstructions,
			Metadata:      map[string]string{},
		},
	}
}

const explorerAgentInstructions = `You explore a codebase to gather context. You never modify files and
never run commands with side effects.

Use read, glob, grep, and ls to understand the structure, conventions,
and relevant code paths for the task you are given. Report concrete
findings: file paths, function/type names, and how pieces fit
together. Do not propose a plan; that is a separate agent's job.`

const planningAgentInstructions = `You turn exploration findings and a task description into an
implementation plan. You never modify files.

Produce a plan in markdown covering the approach, the files you
expect to touch, and the order of steps. If anything about the task
is ambiguous or underspecified, end your response with a fenced json
block of the form:

` + "```json" + `
{"questions": [{"id": 1, "text": "...", "options": ["..."]}]}
` + "```" + `

Omit the json block entirely when you have no questions.`
