package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/agentdef"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the Agent Registry's discovered agent definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagWorkingDir)
		if err != nil {
			return err
		}
		fmt.Println(renderAgents(a.registry))
		return nil
	},
}

// renderAgents prints every discovered Agent Definition's name and
// description, the same pairs the system prompt's available-agents
// XML section carries.
func renderAgents(reg *agentdef.Registry) string {
	out := ""
	for _, d := range reg.List() {
		out += fmt.Sprintf("%-24s %s\n", d.Name, d.Description)
	}
	if out == "" {
		return "No agents registered."
	}
	return out[:len(out)-1]
}
