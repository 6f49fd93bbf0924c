package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/tool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the Tool Registry's registered tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagWorkingDir)
		if err != nil {
			return err
		}
		fmt.Println(renderTools(a.tools))
		return nil
	},
}

// renderTools prints C1's sorted tool table: each tool's call
// signature and description, the same information the system prompt's
// tool table exposes to the model.
func renderTools(reg *tool.Registry) string {
	out := ""
	for _, t := range reg.List() {
		out += fmt.Sprintf("%-40s %s\n", t.Signature(), t.Description())
	}
	if out == "" {
		return "No tools registered."
	}
	return out[:len(out)-1]
}
