package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print Session Statistics",
	Long: `stats prints the token and cache counters accumulated during the
current process. Statistics are per-process, not persisted, so this is
most useful as the /stats slash command inside an interactive run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(renderStats(stats.New().Snapshot()))
		fmt.Println("\n(statistics accumulate during a run; invoke /stats inside `llama-agent run` for live counters.)")
		return nil
	},
}

var (
	statsLabelStyle = lipgloss.NewStyle().Bold(true).Width(18)
	statsBarFull    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statsBarEmpty   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	statsBoxStyle   = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39"))
)

// renderStats builds a lipgloss-styled table of token counters, a
// derived cache-hit rate, and a context-window usage bar.
func renderStats(s stats.Snapshot) string {
	var b []string
	b = append(b, statsLabelStyle.Render("Input tokens:")+fmt.Sprintf("%d", s.TotalInputTokens))
	b = append(b, statsLabelStyle.Render("Output tokens:")+fmt.Sprintf("%d", s.TotalOutputTokens))
	b = append(b, statsLabelStyle.Render("Cached tokens:")+fmt.Sprintf("%d", s.TotalCachedTokens))
	b = append(b, statsLabelStyle.Render("Cache hit rate:")+fmt.Sprintf("%.1f%%", cacheHitRate(s)*100))
	b = append(b, statsLabelStyle.Render("Prompt time:")+s.TotalPromptTime.String())
	b = append(b, statsLabelStyle.Render("Predicted time:")+s.TotalPredictedTime.String())
	b = append(b, statsLabelStyle.Render("Context usage:")+contextBar(s))

	content := ""
	for i, line := range b {
		if i > 0 {
			content += "\n"
		}
		content += line
	}
	return statsBoxStyle.Render(content)
}

func cacheHitRate(s stats.Snapshot) float64 {
	total := s.TotalInputTokens + s.TotalCachedTokens
	if total == 0 {
		return 0
	}
	return float64(s.TotalCachedTokens) / float64(total)
}

const barWidth = 20

func contextBar(s stats.Snapshot) string {
	if s.ContextWindow == 0 {
		return "n/a"
	}
	frac := float64(s.CurrentContextTokens) / float64(s.ContextWindow)
	if frac > 1 {
		frac = 1
	}
	filled := int(frac * barWidth)
	bar := statsBarFull.Render(repeat("#", filled)) + statsBarEmpty.Render(repeat("-", barWidth-filled))
	return fmt.Sprintf("%s %d/%d (%.0f%%)", bar, s.CurrentContextTokens, s.ContextWindow, frac*100)
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
