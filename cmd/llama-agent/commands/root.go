// Package commands implements the CLI surface of the core orchestration
// engine: a cobra root command plus run/plan/stats/tools/agents
// subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llama-agent/llama-agent/internal/config"
	"github.com/llama-agent/llama-agent/internal/logging"
)

var (
	flagYolo          bool
	flagNoSkills      bool
	flagSkillsPaths   []string
	flagMaxIterations int
	flagMaxIterAlias  int
	flagDataDir       string
	flagDataDirAlias  string
	flagWorkingDir    string
	flagPrompt        string
	flagVerbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "llama-agent",
	Short: "A bounded tool-using LLM agent with subagents and interactive planning",
	Long: `llama-agent runs a tool-using agent loop against an LLM backend,
can spawn isolated subagents for focused subtasks, and drives an
interactive explorer->planner->Q&A->approval workflow via /plan.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.InfoLevel
		if flagVerbose {
			level = logging.DebugLevel
		}
		logging.Init(logging.Config{Level: level, Pretty: true})
		if flagMaxIterAlias > 0 {
			flagMaxIterations = flagMaxIterAlias
		}
		if flagDataDirAlias != "" {
			flagDataDir = flagDataDirAlias
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd, args)
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&flagYolo, "yolo", false, "Bypass all permission prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNoSkills, "no-skills", false, "Disable skill loading")
	rootCmd.PersistentFlags().StringArrayVar(&flagSkillsPaths, "skills-path", nil, "Additional skills directory (repeatable)")
	rootCmd.PersistentFlags().IntVarP(&flagMaxIterations, "max-iterations", "m", 0, "Max agent-loop iterations (clamped [1,1000])")
	rootCmd.PersistentFlags().IntVar(&flagMaxIterAlias, "mi", 0, "Alias for --max-iterations")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the data directory (default <working-dir>/.llama-agent)")
	rootCmd.PersistentFlags().StringVar(&flagDataDirAlias, "dd", "", "Alias for --data-dir")
	rootCmd.PersistentFlags().StringVarP(&flagWorkingDir, "working-dir", "C", "", "Working directory (must exist)")
	rootCmd.PersistentFlags().StringVarP(&flagPrompt, "prompt", "p", "", "One-shot prompt; implies single-turn")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(agentsCmd)
}

// Execute runs the root command and returns the process exit code: 0
// normal, 1 configuration/startup error, 130 on a signal-initiated
// abort.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if isInterrupted(err) {
			return 130
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// GetWorkDir resolves the effective working directory: the --working-dir
// flag if set (validated to exist and be a directory), else the
// process's current directory.
func GetWorkDir(override string) (string, error) {
	if override == "" {
		return os.Getwd()
	}
	info, err := os.Stat(override)
	if err != nil {
		return "", fmt.Errorf("working directory %q: %w", override, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", override)
	}
	return override, nil
}

// clampMaxIterations applies the [1,1000] clamp. 0 means "unset", left
// to the agent/config defaults downstream.
func clampMaxIterations(n int) int {
	if n <= 0 {
		return 0
	}
	if n > 1000 {
		return 1000
	}
	return n
}

func buildConfig(workDir string) (*config.Config, *config.Paths, error) {
	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, nil, err
	}
	if flagYolo {
		cfg.YoloMode = true
	}
	if flagNoSkills {
		cfg.NoSkills = true
	}
	if len(flagSkillsPaths) > 0 {
		cfg.SkillsPaths = append(cfg.SkillsPaths, flagSkillsPaths...)
	}
	if n := clampMaxIterations(flagMaxIterations); n > 0 {
		cfg.MaxIterations = n
	}

	paths := config.NewPaths(workDir, flagDataDir)
	if err := paths.EnsureDataDir(); err != nil {
		return nil, nil, err
	}
	return cfg, paths, nil
}

func newLogger() zerolog.Logger {
	return logging.Logger
}

func isInterrupted(err error) bool {
	return err == errAborted
}
