// Package config loads persisted defaults (yolo mode, skills paths,
// max iterations) and resolves the data-directory layout the CLI's
// flags are layered on top of.
//
// # Precedence
//
// Flags passed on the command line always win. Below that, Load
// merges the user-global config file over nothing, then the
// project-local one over that, then applies a small set of
// LLAMA_AGENT_* environment variable overrides.
//
// # Paths
//
// UserConfigDir is the per-user config directory:
// `${APPDATA}/llama-agent` on Windows, else `${HOME}/.llama-agent`.
// Paths resolves the per-run data directory, defaulting to
// `<working_dir>/.llama-agent` unless `--data-dir` overrides it.
package config
