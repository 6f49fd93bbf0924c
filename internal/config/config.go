package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/llama-agent/llama-agent/internal/errkind"
)

// Config holds the settings that outlive a single CLI flag parse:
// defaults a user can persist in a JSON file instead of repeating on
// every invocation. Flags always win over a loaded Config; Config
// always wins over these struct defaults.
type Config struct {
	YoloMode      bool     `json:"yolo_mode,omitempty"`
	NoSkills      bool     `json:"no_skills,omitempty"`
	SkillsPaths   []string `json:"skills_paths,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

const configFileName = "config.json"

// Load reads the user-global config file, then the project-local one,
// merging the latter over the former. A missing file at either
// location is not an error.
func Load(workingDir string) (*Config, error) {
	cfg := &Config{}

	if err := mergeFile(cfg, filepath.Join(UserConfigDir(), configFileName)); err != nil {
		return nil, err
	}
	if workingDir != "" {
		if err := mergeFile(cfg, filepath.Join(workingDir, ".llama-agent", configFileName)); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errkind.New(errkind.IO, err)
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return errkind.New(errkind.InvalidConfig, err)
	}

	if fileCfg.YoloMode {
		cfg.YoloMode = true
	}
	if fileCfg.NoSkills {
		cfg.NoSkills = true
	}
	if len(fileCfg.SkillsPaths) > 0 {
		cfg.SkillsPaths = fileCfg.SkillsPaths
	}
	if fileCfg.MaxIterations > 0 {
		cfg.MaxIterations = fileCfg.MaxIterations
	}
	return nil
}

// applyEnvOverrides applies the handful of environment variable
// overrides this core's settings support.
func applyEnvOverrides(cfg *Config) {
	if os.Getenv("LLAMA_AGENT_YOLO") == "1" {
		cfg.YoloMode = true
	}
	if os.Getenv("LLAMA_AGENT_NO_SKILLS") == "1" {
		cfg.NoSkills = true
	}
}

// Save writes cfg as indented JSON to path, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errkind.New(errkind.IO, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errkind.New(errkind.IO, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errkind.New(errkind.IO, err)
	}
	return nil
}
