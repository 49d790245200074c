package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Environment variables that override file settings
const (
	EnvConfig        = "ATAR_CONFIG"
	EnvBinary        = "ATAR_TERRAFORM_BIN"
	EnvWorkspaceRoot = "ATAR_WORKSPACE_ROOT"
	EnvLogLevel      = "ATAR_LOG_LEVEL"
)

// Config holds settings shared by every command
type Config struct {
	Binary            string            `toml:"binary"`
	WorkspaceRoot     string            `toml:"workspace_root"`
	Namespace         string            `toml:"namespace"`
	Debug             bool              `toml:"debug"`
	LogLevel          string            `toml:"log_level"`
	ReportAWSIdentity bool              `toml:"report_aws_identity"`
	InspectVariables  bool              `toml:"inspect_variables"`
	Vars              map[string]string `toml:"vars"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Binary:           "terraform",
		Namespace:        "atar",
		LogLevel:         "info",
		InspectVariables: true,
		Vars:             map[string]string{},
	}
}

// DefaultPath returns the config file looked up when none is given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "atar", "config.toml")
}

// Load reads the config file at path on top of the defaults and applies environment
// overrides. An empty path falls back to ATAR_CONFIG, then DefaultPath; only a missing
// file that was asked for explicitly is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath()
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				applyEnv(&cfg)
				return cfg, nil
			}
			return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBinary); v != "" {
		cfg.Binary = v
	}
	if v := os.Getenv(EnvWorkspaceRoot); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// MergeVars returns the configured variables overlaid with overrides
func (c Config) MergeVars(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(c.Vars)+len(overrides))
	for k, v := range c.Vars {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
