package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for safegate.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Security SecurityConfig `json:"security"`
	Exec     ExecConfig     `json:"exec"`
	Report   ReportConfig   `json:"report"`
	Database DatabaseConfig `json:"database"`
}

type GeneralConfig struct {
	WorkDir  string `json:"workDir,omitempty"` // empty = process working directory
	Root     string `json:"root,omitempty"`    // bound for ".." traversal; empty = workDir
	LogLevel string `json:"logLevel"`
	Output   string `json:"output"` // "auto" | "json" | "yaml" | "text"
	EnvFile  string `json:"envFile,omitempty"`
}

// SecurityConfig adds to the built-in policy. Lists are appended, never replace.
type SecurityConfig struct {
	PolicyFile        string   `json:"policyFile,omitempty"` // YAML overlay
	Blacklist         []string `json:"blacklist,omitempty"`  // command substrings
	BlacklistRegex    []string `json:"blacklistRegex,omitempty"`
	ForbiddenPaths    []string `json:"forbiddenPaths,omitempty"`
	SecretPatterns    []string `json:"secretPatterns,omitempty"`
	SQLWriteKeywords  []string `json:"sqlWriteKeywords,omitempty"`
	EnvSecretKeywords []string `json:"envSecretKeywords,omitempty"`
}

type ExecConfig struct {
	Shell          string `json:"shell"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	MaxOutputBytes int    `json:"maxOutputBytes"`
}

type ReportConfig struct {
	MaxDepth     int `json:"maxDepth"`
	SearchLimit  int `json:"searchLimit"`
	MaxFileBytes int `json:"maxFileBytes"`
	GitLogLimit  int `json:"gitLogLimit"`
}

type DatabaseConfig struct {
	ConnectionsFile     string `json:"connectionsFile"`
	QueryTimeoutSeconds int    `json:"queryTimeoutSeconds"`
	RowLimit            int    `json:"rowLimit"`
}

// DefaultConfigDir returns the default config directory (~/.safegate).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".safegate"
	}
	return filepath.Join(home, ".safegate")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.expandPaths()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) expandPaths() {
	c.General.WorkDir = ExpandPath(c.General.WorkDir)
	c.General.Root = ExpandPath(c.General.Root)
	c.General.EnvFile = ExpandPath(c.General.EnvFile)
	c.Security.PolicyFile = ExpandPath(c.Security.PolicyFile)
	c.Database.ConnectionsFile = ExpandPath(c.Database.ConnectionsFile)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.Output {
	case "auto", "json", "yaml", "text":
		// valid
	default:
		errs = append(errs, "general.output must be one of: auto, json, yaml, text")
	}

	if cfg.Exec.Shell == "" {
		errs = append(errs, "exec.shell must not be empty")
	}
	if cfg.Exec.TimeoutSeconds < 1 || cfg.Exec.TimeoutSeconds > 3600 {
		errs = append(errs, "exec.timeoutSeconds must be between 1 and 3600")
	}
	if cfg.Exec.MaxOutputBytes < 1024 {
		errs = append(errs, "exec.maxOutputBytes must be >= 1024")
	}

	if cfg.Report.MaxDepth < 1 || cfg.Report.MaxDepth > 64 {
		errs = append(errs, "report.maxDepth must be between 1 and 64")
	}
	if cfg.Report.SearchLimit < 1 {
		errs = append(errs, "report.searchLimit must be >= 1")
	}
	if cfg.Report.MaxFileBytes < 1 {
		errs = append(errs, "report.maxFileBytes must be >= 1")
	}
	if cfg.Report.GitLogLimit < 1 {
		errs = append(errs, "report.gitLogLimit must be >= 1")
	}

	if cfg.Database.QueryTimeoutSeconds < 1 || cfg.Database.QueryTimeoutSeconds > 3600 {
		errs = append(errs, "database.queryTimeoutSeconds must be between 1 and 3600")
	}
	if cfg.Database.RowLimit < 1 {
		errs = append(errs, "database.rowLimit must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
