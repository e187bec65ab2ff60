package config

import (
	"path/filepath"

	"safegate/internal/policy"
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "error",
			Output:   "auto",
		},
		Exec: ExecConfig{
			Shell:          "sh",
			TimeoutSeconds: 30,
			MaxOutputBytes: 65536,
		},
		Report: ReportConfig{
			MaxDepth:     3,
			SearchLimit:  200,
			MaxFileBytes: 262144,
			GitLogLimit:  20,
		},
		Database: DatabaseConfig{
			ConnectionsFile:     filepath.Join(DefaultConfigDir(), "connections.toml"),
			QueryTimeoutSeconds: 30,
			RowLimit:            500,
		},
	}
}

// PolicyRules converts the security section into policy rules appended after
// the built-ins and the policy file.
func (s SecurityConfig) PolicyRules() []policy.Rule {
	var rules []policy.Rule
	add := func(kind policy.RuleKind, patterns []string) {
		for _, p := range patterns {
			rules = append(rules, policy.Rule{Kind: kind, Pattern: p, Description: "config"})
		}
	}
	add(policy.KindCommandSubstring, s.Blacklist)
	add(policy.KindCommandRegex, s.BlacklistRegex)
	add(policy.KindPathPrefix, s.ForbiddenPaths)
	add(policy.KindSecretPattern, s.SecretPatterns)
	add(policy.KindSQLKeyword, s.SQLWriteKeywords)
	add(policy.KindEnvSecret, s.EnvSecretKeywords)
	return rules
}
