package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk policy overlay format.
//
//	version: team-2026.10
//	replaceDefaults: false
//	commandRegex:
//	  - pattern: '\bshutdown\b'
//	    description: host power control
//	pathPrefix:
//	  - pattern: ~/.vault
type File struct {
	Version          string      `yaml:"version"`
	ReplaceDefaults  bool        `yaml:"replaceDefaults"`
	CommandSubstring []FileEntry `yaml:"commandSubstring"`
	CommandRegex     []FileEntry `yaml:"commandRegex"`
	PathPrefix       []FileEntry `yaml:"pathPrefix"`
	SecretPattern    []FileEntry `yaml:"secretPattern"`
	SQLKeyword       []FileEntry `yaml:"sqlKeyword"`
	EnvSecret        []FileEntry `yaml:"envSecret"`
}

// FileEntry is a single pattern in a policy file.
type FileEntry struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

// Rules flattens the file into rules, in kind order.
func (f *File) Rules() []Rule {
	var rules []Rule
	add := func(kind RuleKind, entries []FileEntry) {
		for _, e := range entries {
			rules = append(rules, Rule{Kind: kind, Pattern: e.Pattern, Description: e.Description})
		}
	}
	add(KindCommandSubstring, f.CommandSubstring)
	add(KindCommandRegex, f.CommandRegex)
	add(KindPathPrefix, f.PathPrefix)
	add(KindSecretPattern, f.SecretPattern)
	add(KindSQLKeyword, f.SQLKeyword)
	add(KindEnvSecret, f.EnvSecret)
	return rules
}

// Options collects the inputs Load merges into one Store.
type Options struct {
	File  string // optional YAML overlay; empty means built-ins only
	Extra []Rule // rules contributed by the config file
}

// Load builds the process-wide Store: built-in rules, then the YAML overlay,
// then extra rules from configuration. It is called once at start-up.
func Load(opts Options) (*Store, error) {
	version := DefaultVersion
	rules := DefaultRules()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("cannot read policy file %s: %w", opts.File, err)
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("cannot parse policy file %s: %w", opts.File, err)
		}
		if f.ReplaceDefaults {
			rules = nil
		}
		rules = append(rules, f.Rules()...)
		if f.Version != "" {
			version = f.Version
		} else {
			version += "+" + opts.File
		}
	}

	rules = append(rules, opts.Extra...)

	s, err := New(version, rules)
	if err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return s, nil
}
