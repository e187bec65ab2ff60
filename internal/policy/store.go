// Package policy holds the immutable rule set consulted by every validator.
package policy

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"safegate/internal/domain"
)

// RuleKind selects how a rule pattern is interpreted.
type RuleKind string

const (
	KindCommandSubstring RuleKind = "command-substring"
	KindCommandRegex     RuleKind = "command-regex"
	KindPathPrefix       RuleKind = "path-prefix"
	KindSecretPattern    RuleKind = "secret-pattern"
	KindSQLKeyword       RuleKind = "sql-keyword"
	KindEnvSecret        RuleKind = "env-secret"
)

// Kinds lists all rule kinds in display order.
func Kinds() []RuleKind {
	return []RuleKind{
		KindCommandSubstring, KindCommandRegex, KindPathPrefix,
		KindSecretPattern, KindSQLKeyword, KindEnvSecret,
	}
}

func (k RuleKind) reason() domain.ReasonCode {
	switch k {
	case KindCommandSubstring, KindCommandRegex:
		return domain.ReasonDangerousCommand
	case KindPathPrefix:
		return domain.ReasonForbiddenPath
	case KindSecretPattern:
		return domain.ReasonSecretFile
	case KindSQLKeyword:
		return domain.ReasonWriteOperation
	}
	return ""
}

// Rule is one denylist entry.
type Rule struct {
	Kind        RuleKind          `json:"kind" yaml:"kind"`
	Pattern     string            `json:"pattern" yaml:"pattern"`
	Reason      domain.ReasonCode `json:"reason,omitempty" yaml:"reason,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp // command-regex and sql-keyword only
}

// Store is the compiled rule set. It has no mutators; accessors return copies.
type Store struct {
	version  string
	rules    []Rule
	commands []compiledRule
	prefixes []string
	secrets  []string
	keywords []compiledRule
	envNames []string
}

// New compiles rules into a Store. Invalid regexes and unknown kinds are errors.
func New(version string, rules []Rule) (*Store, error) {
	s := &Store{version: version}
	for _, r := range rules {
		r.Pattern = strings.TrimSpace(r.Pattern)
		if r.Pattern == "" {
			continue
		}
		if r.Reason == "" {
			r.Reason = r.Kind.reason()
		}
		switch r.Kind {
		case KindCommandSubstring:
			s.commands = append(s.commands, compiledRule{Rule: r})
		case KindCommandRegex:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", r.Pattern, err)
			}
			s.commands = append(s.commands, compiledRule{Rule: r, re: re})
		case KindPathPrefix:
			s.prefixes = append(s.prefixes, r.Pattern)
		case KindSecretPattern:
			p := strings.ToLower(r.Pattern)
			if _, err := path.Match(p, ""); err != nil {
				return nil, fmt.Errorf("secret pattern %q: %w", r.Pattern, err)
			}
			s.secrets = append(s.secrets, p)
		case KindSQLKeyword:
			kw := strings.ToUpper(r.Pattern)
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("sql keyword %q: %w", r.Pattern, err)
			}
			r.Pattern = kw
			s.keywords = append(s.keywords, compiledRule{Rule: r, re: re})
		case KindEnvSecret:
			s.envNames = append(s.envNames, strings.ToUpper(r.Pattern))
		default:
			return nil, fmt.Errorf("unknown rule kind %q for pattern %q", r.Kind, r.Pattern)
		}
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Version identifies the rule set (built-in version or the policy file's).
func (s *Store) Version() string { return s.version }

// Rules returns a copy of every rule in load order.
func (s *Store) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// MatchCommand returns the first command rule matching cmd. Matching is
// case-sensitive and literal: no shell expansion happens first.
func (s *Store) MatchCommand(cmd string) (Rule, bool) {
	for _, r := range s.commands {
		if r.re != nil {
			if r.re.MatchString(cmd) {
				return r.Rule, true
			}
			continue
		}
		if strings.Contains(cmd, r.Pattern) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}

// ForbiddenPrefixes returns the raw (unexpanded) forbidden path prefixes.
func (s *Store) ForbiddenPrefixes() []string {
	return append([]string(nil), s.prefixes...)
}

// MatchSecretName reports whether a lower-cased basename matches a secret pattern.
func (s *Store) MatchSecretName(base string) (string, bool) {
	base = strings.ToLower(base)
	for _, p := range s.secrets {
		if ok, _ := path.Match(p, base); ok {
			return p, true
		}
	}
	return "", false
}

// MatchSQLKeyword returns the first write keyword found anywhere in sql.
func (s *Store) MatchSQLKeyword(sql string) (string, bool) {
	upper := strings.ToUpper(sql)
	for _, r := range s.keywords {
		if r.re.MatchString(upper) {
			return r.Pattern, true
		}
	}
	return "", false
}

// MatchEnvName reports whether an environment variable name looks secret-bearing.
func (s *Store) MatchEnvName(name string) bool {
	upper := strings.ToUpper(name)
	for _, sub := range s.envNames {
		if strings.Contains(upper, sub) {
			return true
		}
	}
	return false
}
