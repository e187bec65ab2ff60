package report

import (
	"strings"
)

// BuildEnv builds an environment snapshot from KEY=VALUE pairs. Variables
// for which isSecret returns true are left out and only counted.
func BuildEnv(environ []string, isSecret func(name string) bool, sys SystemInfo) *EnvDocument {
	doc := &EnvDocument{Variables: make(map[string]string, len(environ)), System: sys}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		if isSecret(name) {
			doc.Omitted++
			continue
		}
		doc.Variables[name] = value
	}
	return doc
}
