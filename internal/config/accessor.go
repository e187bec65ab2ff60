package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Entry is one flattened config value.
type Entry struct {
	Path  string `json:"path" yaml:"path"`
	Value any    `json:"value" yaml:"value"`
}

// toTree round-trips cfg through JSON so paths use the file's key names.
func toTree(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByPath retrieves a config value by dot-notation path (e.g. "exec.timeoutSeconds").
func GetByPath(cfg *Config, path string) (any, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	var cur any = tree
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("invalid array index %q in %s", key, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%s: cannot descend into %T", path, cur)
		}
	}
	return cur, nil
}

// SetByPath sets a leaf value by dot-notation path. The path must already
// exist: unknown keys are rejected instead of being silently dropped.
func SetByPath(cfg *Config, path string, value string) error {
	tree, err := toTree(cfg)
	if err != nil {
		return err
	}
	keys := strings.Split(path, ".")
	parent := tree
	for _, key := range keys[:len(keys)-1] {
		child, ok := parent[key].(map[string]any)
		if !ok {
			return fmt.Errorf("key not found: %s", path)
		}
		parent = child
	}
	leaf := keys[len(keys)-1]
	current, ok := parent[leaf]
	if !ok {
		if current, ok = omittedFields[path]; !ok {
			return fmt.Errorf("key not found: %s", path)
		}
	}
	if _, isMap := current.(map[string]any); isMap {
		return fmt.Errorf("%s is a section, not a value", path)
	}
	parent[leaf] = coerce(current, value)

	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	updated := Defaults()
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	*cfg = *updated
	return nil
}

// omittedFields are omitempty fields missing from the JSON tree while empty,
// mapped to the zero value that selects their coercion.
var omittedFields = map[string]any{
	"general.workDir":            "",
	"general.root":               "",
	"general.envFile":            "",
	"security.policyFile":        "",
	"security.blacklist":         []any{},
	"security.blacklistRegex":    []any{},
	"security.forbiddenPaths":    []any{},
	"security.secretPatterns":    []any{},
	"security.sqlWriteKeywords":  []any{},
	"security.envSecretKeywords": []any{},
}

// coerce converts the CLI string into the JSON type of the current value.
// Lists accept comma-separated input.
func coerce(current any, s string) any {
	switch current.(type) {
	case bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case []any:
		var out []any
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return s
}

// ListPaths returns every leaf config value, sorted by path.
func ListPaths(cfg *Config) []Entry {
	tree, err := toTree(cfg)
	if err != nil {
		return nil
	}
	var entries []Entry
	flatten("", tree, &entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

func flatten(prefix string, m map[string]any, out *[]Entry) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(path, child, out)
			continue
		}
		*out = append(*out, Entry{Path: path, Value: v})
	}
}
