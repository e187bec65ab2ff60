package security

import (
	"os"
	"path/filepath"
	"strings"

	"safegate/internal/domain"
)

// ValidatePath canonicalizes raw (relative to the working directory) and
// classifies it. On success Value holds the canonical absolute path.
//
// Order matters: ".." traversal is judged on the lexical path against the
// root, then the forbidden-prefix check runs on the canonical (symlink-free)
// path so neither "..", nor symlinks, nor string tricks reach a forbidden
// location.
func (e *Engine) ValidatePath(raw string) domain.ValidationOutcome {
	p := strings.TrimSpace(raw)
	if p == "" {
		p = "."
	}
	p = expandHome(p)

	lexical := p
	if !filepath.IsAbs(lexical) {
		lexical = filepath.Join(e.workDir, lexical)
	}
	lexical = filepath.Clean(lexical)

	if hasParentSegment(p) && !within(e.root, lexical) {
		e.logger.Warn("path BLOCKED: traversal outside root",
			"path", raw,
			"resolved", lexical,
			"root", e.root,
		)
		return domain.Block(domain.ReasonPathTraversal, "..")
	}

	canonical := canonicalize(lexical)
	for _, f := range e.forbidden {
		if within(f, canonical) || within(f, lexical) {
			e.logger.Warn("path BLOCKED: forbidden location",
				"path", raw,
				"resolved", canonical,
				"prefix", f,
			)
			return domain.Block(domain.ReasonForbiddenPath, f)
		}
	}
	return domain.Allow(canonical)
}

// ValidateReadable is ValidatePath plus the secret-file gate. Operations that
// reveal file contents use it instead of ValidatePath.
func (e *Engine) ValidateReadable(raw string) domain.ValidationOutcome {
	out := e.ValidatePath(raw)
	if !out.Allowed {
		return out
	}
	for _, candidate := range []string{out.Value, raw} {
		if pattern, ok := e.store.MatchSecretName(filepath.Base(strings.TrimSpace(candidate))); ok {
			e.logger.Warn("path BLOCKED: secret file",
				"path", raw,
				"resolved", out.Value,
				"pattern", pattern,
			)
			return domain.Block(domain.ReasonSecretFile, pattern)
		}
	}
	return out
}

func hasParentSegment(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// within reports whether p equals base or is nested under it, segment-wise.
func within(base, p string) bool {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalize resolves symlinks in an absolute path. For paths that do not
// exist yet it resolves the nearest existing ancestor and re-appends the rest.
func canonicalize(abs string) string {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs
	}
	return filepath.Join(canonicalize(parent), filepath.Base(abs))
}

func expandHome(p string) string {
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
