package security

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"safegate/internal/domain"
	"safegate/internal/policy"
)

// EngineConfig configures the validators.
type EngineConfig struct {
	// WorkDir is the directory relative paths resolve against (default: process cwd).
	WorkDir string
	// Root bounds ".." traversal (default: WorkDir).
	Root string
	// ExtraForbidden are additional forbidden prefixes, e.g. the connections file.
	ExtraForbidden []string
}

// Engine implements the command, path, secret-file and SQL validators on top
// of an immutable policy store. All methods are pure with respect to the
// engine: they read the store and the filesystem, never write.
type Engine struct {
	store   *policy.Store
	workDir string
	root    string
	logger  *slog.Logger

	forbidden []string // canonical forbidden prefixes
}

func NewEngine(store *policy.Store, cfg EngineConfig, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(expandHome(workDir))
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	root := cfg.Root
	if root == "" {
		root = workDir
	}
	root, err = filepath.Abs(expandHome(root))
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	e := &Engine{
		store:   store,
		workDir: workDir,
		root:    root,
		logger:  logger,
	}

	prefixes := append(store.ForbiddenPrefixes(), cfg.ExtraForbidden...)
	for _, p := range prefixes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(expandHome(p))
		if err != nil {
			return nil, fmt.Errorf("forbidden prefix %q: %w", p, err)
		}
		e.forbidden = append(e.forbidden, abs)
		if c := canonicalize(abs); c != abs {
			e.forbidden = append(e.forbidden, c)
		}
	}
	return e, nil
}

// Store returns the policy store the engine was built with.
func (e *Engine) Store() *policy.Store { return e.store }

// WorkDir returns the absolute working directory.
func (e *Engine) WorkDir() string { return e.workDir }

// Root returns the absolute traversal root.
func (e *Engine) Root() string { return e.root }

// ValidateCommand classifies a shell command string. The trimmed string is
// matched literally against the denylist; no quoting, variable expansion or
// tokenization is undone first, so obfuscated input can evade it.
func (e *Engine) ValidateCommand(raw string) domain.ValidationOutcome {
	cmd := strings.TrimSpace(raw)

	if rule, ok := e.store.MatchCommand(cmd); ok {
		e.logger.Warn("command BLOCKED by policy",
			"command", cmd,
			"pattern", rule.Pattern,
			"description", rule.Description,
		)
		return domain.Block(rule.Reason, rule.Pattern)
	}
	return domain.Allow(cmd)
}
