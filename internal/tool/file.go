package tool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const (
	defaultMaxFileBytes = 256 * 1024
	defaultTreeDepth    = 3
	maxTreeDepth        = 64
)

// --- ReadTool ---

// ReadTool returns the contents of one non-secret regular file.
type ReadTool struct {
	engine   *security.Engine
	maxBytes int
	logger   *slog.Logger
}

func NewReadTool(engine *security.Engine, maxBytes int, logger *slog.Logger) *ReadTool {
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	return &ReadTool{engine: engine, maxBytes: maxBytes, logger: logger}
}

func (t *ReadTool) Kind() domain.OperationKind { return domain.OpRead }
func (t *ReadTool) Description() string {
	return "Read a file. Secret files and credential directories are refused."
}

func (t *ReadTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	if req.Arg == "" {
		return nil, fmt.Errorf("missing argument: path")
	}
	out := t.engine.ValidateReadable(req.Arg)
	if err := out.Err(req.Arg); err != nil {
		return nil, err
	}
	path := out.Value

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read file: %s is a directory", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("read file: %s is not a regular file", path)
	}

	max := t.maxBytes
	if req.Limit > 0 {
		max = req.Limit
	}
	// one byte past the limit lets BuildFile see the cut
	data, err := io.ReadAll(io.LimitReader(f, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return report.BuildFile(path, data, info.Size(), max), nil
}

// --- TreeTool ---

// TreeTool lists a directory tree without following symlinks. Forbidden
// subdirectories are shown but not opened.
type TreeTool struct {
	engine       *security.Engine
	defaultDepth int
	logger       *slog.Logger
}

func NewTreeTool(engine *security.Engine, defaultDepth int, logger *slog.Logger) *TreeTool {
	if defaultDepth <= 0 {
		defaultDepth = defaultTreeDepth
	}
	return &TreeTool{engine: engine, defaultDepth: defaultDepth, logger: logger}
}

func (t *TreeTool) Kind() domain.OperationKind { return domain.OpTree }
func (t *TreeTool) Description() string {
	return "List a directory tree up to a depth limit."
}

func (t *TreeTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	out := t.engine.ValidatePath(req.Arg)
	if err := out.Err(req.Arg); err != nil {
		return nil, err
	}
	root := out.Value

	depth := t.defaultDepth
	if req.Depth > 0 {
		depth = min(req.Depth, maxTreeDepth)
	}
	prune := func(rel string) bool {
		return !t.engine.ValidatePath(filepath.Join(root, filepath.FromSlash(rel))).Allowed
	}
	doc, err := report.BuildTree(os.DirFS(root), root, report.TreeOptions{
		MaxDepth:   depth,
		MaxEntries: req.Limit,
		Prune:      prune,
	})
	if err != nil {
		return nil, fmt.Errorf("tree: %w", err)
	}
	return doc, nil
}
