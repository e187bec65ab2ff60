package tool

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const (
	defaultSearchLimit = 200
	maxSearchFileBytes = 10 << 20
	sniffBytes         = 8000
)

// skipDirs are never descended by search.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	".tox":         true,
}

// SearchTool greps files under a directory. Secret files and forbidden
// locations are skipped, never read.
type SearchTool struct {
	engine *security.Engine
	limit  int
	logger *slog.Logger
}

func NewSearchTool(engine *security.Engine, limit int, logger *slog.Logger) *SearchTool {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return &SearchTool{engine: engine, limit: limit, logger: logger}
}

func (t *SearchTool) Kind() domain.OperationKind { return domain.OpSearch }
func (t *SearchTool) Description() string {
	return "Search file contents for a regular expression."
}

func (t *SearchTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	if req.Arg == "" {
		return nil, fmt.Errorf("missing argument: pattern")
	}
	re, err := report.CompileSearch(req.Arg, req.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	out := t.engine.ValidatePath(req.Path)
	if err := out.Err(req.Path); err != nil {
		return nil, err
	}
	root := out.Value

	limit := t.limit
	if req.Limit > 0 {
		limit = req.Limit
	}
	doc := &report.SearchDocument{Pattern: req.Arg, Root: root, Matches: []report.SearchHit{}}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root {
				return err
			}
			doc.Skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && (skipDirs[d.Name()] || !t.engine.ValidatePath(p).Allowed) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !t.engine.ValidateReadable(p).Allowed {
			doc.Skipped++
			return nil
		}

		hits, more, err := t.scanFile(p, displayPath(root, p), re, limit-len(doc.Matches))
		if err != nil {
			doc.Skipped++
			return nil
		}
		doc.Matches = append(doc.Matches, hits...)
		if more {
			doc.Truncated = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	doc.Count = len(doc.Matches)
	return doc, nil
}

func (t *SearchTool) scanFile(path, display string, re *regexp.Regexp, remaining int) ([]report.SearchHit, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	if info, err := f.Stat(); err != nil || info.Size() > maxSearchFileBytes {
		return nil, false, nil
	}
	br := bufio.NewReaderSize(f, sniffBytes)
	head, _ := br.Peek(sniffBytes)
	if report.LooksBinary(head) {
		return nil, false, nil
	}
	return report.ScanLines(br, display, re, remaining)
}

func displayPath(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(p)
}
