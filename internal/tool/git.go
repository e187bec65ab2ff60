package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const defaultGitLogLimit = 20

// GitStatusTool reports branch and working-tree state. It never takes the
// index lock.
type GitStatusTool struct {
	engine  *security.Engine
	timeout time.Duration
	logger  *slog.Logger
}

func NewGitStatusTool(engine *security.Engine, timeout time.Duration, logger *slog.Logger) *GitStatusTool {
	return &GitStatusTool{engine: engine, timeout: timeout, logger: logger}
}

func (t *GitStatusTool) Kind() domain.OperationKind { return domain.OpGitStatus }
func (t *GitStatusTool) Description() string {
	return "Show the branch, upstream and changed files of a git working tree."
}

func (t *GitStatusTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	out := t.engine.ValidatePath(req.Arg)
	if err := out.Err(req.Arg); err != nil {
		return nil, err
	}
	stdout, err := runHelper(ctx, t.timeout, out.Value, "git", "--no-pager", "status", "--porcelain=v1", "-b")
	if err != nil {
		return nil, err
	}
	return report.ParseGitStatus(out.Value, stdout), nil
}

// GitLogTool lists recent commits.
type GitLogTool struct {
	engine  *security.Engine
	timeout time.Duration
	limit   int
	logger  *slog.Logger
}

func NewGitLogTool(engine *security.Engine, timeout time.Duration, limit int, logger *slog.Logger) *GitLogTool {
	if limit <= 0 {
		limit = defaultGitLogLimit
	}
	return &GitLogTool{engine: engine, timeout: timeout, limit: limit, logger: logger}
}

func (t *GitLogTool) Kind() domain.OperationKind { return domain.OpGitLog }
func (t *GitLogTool) Description() string {
	return "List recent commits of a git repository."
}

func (t *GitLogTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	out := t.engine.ValidatePath(req.Arg)
	if err := out.Err(req.Arg); err != nil {
		return nil, err
	}
	n := t.limit
	if req.Limit > 0 {
		n = req.Limit
	}
	stdout, err := runHelper(ctx, t.timeout, out.Value, "git", "--no-pager", "log",
		"-n", strconv.Itoa(n), "--pretty=format:"+report.GitLogFormat)
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	return report.ParseGitLog(out.Value, stdout), nil
}
