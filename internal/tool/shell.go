package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const (
	defaultShell          = "sh"
	defaultShellTimeout   = 30
	defaultMaxOutputBytes = 65536
)

type ShellConfig struct {
	Shell          string
	TimeoutSeconds int
	MaxOutputBytes int
}

// ShellTool runs validated commands with `<shell> -c`.
type ShellTool struct {
	engine         *security.Engine
	shell          string
	timeout        time.Duration
	maxOutputBytes int
	logger         *slog.Logger
}

func NewShellTool(engine *security.Engine, cfg ShellConfig, logger *slog.Logger) *ShellTool {
	if cfg.Shell == "" {
		cfg.Shell = defaultShell
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultShellTimeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	return &ShellTool{
		engine:         engine,
		shell:          cfg.Shell,
		timeout:        time.Duration(cfg.TimeoutSeconds) * time.Second,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         logger,
	}
}

func (s *ShellTool) Kind() domain.OperationKind { return domain.OpExec }

func (s *ShellTool) Description() string {
	return "Run a shell command after the dangerous-command check. Returns exit status, stdout and stderr."
}

func (s *ShellTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	command := strings.TrimSpace(req.Arg)
	if command == "" {
		return nil, fmt.Errorf("missing argument: command")
	}
	if err := s.engine.ValidateCommand(command).Err(command); err != nil {
		return nil, err
	}
	res, err := s.run(ctx, command, req.Timeout)
	if err != nil {
		return nil, err
	}
	return report.NewExecDocument(command, res), nil
}

// run spawns the shell in its own process group. On timeout the whole group
// is killed and partial output is discarded. A non-zero exit is a result,
// not an error.
func (s *ShellTool) run(ctx context.Context, command string, timeout time.Duration) (*domain.ExecutionResult, error) {
	shellPath, err := exec.LookPath(s.shell)
	if err != nil {
		return nil, domain.NewGateError(domain.ReasonDependency, "shell %q not found in PATH", s.shell)
	}
	if timeout <= 0 {
		timeout = s.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, shellPath, "-c", command)
	cmd.Dir = s.engine.WorkDir()
	stdout := &limitedBuffer{max: s.maxOutputBytes}
	stderr := &limitedBuffer{max: s.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	killProcessGroup(cmd)

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("command timed out", "command", command, "timeout", timeout)
		return nil, domain.NewGateError(domain.ReasonTimeout, "command exceeded %s", timeout)
	}

	// A background child still holding stdout open makes Wait give up on the
	// pipes after WaitDelay; the shell itself has exited and its status stands.
	var exitErr *exec.ExitError
	switch {
	case err == nil, errors.As(err, &exitErr):
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		s.logger.Debug("output pipes still held after exit", "command", command)
	default:
		return nil, fmt.Errorf("run command: %w", err)
	}
	status := exitStatus(cmd.ProcessState)

	s.logger.Info("command completed", "command", command, "exit_status", status, "duration", elapsed)
	return &domain.ExecutionResult{
		ExitStatus: status,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   elapsed,
		Truncated:  stdout.truncated || stderr.truncated,
	}, nil
}
