package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"safegate/internal/config"
	"safegate/internal/database"
	"safegate/internal/domain"
	"safegate/internal/policy"
	"safegate/internal/report"
	"safegate/internal/security"
	"safegate/internal/tool"
)

var version = "0.1.0"

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	policyPath string
	workDir    string
	root       string
	output     string
	timeout    time.Duration
	verbose    bool
}

// app is one CLI invocation.
type app struct {
	opts   options
	stdout io.Writer
	stderr io.Writer

	level  *slog.LevelVar
	logger *slog.Logger
	cfg    *config.Config
	format report.Format

	engine   *security.Engine
	resolver *database.FileResolver
	registry *tool.Registry

	// exitStatus is the child's status after a successful exec.
	exitStatus int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		a.logger.Debug("request failed", "error", err)
		_ = report.EncodeError(stderr, err, a.format)
		return exitCode(err)
	}
	return a.exitStatus
}

func newApp(stdout, stderr io.Writer) *app {
	level := new(slog.LevelVar)
	level.Set(slog.LevelError)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("request_id", uuid.NewString())
	return &app{stdout: stdout, stderr: stderr, level: level, logger: logger, format: report.FormatText}
}

// exitCode maps an error to the documented exit statuses.
func exitCode(err error) int {
	code := domain.CodeOf(err)
	switch {
	case code.IsPolicyBlock():
		return 2
	case code == domain.ReasonTimeout:
		return 124
	case code == domain.ReasonDependency:
		return 127
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "safegate",
		Short: "Safety-gated command and introspection gateway",
		Long: `safegate runs shell commands, inspects the filesystem and reads databases
on behalf of an automated caller. Every request passes a policy check first:
destructive commands, credential locations, secret files and write queries
are refused before anything runs.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.opts.configPath, "config", "c", "", "path to config.json (default: ~/.safegate/config.json)")
	pf.StringVar(&a.opts.policyPath, "policy", "", "policy overlay file (YAML)")
	pf.StringVar(&a.opts.workDir, "workdir", "", "working directory for commands and relative paths")
	pf.StringVar(&a.opts.root, "root", "", "directory '..' may not escape (default: workdir)")
	pf.StringVarP(&a.opts.output, "output", "o", "", "output format: auto, json, yaml or text")
	pf.DurationVar(&a.opts.timeout, "timeout", 0, "execution timeout (default from config)")
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		a.execCmd(),
		a.readCmd(),
		a.treeCmd(),
		a.searchCmd(),
		a.gitCmd(),
		a.portsCmd(),
		a.envCmd(),
		a.projectCmd(),
		a.queryCmd(),
		a.schemaCmd(),
		a.sampleCmd(),
		a.checkCmd(),
		a.policyCmd(),
		a.configCmd(),
		a.doctorCmd(),
		a.versionCmd(),
	)
	return root
}

// resolveConfigPath returns the config path from --config or the default.
func (a *app) resolveConfigPath() string {
	if a.opts.configPath != "" {
		return config.ExpandPath(a.opts.configPath)
	}
	return config.DefaultConfigPath()
}

// setup loads dotenv files and the config, then settles the log level and
// output format. The policy and engine are built on first use.
func (a *app) setup() error {
	if a.opts.verbose {
		a.level.Set(slog.LevelDebug)
	}
	if err := config.LoadEnv(""); err != nil {
		return err
	}

	cfgPath := a.resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	switch {
	case err == nil:
		a.logger.Debug("config loaded", "path", cfgPath)
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Warn("config not found, using defaults", "path", cfgPath)
		cfg = config.Defaults()
	default:
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if cfg.General.EnvFile != "" {
		if err := config.LoadEnv(cfg.General.EnvFile); err != nil {
			return err
		}
	}
	if !a.opts.verbose {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.General.LogLevel)); err == nil {
			a.level.Set(lvl)
		}
	}

	name := a.opts.output
	if name == "" {
		name = cfg.General.Output
	}
	f, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	var out *os.File
	if file, ok := a.stdout.(*os.File); ok {
		out = file
	}
	a.format = f.Resolve(out)
	return nil
}

// loadPolicy builds the immutable policy store: built-ins, the overlay file
// (flag wins over config), then the config's extra lists.
func (a *app) loadPolicy() (*policy.Store, error) {
	file := a.opts.policyPath
	if file == "" {
		file = a.cfg.Security.PolicyFile
	}
	return policy.Load(policy.Options{
		File:  config.ExpandPath(file),
		Extra: a.cfg.Security.PolicyRules(),
	})
}

// gateway builds the engine and the operation registry once.
func (a *app) gateway() (*tool.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	store, err := a.loadPolicy()
	if err != nil {
		return nil, err
	}

	workDir := firstNonEmpty(a.opts.workDir, a.cfg.General.WorkDir)
	root := firstNonEmpty(a.opts.root, a.cfg.General.Root)
	a.resolver = database.NewFileResolver(a.cfg.Database.ConnectionsFile, a.logger)

	engine, err := security.NewEngine(store, security.EngineConfig{
		WorkDir:        workDir,
		Root:           root,
		ExtraForbidden: []string{a.resolver.Path()},
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("security engine: %w", err)
	}
	a.engine = engine

	dbTimeout := time.Duration(a.cfg.Database.QueryTimeoutSeconds) * time.Second
	if a.opts.timeout > 0 {
		dbTimeout = a.opts.timeout
	}
	a.registry = tool.NewDefaultRegistry(tool.Deps{
		Engine:   engine,
		Resolver: a.resolver,
		DB:       database.NewClient(dbTimeout, a.logger),
		Shell: tool.ShellConfig{
			Shell:          a.cfg.Exec.Shell,
			TimeoutSeconds: a.cfg.Exec.TimeoutSeconds,
			MaxOutputBytes: a.cfg.Exec.MaxOutputBytes,
		},
		Limits: tool.Limits{
			MaxDepth:     a.cfg.Report.MaxDepth,
			SearchLimit:  a.cfg.Report.SearchLimit,
			MaxFileBytes: a.cfg.Report.MaxFileBytes,
			GitLogLimit:  a.cfg.Report.GitLogLimit,
			RowLimit:     a.cfg.Database.RowLimit,
		},
		Logger: a.logger,
	})
	a.logger.Debug("gateway ready", "policy", store.Version(), "workdir", engine.WorkDir(), "root", engine.Root())
	return a.registry, nil
}

// run executes one operation and writes its document.
func (a *app) run(cmd *cobra.Command, kind domain.OperationKind, req domain.Request) error {
	reg, err := a.gateway()
	if err != nil {
		return err
	}
	if req.Timeout <= 0 {
		req.Timeout = a.opts.timeout
	}
	doc, err := reg.Execute(cmd.Context(), kind, req)
	if err != nil {
		return err
	}
	if d, ok := doc.(*report.ExecDocument); ok {
		a.exitStatus = d.ExitStatus
	}
	return a.emit(doc)
}

// emit encodes doc completely before writing so a failed encode leaves
// stdout empty.
func (a *app) emit(doc domain.Document) error {
	var buf bytes.Buffer
	if err := report.Encode(&buf, doc, a.format); err != nil {
		return fmt.Errorf("encode %s: %w", doc.Kind(), err)
	}
	_, err := buf.WriteTo(a.stdout)
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
