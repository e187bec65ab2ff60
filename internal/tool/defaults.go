package tool

import (
	"log/slog"
	"time"

	"safegate/internal/database"
	"safegate/internal/security"
)

// Limits bounds the report-producing operations.
type Limits struct {
	MaxDepth      int
	SearchLimit   int
	MaxFileBytes  int
	GitLogLimit   int
	RowLimit      int
	HelperTimeout time.Duration // git, lsof
}

// Deps is everything NewDefaultRegistry needs to build the operation set.
type Deps struct {
	Engine   *security.Engine
	Resolver database.Resolver
	DB       *database.Client
	Shell    ShellConfig
	Limits   Limits
	Logger   *slog.Logger
}

// NewDefaultRegistry registers one tool per operation kind.
func NewDefaultRegistry(d Deps) *Registry {
	helper := d.Limits.HelperTimeout
	if helper <= 0 {
		helper = 10 * time.Second
	}

	reg := NewRegistry(d.Logger)
	reg.Register(NewShellTool(d.Engine, d.Shell, d.Logger))
	reg.Register(NewReadTool(d.Engine, d.Limits.MaxFileBytes, d.Logger))
	reg.Register(NewTreeTool(d.Engine, d.Limits.MaxDepth, d.Logger))
	reg.Register(NewSearchTool(d.Engine, d.Limits.SearchLimit, d.Logger))
	reg.Register(NewGitStatusTool(d.Engine, helper, d.Logger))
	reg.Register(NewGitLogTool(d.Engine, helper, d.Limits.GitLogLimit, d.Logger))
	reg.Register(NewPortsTool(helper, d.Logger))
	reg.Register(NewEnvTool(d.Engine, d.Logger))
	reg.Register(NewProjectTool(d.Engine, d.Logger))
	reg.Register(NewCheckTool(d.Engine, d.Logger))

	if d.Resolver != nil && d.DB != nil {
		reg.Register(NewQueryTool(d.Engine, d.Resolver, d.DB, d.Limits.RowLimit, d.Logger))
		reg.Register(NewSchemaTool(d.Engine, d.Resolver, d.DB, d.Logger))
		reg.Register(NewSampleTool(d.Engine, d.Resolver, d.DB, d.Limits.RowLimit, d.Logger))
	}
	return reg
}
