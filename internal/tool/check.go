package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

// CheckKinds are the validators reachable through the check operation.
var CheckKinds = []string{"command", "path", "readable", "query", "identifier", "secret"}

// CheckTool runs a single validator and reports its verdict. Nothing is
// executed, read or opened.
type CheckTool struct {
	engine *security.Engine
	logger *slog.Logger
}

func NewCheckTool(engine *security.Engine, logger *slog.Logger) *CheckTool {
	return &CheckTool{engine: engine, logger: logger}
}

func (t *CheckTool) Kind() domain.OperationKind { return domain.OpCheck }
func (t *CheckTool) Description() string {
	return "Report whether an input would pass a validator (" + strings.Join(CheckKinds, ", ") + ")."
}

func (t *CheckTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	var out domain.ValidationOutcome
	switch req.CheckKind {
	case "command":
		out = t.engine.ValidateCommand(req.Arg)
	case "path":
		out = t.engine.ValidatePath(req.Arg)
	case "readable":
		out = t.engine.ValidateReadable(req.Arg)
	case "query":
		out = t.engine.ValidateQuery(req.Arg)
	case "identifier":
		out = t.engine.ValidateIdentifier(req.Arg)
	case "secret":
		out = domain.Allow("")
		if t.engine.IsSecretFile(req.Arg) {
			out = domain.Block(domain.ReasonSecretFile, "")
		}
	default:
		return nil, fmt.Errorf("unknown check %q (want one of %s)", req.CheckKind, strings.Join(CheckKinds, ", "))
	}
	return &report.CheckDocument{
		Check:   req.CheckKind,
		Input:   req.Arg,
		Allowed: out.Allowed,
		Reason:  out.Reason,
		Value:   out.Value,
		Rule:    out.Rule,
	}, nil
}
