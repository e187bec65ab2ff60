package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"safegate/internal/database"
	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

const (
	defaultRowLimit   = 1000
	defaultSampleRows = 10
)

// dbTool holds what the database operations share.
type dbTool struct {
	engine   *security.Engine
	resolver database.Resolver
	client   *database.Client
	rowLimit int
	logger   *slog.Logger
}

func newDBTool(engine *security.Engine, resolver database.Resolver, client *database.Client, rowLimit int, logger *slog.Logger) dbTool {
	if rowLimit <= 0 {
		rowLimit = defaultRowLimit
	}
	return dbTool{engine: engine, resolver: resolver, client: client, rowLimit: rowLimit, logger: logger}
}

func (t dbTool) resolve(name string) (domain.ConnectionDescriptor, error) {
	if name == "" {
		return domain.ConnectionDescriptor{}, fmt.Errorf("missing argument: connection (use --conn)")
	}
	return t.resolver.Resolve(name)
}

// limit clamps a requested row count to the configured ceiling.
func (t dbTool) limit(requested, fallback int) int {
	if requested <= 0 {
		requested = fallback
	}
	return min(requested, t.rowLimit)
}

// --- QueryTool ---

// QueryTool runs a read-only SQL statement against a named connection.
type QueryTool struct{ dbTool }

func NewQueryTool(engine *security.Engine, resolver database.Resolver, client *database.Client, rowLimit int, logger *slog.Logger) *QueryTool {
	return &QueryTool{newDBTool(engine, resolver, client, rowLimit, logger)}
}

func (t *QueryTool) Kind() domain.OperationKind { return domain.OpQuery }
func (t *QueryTool) Description() string {
	return "Run a read-only SQL query. Statements containing write keywords are refused."
}

func (t *QueryTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	sql := strings.TrimSpace(req.Arg)
	if sql == "" {
		return nil, fmt.Errorf("missing argument: query")
	}
	if err := t.engine.ValidateQuery(sql).Err(sql); err != nil {
		return nil, err
	}
	desc, err := t.resolve(req.Connection)
	if err != nil {
		return nil, err
	}
	return t.client.Query(ctx, desc, sql, t.limit(req.Limit, t.rowLimit))
}

// --- SchemaTool ---

// SchemaTool lists tables, or the columns of one table.
type SchemaTool struct{ dbTool }

func NewSchemaTool(engine *security.Engine, resolver database.Resolver, client *database.Client, logger *slog.Logger) *SchemaTool {
	return &SchemaTool{newDBTool(engine, resolver, client, 0, logger)}
}

func (t *SchemaTool) Kind() domain.OperationKind { return domain.OpSchema }
func (t *SchemaTool) Description() string {
	return "List the tables of a connection, or the columns of one table."
}

func (t *SchemaTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	table := strings.TrimSpace(req.Arg)
	if table != "" {
		if err := t.engine.ValidateIdentifier(table).Err(table); err != nil {
			return nil, err
		}
	}
	desc, err := t.resolve(req.Connection)
	if err != nil {
		return nil, err
	}

	doc := &report.SchemaDocument{Connection: desc.Name, Driver: desc.Driver}
	if table == "" {
		tables, err := t.client.Tables(ctx, desc)
		if err != nil {
			return nil, err
		}
		doc.Tables = tables
		return doc, nil
	}
	cols, err := t.client.Columns(ctx, desc, table)
	if err != nil {
		return nil, err
	}
	doc.Table = table
	doc.Columns = cols
	return doc, nil
}

// --- SampleTool ---

// SampleTool returns the first rows of a table.
type SampleTool struct{ dbTool }

func NewSampleTool(engine *security.Engine, resolver database.Resolver, client *database.Client, rowLimit int, logger *slog.Logger) *SampleTool {
	return &SampleTool{newDBTool(engine, resolver, client, rowLimit, logger)}
}

func (t *SampleTool) Kind() domain.OperationKind { return domain.OpSample }
func (t *SampleTool) Description() string {
	return "Show the first rows of a table."
}

func (t *SampleTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	table := strings.TrimSpace(req.Arg)
	if table == "" {
		return nil, fmt.Errorf("missing argument: table")
	}
	if err := t.engine.ValidateIdentifier(table).Err(table); err != nil {
		return nil, err
	}
	desc, err := t.resolve(req.Connection)
	if err != nil {
		return nil, err
	}
	return t.client.Sample(ctx, desc, table, t.limit(req.Limit, defaultSampleRows))
}
