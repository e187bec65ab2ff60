package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"safegate/internal/domain"
	"safegate/internal/report"
)

// Client runs read-only statements against named connections. Statements
// reach it only after the query guard approved them; it opens no explicit
// transaction and relies on the read-only session settings of each driver.
type Client struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{timeout: timeout, logger: logger}
}

// open checks the driver is available and opens a single-connection pool.
func (c *Client) open(desc domain.ConnectionDescriptor) (*sql.DB, dialect, error) {
	name := canonicalDriver(desc.Driver)
	d, ok := dialects[name]
	if !ok {
		return nil, dialect{}, domain.NewGateError(domain.ReasonDependency,
			"unsupported database driver %q (supported: %s)", desc.Driver, strings.Join(SupportedDrivers(), ", "))
	}
	if !slices.Contains(sql.Drivers(), d.sqlName) {
		return nil, dialect{}, domain.NewGateError(domain.ReasonDependency,
			"database driver %q is not available in this build", d.sqlName)
	}
	dsn, err := d.dsn(desc)
	if err != nil {
		return nil, dialect{}, fmt.Errorf("connection %s: %w", desc.Name, err)
	}
	db, err := sql.Open(d.sqlName, dsn)
	if err != nil {
		return nil, dialect{}, fmt.Errorf("open connection %s: %w", desc.Name, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, d, nil
}

// wrap maps context expiry onto execution_timeout.
func (c *Client) wrap(ctx context.Context, desc domain.ConnectionDescriptor, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewGateError(domain.ReasonTimeout, "query on %s exceeded %s", desc.Name, c.timeout)
	}
	return fmt.Errorf("connection %s: %w", desc.Name, err)
}

// Ping opens the connection and checks it answers.
func (c *Client) Ping(ctx context.Context, desc domain.ConnectionDescriptor) error {
	db, _, err := c.open(desc)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.wrap(ctx, desc, db.PingContext(ctx))
}

// Query runs an approved statement and returns at most limit rows.
func (c *Client) Query(ctx context.Context, desc domain.ConnectionDescriptor, query string, limit int) (*report.QueryDocument, error) {
	db, _, err := c.open(desc)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	doc, err := c.collect(ctx, db, query, limit)
	if err != nil {
		return nil, c.wrap(ctx, desc, err)
	}
	doc.Connection = desc.Name
	doc.Driver = canonicalDriver(desc.Driver)
	c.logger.Info("query completed", "connection", desc.Name, "rows", doc.RowCount, "duration", time.Since(start))
	return doc, nil
}

// Sample returns the first n rows of a table. table must already have
// passed the identifier check.
func (c *Client) Sample(ctx context.Context, desc domain.ConnectionDescriptor, table string, n int) (*report.QueryDocument, error) {
	db, d, err := c.open(desc)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc, err := c.collect(ctx, db, "SELECT * FROM "+d.quote(table)+" LIMIT "+strconv.Itoa(n), n)
	if err != nil {
		return nil, c.wrap(ctx, desc, err)
	}
	doc.Connection = desc.Name
	doc.Driver = canonicalDriver(desc.Driver)
	doc.Table = table
	doc.Op = domain.OpSample
	return doc, nil
}

// Tables lists the tables and views visible to the connection.
func (c *Client) Tables(ctx context.Context, desc domain.ConnectionDescriptor) ([]string, error) {
	db, d, err := c.open(desc)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, d.tablesSQL)
	if err != nil {
		return nil, c.wrap(ctx, desc, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, c.wrap(ctx, desc, err)
		}
		tables = append(tables, name)
	}
	return tables, c.wrap(ctx, desc, rows.Err())
}

// Columns describes a table. table must already have passed the identifier
// check.
func (c *Client) Columns(ctx context.Context, desc domain.ConnectionDescriptor, table string) ([]report.Column, error) {
	db, d, err := c.open(desc)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var cols []report.Column
	if d.columnsSQL == "" {
		cols, err = sqliteColumns(ctx, db, d.quote(table))
	} else {
		cols, err = infoSchemaColumns(ctx, db, d.columnsSQL, table)
	}
	if err != nil {
		return nil, c.wrap(ctx, desc, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found on %s", table, desc.Name)
	}
	return cols, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, quoted string) ([]report.Column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []report.Column
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, report.Column{Name: name, Type: typ, Nullable: notNull == 0 && pk == 0})
	}
	return cols, rows.Err()
}

func infoSchemaColumns(ctx context.Context, db *sql.DB, query, table string) ([]report.Column, error) {
	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []report.Column
	for rows.Next() {
		var name, typ, nullable string
		if err := rows.Scan(&name, &typ, &nullable); err != nil {
			return nil, err
		}
		cols = append(cols, report.Column{Name: name, Type: typ, Nullable: strings.EqualFold(nullable, "YES")})
	}
	return cols, rows.Err()
}

// collect reads up to limit rows. One extra row is fetched to detect
// truncation.
func (c *Client) collect(ctx context.Context, db *sql.DB, query string, limit int) (*report.QueryDocument, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	doc := &report.QueryDocument{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if limit > 0 && len(doc.Rows) >= limit {
			doc.Truncated = true
			break
		}
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for i, v := range vals {
			row[i] = render(v)
		}
		doc.Rows = append(doc.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	doc.RowCount = len(doc.Rows)
	return doc, nil
}

// render turns a scanned value into a string; NULL stays nil.
func render(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
