package database

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"safegate/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedSQLite creates a small database and returns its path.
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)`,
		`INSERT INTO users (name, email) VALUES ('ada', 'ada@example.com'), ('bob', NULL), ('cy', 'cy@example.com')`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
	return path
}

func sqliteDesc(path string) domain.ConnectionDescriptor {
	return domain.ConnectionDescriptor{Name: "local", Driver: "sqlite", Database: path}
}

// --- Client ---

func TestQuery_Rows(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	doc, err := c.Query(context.Background(), sqliteDesc(seedSQLite(t)), "SELECT id, name, email FROM users ORDER BY id", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if strings.Join(doc.Columns, ",") != "id,name,email" {
		t.Fatalf("columns: %v", doc.Columns)
	}
	if doc.RowCount != 3 || doc.Truncated {
		t.Fatalf("rows: %d truncated=%v", doc.RowCount, doc.Truncated)
	}
	if doc.Rows[0][0] != "1" || doc.Rows[0][1] != "ada" {
		t.Errorf("first row: %v", doc.Rows[0])
	}
	if doc.Rows[1][2] != nil {
		t.Errorf("NULL should stay nil, got %#v", doc.Rows[1][2])
	}
	if doc.Connection != "local" || doc.Driver != "sqlite" || doc.Kind() != domain.OpQuery {
		t.Errorf("header: %+v", doc)
	}
}

func TestQuery_RowLimit(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	doc, err := c.Query(context.Background(), sqliteDesc(seedSQLite(t)), "SELECT * FROM users", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if doc.RowCount != 2 || !doc.Truncated {
		t.Fatalf("expected 2 rows truncated, got %d %v", doc.RowCount, doc.Truncated)
	}
}

func TestQuery_ReadOnlySession(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	path := seedSQLite(t)
	if _, err := c.Query(context.Background(), sqliteDesc(path), "INSERT INTO users (name) VALUES ('eve')", 10); err == nil {
		t.Fatal("expected the read-only session to reject a write")
	}
	doc, err := c.Query(context.Background(), sqliteDesc(path), "SELECT count(*) FROM users", 1)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if doc.Rows[0][0] != "3" {
		t.Fatalf("table modified: %v", doc.Rows)
	}
}

func TestQuery_MissingFileNotCreated(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	path := filepath.Join(t.TempDir(), "nope.db")
	if _, err := c.Query(context.Background(), sqliteDesc(path), "SELECT 1", 1); err == nil {
		t.Fatal("expected error for missing database")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("database file must not be created")
	}
}

func TestQuery_Timeout(t *testing.T) {
	c := NewClient(time.Nanosecond, testLogger())
	_, err := c.Query(context.Background(), sqliteDesc(seedSQLite(t)), "SELECT * FROM users", 10)
	if domain.CodeOf(err) != domain.ReasonTimeout {
		t.Fatalf("expected execution_timeout, got %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	c := NewClient(time.Second, testLogger())
	desc := domain.ConnectionDescriptor{Name: "x", Driver: "oracle", Database: "db"}
	_, err := c.Query(context.Background(), desc, "SELECT 1", 1)
	if domain.CodeOf(err) != domain.ReasonDependency {
		t.Fatalf("expected dependency_missing, got %v", err)
	}
}

func TestTablesColumnsSample(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	desc := sqliteDesc(seedSQLite(t))
	ctx := context.Background()

	tables, err := c.Tables(ctx, desc)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if strings.Join(tables, ",") != "orders,users" {
		t.Fatalf("tables: %v", tables)
	}

	cols, err := c.Columns(ctx, desc, "users")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 3 || cols[1].Name != "name" || cols[1].Nullable || !cols[2].Nullable {
		t.Fatalf("columns: %+v", cols)
	}

	if _, err := c.Columns(ctx, desc, "missing"); err == nil {
		t.Fatal("expected error for unknown table")
	}

	sample, err := c.Sample(ctx, desc, "users", 2)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if sample.RowCount != 2 || sample.Table != "users" || sample.Kind() != domain.OpSample {
		t.Fatalf("sample: %+v", sample)
	}
}

func TestPing(t *testing.T) {
	c := NewClient(5*time.Second, testLogger())
	if err := c.Ping(context.Background(), sqliteDesc(seedSQLite(t))); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

// --- DSNs ---

func TestPostgresDSN_ReadOnly(t *testing.T) {
	dsn, err := postgresDSN(domain.ConnectionDescriptor{
		User: "reader", Password: "p'w", Host: "db", Port: 5432, Database: "app",
		Options: map[string]string{"sslmode": "disable", "default_transaction_read_only": "off"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "default_transaction_read_only='on'") {
		t.Fatalf("read-only not forced: %s", dsn)
	}
	if !strings.Contains(dsn, `password='p\'w'`) || !strings.Contains(dsn, "sslmode='disable'") {
		t.Fatalf("dsn: %s", dsn)
	}
}

func TestMySQLDSN_ReadOnly(t *testing.T) {
	dsn, err := mysqlDSN(domain.ConnectionDescriptor{User: "r", Password: "pw", Host: "db", Database: "app"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dsn, "tcp(db:3306)/app") || !strings.Contains(dsn, "transaction_read_only=1") {
		t.Fatalf("dsn: %s", dsn)
	}
}

func TestCanonicalDriver(t *testing.T) {
	for in, want := range map[string]string{"sqlite3": "sqlite", "PostgreSQL": "postgres", "mariadb": "mysql", "oracle": "oracle"} {
		if got := canonicalDriver(in); got != want {
			t.Errorf("canonicalDriver(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Resolver ---

func writeConnections(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connections.toml")
	if err := os.WriteFile(path, []byte(body), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileResolver_Resolve(t *testing.T) {
	t.Setenv("SG_TEST_DB_PASSWORD", "s3cret")
	path := writeConnections(t, `
[connections.analytics]
driver = "postgres"
host = "db.internal"
port = 5432
user = "reader"
password = "${SG_TEST_DB_PASSWORD}"
database = "analytics"

[connections.analytics.options]
sslmode = "require"

[connections.local]
driver = "sqlite"
database = "data/app.db"
`, 0o600)

	r := NewFileResolver(path, testLogger())
	desc, err := r.Resolve("analytics")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if desc.Name != "analytics" || desc.Password != "s3cret" || desc.Port != 5432 || desc.Options["sslmode"] != "require" {
		t.Fatalf("desc: %+v", desc)
	}
	if strings.Contains(desc.String(), "s3cret") {
		t.Fatalf("password leaked by String(): %s", desc.String())
	}

	local, err := r.Resolve("local")
	if err != nil {
		t.Fatalf("Resolve local: %v", err)
	}
	if local.Database != filepath.Join(filepath.Dir(path), "data", "app.db") {
		t.Fatalf("sqlite path not anchored to the connections file: %s", local.Database)
	}

	names, err := r.Names()
	if err != nil || strings.Join(names, ",") != "analytics,local" {
		t.Fatalf("Names: %v %v", names, err)
	}
}

func TestFileResolver_NotFound(t *testing.T) {
	path := writeConnections(t, "[connections.a]\ndriver = \"sqlite\"\ndatabase = \"/tmp/a.db\"\n", 0o600)
	r := NewFileResolver(path, testLogger())
	if _, err := r.Resolve("b"); domain.CodeOf(err) != domain.ReasonConnection {
		t.Fatalf("expected connection_not_found, got %v", err)
	}

	missing := NewFileResolver(filepath.Join(t.TempDir(), "none.toml"), testLogger())
	if _, err := missing.Resolve("a"); domain.CodeOf(err) != domain.ReasonConnection {
		t.Fatalf("missing file: expected connection_not_found, got %v", err)
	}
}

func TestFileResolver_InvalidTOML(t *testing.T) {
	path := writeConnections(t, "[connections.a\n", 0o600)
	r := NewFileResolver(path, testLogger())
	_, err := r.Resolve("a")
	if err == nil || domain.CodeOf(err) != "" {
		t.Fatalf("expected plain parse error, got %v", err)
	}
}
