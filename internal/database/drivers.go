package database

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"safegate/internal/domain"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverMySQL    = "mysql"
)

// dialect is what the client needs to know about one backend.
type dialect struct {
	sqlName    string // name registered with database/sql
	dsn        func(d domain.ConnectionDescriptor) (string, error)
	quote      func(ident string) string
	tablesSQL  string
	columnsSQL string // one placeholder for the table name; empty means PRAGMA table_info
}

var dialects = map[string]dialect{
	driverSQLite: {
		sqlName: "sqlite",
		dsn:     sqliteDSN,
		quote:   doubleQuote,
		tablesSQL: `SELECT name FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	},
	driverPostgres: {
		sqlName: "postgres",
		dsn:     postgresDSN,
		quote:   doubleQuote,
		tablesSQL: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() ORDER BY table_name`,
		columnsSQL: `SELECT column_name, data_type, is_nullable FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`,
	},
	driverMySQL: {
		sqlName: "mysql",
		dsn:     mysqlDSN,
		quote:   backQuote,
		tablesSQL: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() ORDER BY table_name`,
		columnsSQL: `SELECT column_name, data_type, is_nullable FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`,
	},
}

// canonicalDriver folds common aliases onto the three supported drivers.
func canonicalDriver(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return driverSQLite
	case "postgres", "postgresql", "pg":
		return driverPostgres
	case "mysql", "mariadb":
		return driverMySQL
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// SupportedDrivers lists the canonical driver names.
func SupportedDrivers() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// sqliteDSN opens the file read-only; a missing file is an error rather
// than a new empty database.
func sqliteDSN(d domain.ConnectionDescriptor) (string, error) {
	if d.Database == "" {
		return "", fmt.Errorf("sqlite connection needs a database path")
	}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + d.Database + "?" + q.Encode(), nil
}

// postgresDSN builds a key/value DSN. Unknown keys are sent by lib/pq as
// run-time parameters, which is how the session is forced read-only.
func postgresDSN(d domain.ConnectionDescriptor) (string, error) {
	kv := map[string]string{
		"host":                          d.Host,
		"user":                          d.User,
		"password":                      d.Password,
		"dbname":                        d.Database,
		"default_transaction_read_only": "on",
	}
	if d.Port != 0 {
		kv["port"] = strconv.Itoa(d.Port)
	}
	for k, v := range d.Options {
		if k == "default_transaction_read_only" {
			continue
		}
		kv[k] = v
	}
	keys := make([]string, 0, len(kv))
	for k, v := range kv {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + pqQuote(kv[k])
	}
	return strings.Join(parts, " "), nil
}

func pqQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func mysqlDSN(d domain.ConnectionDescriptor) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.DBName = d.Database
	if d.Host != "" {
		port := d.Port
		if port == 0 {
			port = 3306
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(port))
	}
	cfg.Params = map[string]string{}
	for k, v := range d.Options {
		cfg.Params[k] = v
	}
	cfg.Params["transaction_read_only"] = "1"
	return cfg.FormatDSN(), nil
}

func doubleQuote(ident string) string { return `"` + ident + `"` }

func backQuote(ident string) string { return "`" + ident + "`" }
