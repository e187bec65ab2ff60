package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"safegate/internal/config"
	"safegate/internal/domain"
)

// Resolver maps a connection name to its descriptor.
type Resolver interface {
	Resolve(name string) (domain.ConnectionDescriptor, error)
}

// connectionsFile is the on-disk layout:
//
//	[connections.analytics]
//	driver   = "postgres"
//	host     = "db.internal"
//	user     = "reader"
//	password = "${ANALYTICS_DB_PASSWORD}"
//	database = "analytics"
type connectionsFile struct {
	Connections map[string]domain.ConnectionDescriptor `toml:"connections"`
}

// FileResolver reads named connections from a TOML file on every call.
type FileResolver struct {
	path   string
	logger *slog.Logger
}

func NewFileResolver(path string, logger *slog.Logger) *FileResolver {
	return &FileResolver{path: config.ExpandPath(path), logger: logger}
}

// Path returns the connections file location.
func (r *FileResolver) Path() string { return r.path }

func (r *FileResolver) load() (map[string]domain.ConnectionDescriptor, error) {
	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat connections file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		r.logger.Warn("connections file is readable by other users",
			"path", r.path, "mode", fmt.Sprintf("%04o", info.Mode().Perm()))
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read connections file: %w", err)
	}
	var f connectionsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse connections file %s: %w", r.path, err)
	}
	return f.Connections, nil
}

// Resolve returns the named connection with ${VAR} references expanded.
func (r *FileResolver) Resolve(name string) (domain.ConnectionDescriptor, error) {
	conns, err := r.load()
	if err != nil {
		return domain.ConnectionDescriptor{}, err
	}
	desc, ok := conns[name]
	if !ok {
		return domain.ConnectionDescriptor{}, domain.NewGateError(domain.ReasonConnection,
			"no connection named %q in %s", name, r.path)
	}
	desc.Name = name
	desc.Driver = config.ExpandEnvVars(desc.Driver)
	desc.User = config.ExpandEnvVars(desc.User)
	desc.Password = config.ExpandEnvVars(desc.Password)
	desc.Host = config.ExpandEnvVars(desc.Host)
	desc.Database = config.ExpandEnvVars(desc.Database)
	for k, v := range desc.Options {
		desc.Options[k] = config.ExpandEnvVars(v)
	}

	// sqlite paths are relative to the connections file
	if canonicalDriver(desc.Driver) == driverSQLite && desc.Database != "" {
		desc.Database = config.ExpandPath(desc.Database)
		if !filepath.IsAbs(desc.Database) {
			desc.Database = filepath.Join(filepath.Dir(r.path), desc.Database)
		}
	}
	r.logger.Debug("connection resolved", "connection", desc)
	return desc, nil
}

// Names lists the configured connection names, sorted.
func (r *FileResolver) Names() ([]string, error) {
	conns, err := r.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(conns))
	for n := range conns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
