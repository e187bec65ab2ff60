package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// ExecutionResult is what the execution engine captured from a child process.
type ExecutionResult struct {
	ExitStatus int           `json:"exit_status" yaml:"exit_status"`
	Stdout     string        `json:"stdout" yaml:"stdout"`
	Stderr     string        `json:"stderr" yaml:"stderr"`
	Duration   time.Duration `json:"-" yaml:"-"`
	Truncated  bool          `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// ConnectionDescriptor describes a named database connection. The password is
// never printed: String, LogValue and MarshalJSON mask it.
type ConnectionDescriptor struct {
	Name     string            `json:"name" toml:"-"`
	Driver   string            `json:"driver" toml:"driver"`
	User     string            `json:"user,omitempty" toml:"user"`
	Password string            `json:"-" toml:"password"`
	Host     string            `json:"host,omitempty" toml:"host"`
	Port     int               `json:"port,omitempty" toml:"port"`
	Database string            `json:"database" toml:"database"`
	Options  map[string]string `json:"options,omitempty" toml:"options"`
}

const maskedPassword = "****"

func (c ConnectionDescriptor) masked() string {
	if c.Password == "" {
		return ""
	}
	return maskedPassword
}

func (c ConnectionDescriptor) String() string {
	host := c.Host
	if c.Port != 0 {
		host += ":" + strconv.Itoa(c.Port)
	}
	return fmt.Sprintf("%s://%s:%s@%s/%s", c.Driver, c.User, c.masked(), host, c.Database)
}

// LogValue implements slog.LogValuer.
func (c ConnectionDescriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", c.Name),
		slog.String("driver", c.Driver),
		slog.String("user", c.User),
		slog.String("password", c.masked()),
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("database", c.Database),
	)
}

func (c ConnectionDescriptor) MarshalJSON() ([]byte, error) {
	type plain ConnectionDescriptor
	return json.Marshal(struct {
		plain
		Password string `json:"password,omitempty"`
	}{plain: plain(c), Password: c.masked()})
}
