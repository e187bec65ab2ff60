package domain

import (
	"context"
	"fmt"
	"time"
)

// OperationKind identifies one public gateway operation.
type OperationKind int

const (
	OpExec OperationKind = iota + 1
	OpRead
	OpTree
	OpSearch
	OpGitStatus
	OpGitLog
	OpPorts
	OpEnv
	OpProject
	OpQuery
	OpSchema
	OpSample
	OpCheck
)

var operationNames = map[OperationKind]string{
	OpExec:      "exec",
	OpRead:      "read",
	OpTree:      "tree",
	OpSearch:    "search",
	OpGitStatus: "git_status",
	OpGitLog:    "git_log",
	OpPorts:     "ports",
	OpEnv:       "env",
	OpProject:   "project",
	OpQuery:     "query",
	OpSchema:    "schema",
	OpSample:    "sample",
	OpCheck:     "check",
}

func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(k))
}

// ParseOperationKind maps an operation name back to its kind.
func ParseOperationKind(s string) (OperationKind, error) {
	for k, name := range operationNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation: %s", s)
}

// Request carries the primary argument and optional flags of one operation.
type Request struct {
	Arg        string        // command, path, query, pattern or table
	Path       string        // secondary path argument (search root, git dir)
	Connection string        // named database connection
	Depth      int           // tree depth limit
	Limit      int           // result/row limit
	IgnoreCase bool          // search
	Timeout    time.Duration // overrides the configured timeout when > 0
	CheckKind  string        // check: command|path|query|identifier|secret
}

// Document is a structured report produced by an operation.
type Document interface {
	Kind() OperationKind
}

// Tool is the interface for gateway operations (exec, tree, search, query, ...).
type Tool interface {
	Kind() OperationKind
	Description() string
	Execute(ctx context.Context, req Request) (Document, error)
}
