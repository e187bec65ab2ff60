// Package report turns filesystem, process and database snapshots into
// structured documents and encodes them. Nothing here decides policy.
package report

import (
	"encoding/json"

	"safegate/internal/domain"
)

// NodeKind is the type of a tree node.
type NodeKind string

const (
	NodeFile    NodeKind = "file"
	NodeDir     NodeKind = "dir"
	NodeSymlink NodeKind = "symlink"
	NodeOther   NodeKind = "other"
)

// Node is one entry of a directory tree.
type Node struct {
	Name      string   `json:"name" yaml:"name"`
	Path      string   `json:"path" yaml:"path"` // relative to the tree root
	Kind      NodeKind `json:"kind" yaml:"kind"`
	Size      *int64   `json:"size,omitempty" yaml:"size,omitempty"`
	Target    string   `json:"target,omitempty" yaml:"target,omitempty"` // symlink target, never followed
	Children  []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
	Truncated bool     `json:"truncated,omitempty" yaml:"truncated,omitempty"` // depth limit reached
}

type TreeDocument struct {
	Root      string `json:"root" yaml:"root"`
	Depth     int    `json:"depth" yaml:"depth"`
	Files     int    `json:"files" yaml:"files"`
	Dirs      int    `json:"dirs" yaml:"dirs"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"` // entry limit reached
	Tree      *Node  `json:"tree" yaml:"tree"`
}

func (*TreeDocument) Kind() domain.OperationKind { return domain.OpTree }

type SearchHit struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
	Text string `json:"text" yaml:"text"`
}

type SearchDocument struct {
	Pattern   string      `json:"pattern" yaml:"pattern"`
	Root      string      `json:"root" yaml:"root"`
	Matches   []SearchHit `json:"matches" yaml:"matches"`
	Count     int         `json:"count" yaml:"count"`
	Skipped   int         `json:"skipped,omitempty" yaml:"skipped,omitempty"` // secret or unreadable files
	Truncated bool        `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

func (*SearchDocument) Kind() domain.OperationKind { return domain.OpSearch }

// FileDocument carries either Code+Lang (recognized source file) or Content.
type FileDocument struct {
	Path      string `json:"path" yaml:"path"`
	Size      int64  `json:"size" yaml:"size"`
	Lang      string `json:"lang,omitempty" yaml:"lang,omitempty"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	Content   string `json:"content,omitempty" yaml:"content,omitempty"`
	Binary    bool   `json:"binary,omitempty" yaml:"binary,omitempty"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

func (*FileDocument) Kind() domain.OperationKind { return domain.OpRead }

type GitFileChange struct {
	Path     string `json:"path" yaml:"path"`
	Status   string `json:"status" yaml:"status"`
	OrigPath string `json:"orig_path,omitempty" yaml:"orig_path,omitempty"`
}

type GitStatusDocument struct {
	Path       string          `json:"path" yaml:"path"`
	Branch     string          `json:"branch" yaml:"branch"`
	Upstream   string          `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Ahead      int             `json:"ahead" yaml:"ahead"`
	Behind     int             `json:"behind" yaml:"behind"`
	Staged     []GitFileChange `json:"staged" yaml:"staged"`
	Unstaged   []GitFileChange `json:"unstaged" yaml:"unstaged"`
	Untracked  []string        `json:"untracked" yaml:"untracked"`
	Conflicted []string        `json:"conflicted,omitempty" yaml:"conflicted,omitempty"`
	Clean      bool            `json:"clean" yaml:"clean"`
}

func (*GitStatusDocument) Kind() domain.OperationKind { return domain.OpGitStatus }

type GitCommit struct {
	Hash    string `json:"hash" yaml:"hash"`
	Author  string `json:"author" yaml:"author"`
	Date    string `json:"date" yaml:"date"`
	Subject string `json:"subject" yaml:"subject"`
}

type GitLogDocument struct {
	Path    string      `json:"path" yaml:"path"`
	Commits []GitCommit `json:"commits" yaml:"commits"`
}

func (*GitLogDocument) Kind() domain.OperationKind { return domain.OpGitLog }

type Listener struct {
	Proto   string `json:"proto" yaml:"proto"`
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
	PID     int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Process string `json:"process,omitempty" yaml:"process,omitempty"`
	Inode   uint64 `json:"-" yaml:"-"`
}

type PortsDocument struct {
	Source    string     `json:"source" yaml:"source"` // "procfs" | "lsof"
	Listeners []Listener `json:"listeners" yaml:"listeners"`
}

func (*PortsDocument) Kind() domain.OperationKind { return domain.OpPorts }

// SystemInfo is the host section of an environment snapshot.
type SystemInfo struct {
	Hostname  string `json:"hostname" yaml:"hostname"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	OSVersion string `json:"os_version,omitempty" yaml:"os_version,omitempty"`
	CPUModel  string `json:"cpu_model,omitempty" yaml:"cpu_model,omitempty"`
	CPUs      int    `json:"cpus" yaml:"cpus"`
	WorkDir   string `json:"work_dir" yaml:"work_dir"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
}

type EnvDocument struct {
	Variables map[string]string `json:"variables" yaml:"variables"`
	Omitted   int               `json:"omitted" yaml:"omitted"` // count only; names are never reported
	System    SystemInfo        `json:"system" yaml:"system"`
}

func (*EnvDocument) Kind() domain.OperationKind { return domain.OpEnv }

type ProjectDocument struct {
	Path         string              `json:"path" yaml:"path"`
	Name         string              `json:"name,omitempty" yaml:"name,omitempty"`
	Kinds        []string            `json:"kinds" yaml:"kinds"`
	Manifests    []string            `json:"manifests" yaml:"manifests"`
	Dependencies map[string][]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

func (*ProjectDocument) Kind() domain.OperationKind { return domain.OpProject }

type ExecDocument struct {
	Command    string `json:"command" yaml:"command"`
	ExitStatus int    `json:"exit_status" yaml:"exit_status"`
	Stdout     string `json:"stdout" yaml:"stdout"`
	Stderr     string `json:"stderr" yaml:"stderr"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

func (*ExecDocument) Kind() domain.OperationKind { return domain.OpExec }

// NewExecDocument wraps an execution result.
func NewExecDocument(command string, res *domain.ExecutionResult) *ExecDocument {
	return &ExecDocument{
		Command:    command,
		ExitStatus: res.ExitStatus,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		DurationMS: res.Duration.Milliseconds(),
		Truncated:  res.Truncated,
	}
}

// QueryDocument is a read-only result set. Sample lookups reuse it.
type QueryDocument struct {
	Connection string               `json:"connection" yaml:"connection"`
	Driver     string               `json:"driver" yaml:"driver"`
	Table      string               `json:"table,omitempty" yaml:"table,omitempty"`
	Columns    []string             `json:"columns" yaml:"columns"`
	Rows       [][]any              `json:"rows" yaml:"rows"`
	RowCount   int                  `json:"row_count" yaml:"row_count"`
	Truncated  bool                 `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Op         domain.OperationKind `json:"-" yaml:"-"`
}

func (d *QueryDocument) Kind() domain.OperationKind {
	if d.Op == 0 {
		return domain.OpQuery
	}
	return d.Op
}

type Column struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

type SchemaDocument struct {
	Connection string   `json:"connection" yaml:"connection"`
	Driver     string   `json:"driver" yaml:"driver"`
	Table      string   `json:"table,omitempty" yaml:"table,omitempty"`
	Tables     []string `json:"tables,omitempty" yaml:"tables,omitempty"`
	Columns    []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

func (*SchemaDocument) Kind() domain.OperationKind { return domain.OpSchema }

// CheckDocument reports a validator verdict without performing the operation.
type CheckDocument struct {
	Check   string            `json:"check" yaml:"check"`
	Input   string            `json:"input" yaml:"input"`
	Allowed bool              `json:"allowed" yaml:"allowed"`
	Reason  domain.ReasonCode `json:"reason,omitempty" yaml:"reason,omitempty"`
	Value   string            `json:"value,omitempty" yaml:"value,omitempty"`
	Rule    string            `json:"rule,omitempty" yaml:"rule,omitempty"`
}

func (*CheckDocument) Kind() domain.OperationKind { return domain.OpCheck }

type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ValuesDocument is a flat listing printed by the administrative commands
// (policy, config, doctor, version). Structured encodings emit Data when set
// and Entries otherwise.
type ValuesDocument struct {
	Entries []KeyValue
	Data    any
}

// Kind is zero: a listing is not a gateway operation.
func (*ValuesDocument) Kind() domain.OperationKind { return 0 }

func (d *ValuesDocument) payload() any {
	if d.Data != nil {
		return d.Data
	}
	if d.Entries == nil {
		return []KeyValue{}
	}
	return d.Entries
}

func (d *ValuesDocument) MarshalJSON() ([]byte, error) { return json.Marshal(d.payload()) }

func (d *ValuesDocument) MarshalYAML() (any, error) { return d.payload(), nil }
