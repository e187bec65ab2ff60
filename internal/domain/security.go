package domain

import (
	"errors"
	"fmt"
)

// ReasonCode is the stable machine-readable reason attached to a blocked or
// failed request. Values never change between releases.
type ReasonCode string

const (
	ReasonDangerousCommand ReasonCode = "dangerous_command_blocked"
	ReasonPathTraversal    ReasonCode = "path_traversal_blocked"
	ReasonForbiddenPath    ReasonCode = "forbidden_path"
	ReasonSecretFile       ReasonCode = "secret_file_blocked"
	ReasonWriteOperation   ReasonCode = "write_operation_blocked"
	ReasonInvalidTableName ReasonCode = "invalid_table_name"
	ReasonDependency       ReasonCode = "dependency_missing"
	ReasonTimeout          ReasonCode = "execution_timeout"
	ReasonConnection       ReasonCode = "connection_not_found"
)

// ReasonCodes lists every reason code in a fixed order.
func ReasonCodes() []ReasonCode {
	return []ReasonCode{
		ReasonDangerousCommand,
		ReasonPathTraversal,
		ReasonForbiddenPath,
		ReasonSecretFile,
		ReasonWriteOperation,
		ReasonInvalidTableName,
		ReasonDependency,
		ReasonTimeout,
		ReasonConnection,
	}
}

// IsPolicyBlock reports whether the code comes from a validator rejecting input,
// as opposed to a runtime failure (missing tool, timeout, unknown connection).
func (c ReasonCode) IsPolicyBlock() bool {
	switch c {
	case ReasonDangerousCommand, ReasonPathTraversal, ReasonForbiddenPath,
		ReasonSecretFile, ReasonWriteOperation, ReasonInvalidTableName:
		return true
	}
	return false
}

// ValidationOutcome is the result of a single validator call.
type ValidationOutcome struct {
	Allowed bool       `json:"allowed" yaml:"allowed"`
	Reason  ReasonCode `json:"reason,omitempty" yaml:"reason,omitempty"`
	Value   string     `json:"value,omitempty" yaml:"value,omitempty"` // normalized input, e.g. canonical path
	Rule    string     `json:"rule,omitempty" yaml:"rule,omitempty"`   // pattern that matched when blocked
}

// Allow returns an allowing outcome carrying the normalized value.
func Allow(value string) ValidationOutcome {
	return ValidationOutcome{Allowed: true, Value: value}
}

// Block returns a blocking outcome.
func Block(reason ReasonCode, rule string) ValidationOutcome {
	return ValidationOutcome{Allowed: false, Reason: reason, Rule: rule}
}

// Err converts a blocked outcome into a *GateError. It returns nil when allowed.
func (o ValidationOutcome) Err(input string) error {
	if o.Allowed {
		return nil
	}
	msg := "blocked by policy"
	if o.Rule != "" {
		msg = "blocked by policy rule " + o.Rule
	}
	return &GateError{Code: o.Reason, Message: msg, Input: input}
}

// GateError is returned by operations that were blocked or could not run.
type GateError struct {
	Code    ReasonCode `json:"error" yaml:"error"`
	Message string     `json:"message" yaml:"message"`
	Input   string     `json:"input,omitempty" yaml:"input,omitempty"`
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewGateError creates a GateError with a formatted message.
func NewGateError(code ReasonCode, format string, args ...any) *GateError {
	return &GateError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the reason code from err, looking through wrapping.
// It returns "" when err carries no reason code.
func CodeOf(err error) ReasonCode {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
