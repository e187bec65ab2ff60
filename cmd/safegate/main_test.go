package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"safegate/internal/domain"
)

// invoke runs the CLI with an isolated HOME and working directory.
func invoke(t *testing.T, home, workDir string, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("HOME", home)
	full := append([]string{"--workdir", workDir, "-o", "json"}, args...)
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func sandbox(t *testing.T) (home, work string) {
	t.Helper()
	home = t.TempDir()
	work = t.TempDir()
	return home, work
}

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func decodeError(t *testing.T, stderr string) map[string]string {
	t.Helper()
	// the error body is the last line; log lines may precede it
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	var body map[string]string
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &body); err != nil {
		t.Fatalf("stderr is not a JSON error: %q", stderr)
	}
	return body
}

func TestExec_Success(t *testing.T) {
	requireSh(t)
	home, work := sandbox(t)
	code, stdout, _ := invoke(t, home, work, "exec", "echo hello")
	if code != 0 {
		t.Fatalf("exit code: got %d", code)
	}
	var doc struct {
		ExitStatus int    `json:"exit_status"`
		Stdout     string `json:"stdout"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if doc.ExitStatus != 0 || strings.TrimSpace(doc.Stdout) != "hello" {
		t.Errorf("document: %+v", doc)
	}
}

func TestExec_Blocked(t *testing.T) {
	home, work := sandbox(t)
	code, stdout, stderr := invoke(t, home, work, "exec", "rm", "-rf", "/")
	if code != 2 {
		t.Fatalf("exit code: got %d, want 2", code)
	}
	if stdout != "" {
		t.Errorf("stdout must be empty on failure, got %q", stdout)
	}
	if body := decodeError(t, stderr); body["error"] != string(domain.ReasonDangerousCommand) {
		t.Errorf("error body: %v", body)
	}
}

func TestExec_ChildStatusPassedThrough(t *testing.T) {
	requireSh(t)
	home, work := sandbox(t)
	code, stdout, _ := invoke(t, home, work, "exec", "exit 7")
	if code != 7 {
		t.Fatalf("exit code: got %d, want 7", code)
	}
	if !strings.Contains(stdout, `"exit_status": 7`) {
		t.Errorf("stdout: %s", stdout)
	}
}

func TestExec_Timeout(t *testing.T) {
	requireSh(t)
	home, work := sandbox(t)
	code, stdout, stderr := invoke(t, home, work, "--timeout", "200ms", "exec", "sleep 5")
	if code != 124 {
		t.Fatalf("exit code: got %d, want 124", code)
	}
	if stdout != "" {
		t.Errorf("stdout must be empty on timeout, got %q", stdout)
	}
	if body := decodeError(t, stderr); body["error"] != string(domain.ReasonTimeout) {
		t.Errorf("error body: %v", body)
	}
}

func TestRead_SecretFile(t *testing.T) {
	home, work := sandbox(t)
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte("TOKEN=x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := invoke(t, home, work, "read", ".env")
	if code != 2 || stdout != "" {
		t.Fatalf("code=%d stdout=%q", code, stdout)
	}
	if body := decodeError(t, stderr); body["error"] != string(domain.ReasonSecretFile) {
		t.Errorf("error body: %v", body)
	}
}

func TestQuery_UnknownConnection(t *testing.T) {
	home, work := sandbox(t)
	code, _, stderr := invoke(t, home, work, "query", "--conn", "missing", "SELECT 1")
	if code != 1 {
		t.Fatalf("exit code: got %d, want 1", code)
	}
	if body := decodeError(t, stderr); body["error"] != string(domain.ReasonConnection) {
		t.Errorf("error body: %v", body)
	}
}

func TestQuery_WriteBlocked(t *testing.T) {
	home, work := sandbox(t)
	code, _, stderr := invoke(t, home, work, "query", "--conn", "x", "DELETE FROM users")
	if code != 2 {
		t.Fatalf("exit code: got %d, want 2", code)
	}
	if body := decodeError(t, stderr); body["error"] != string(domain.ReasonWriteOperation) {
		t.Errorf("error body: %v", body)
	}
}

func TestCheck_ReportsWithoutFailing(t *testing.T) {
	home, work := sandbox(t)
	code, stdout, _ := invoke(t, home, work, "check", "command", "rm -rf /")
	if code != 0 {
		t.Fatalf("exit code: got %d", code)
	}
	var doc struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Allowed || doc.Reason != string(domain.ReasonDangerousCommand) {
		t.Errorf("document: %+v", doc)
	}
}

func TestTextErrorFormat(t *testing.T) {
	home, work := sandbox(t)
	t.Setenv("HOME", home)
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), []string{"--workdir", work, "-o", "text", "exec", "mkfs.ext4 /dev/sda1"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code: got %d", code)
	}
	if !strings.HasPrefix(stderr.String(), "dangerous_command_blocked: ") {
		t.Errorf("stderr: %q", stderr.String())
	}
}

func TestConfigSetGet(t *testing.T) {
	home, work := sandbox(t)
	cfgPath := filepath.Join(home, "cfg", "config.json")

	code, _, stderr := invoke(t, home, work, "--config", cfgPath, "config", "set", "exec.timeoutSeconds", "45")
	if code != 0 {
		t.Fatalf("set: exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	code, stdout, _ := invoke(t, home, work, "--config", cfgPath, "config", "get", "exec.timeoutSeconds")
	if code != 0 || !strings.Contains(stdout, "45") {
		t.Fatalf("get: code=%d stdout=%s", code, stdout)
	}

	code, _, _ = invoke(t, home, work, "--config", cfgPath, "config", "set", "exec.timeoutSeconds", "0")
	if code != 1 {
		t.Errorf("invalid value should fail validation, got exit %d", code)
	}
}

func TestPolicyShow(t *testing.T) {
	home, work := sandbox(t)
	code, stdout, _ := invoke(t, home, work, "policy", "show", "--kind", "sql-keyword")
	if code != 0 {
		t.Fatalf("exit code: got %d", code)
	}
	var doc struct {
		Version string `json:"version"`
		Rules   []struct {
			Kind    string `json:"kind"`
			Pattern string `json:"pattern"`
		} `json:"rules"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Version == "" || len(doc.Rules) == 0 {
		t.Fatalf("document: %+v", doc)
	}
	for _, r := range doc.Rules {
		if r.Kind != "sql-keyword" {
			t.Errorf("unexpected kind %q", r.Kind)
		}
	}
}

func TestInvalidPolicyFile(t *testing.T) {
	home, work := sandbox(t)
	bad := filepath.Join(work, "policy.yaml")
	if err := os.WriteFile(bad, []byte("commandRegex:\n  - pattern: '('\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := invoke(t, home, work, "--policy", bad, "tree")
	if code != 1 || stdout != "" {
		t.Fatalf("code=%d stdout=%q", code, stdout)
	}
}

func TestVersion(t *testing.T) {
	home, work := sandbox(t)
	code, stdout, _ := invoke(t, home, work, "version")
	if code != 0 || !strings.Contains(stdout, version) {
		t.Fatalf("code=%d stdout=%s", code, stdout)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewGateError(domain.ReasonPathTraversal, "x"), 2},
		{domain.NewGateError(domain.ReasonInvalidTableName, "x"), 2},
		{fmt.Errorf("wrapped: %w", domain.NewGateError(domain.ReasonForbiddenPath, "x")), 2},
		{domain.NewGateError(domain.ReasonTimeout, "x"), 124},
		{domain.NewGateError(domain.ReasonDependency, "x"), 127},
		{domain.NewGateError(domain.ReasonConnection, "x"), 1},
		{errors.New("plain"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
