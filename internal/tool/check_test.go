package tool

import (
	"context"
	"testing"

	"safegate/internal/domain"
	"safegate/internal/report"
)

func TestCheckTool(t *testing.T) {
	dir := t.TempDir()
	tool := NewCheckTool(testEngine(t, dir), testLogger())

	tests := []struct {
		kind, input string
		allowed     bool
		reason      domain.ReasonCode
	}{
		{"command", "ls -la /tmp", true, ""},
		{"command", "rm -rf /", false, domain.ReasonDangerousCommand},
		{"path", ".", true, ""},
		{"path", "../../../etc/passwd", false, domain.ReasonPathTraversal},
		{"path", "/root/.ssh", false, domain.ReasonForbiddenPath},
		{"readable", ".env.local", false, domain.ReasonSecretFile},
		{"query", "SELECT * FROM t", true, ""},
		{"query", "delete from t", false, domain.ReasonWriteOperation},
		{"identifier", "users_2024", true, ""},
		{"identifier", "users; DROP TABLE users", false, domain.ReasonInvalidTableName},
		{"secret", "id_rsa", false, domain.ReasonSecretFile},
		{"secret", "README.md", true, ""},
	}
	for _, tt := range tests {
		doc, err := tool.Execute(context.Background(), domain.Request{CheckKind: tt.kind, Arg: tt.input})
		if err != nil {
			t.Fatalf("%s %q: %v", tt.kind, tt.input, err)
		}
		c := doc.(*report.CheckDocument)
		if c.Allowed != tt.allowed || c.Reason != tt.reason {
			t.Errorf("%s %q: allowed=%v reason=%q, want %v %q", tt.kind, tt.input, c.Allowed, c.Reason, tt.allowed, tt.reason)
		}
		if c.Check != tt.kind || c.Input != tt.input {
			t.Errorf("document does not echo the request: %+v", c)
		}
	}
}

func TestCheckTool_PathValueIsCanonical(t *testing.T) {
	dir := t.TempDir()
	e := testEngine(t, dir)
	doc, err := NewCheckTool(e, testLogger()).Execute(context.Background(), domain.Request{CheckKind: "path", Arg: "."})
	if err != nil {
		t.Fatal(err)
	}
	if v := doc.(*report.CheckDocument).Value; v != e.ValidatePath(dir).Value {
		t.Errorf("value: got %q", v)
	}
}

func TestCheckTool_UnknownKind(t *testing.T) {
	tool := NewCheckTool(testEngine(t, t.TempDir()), testLogger())
	if _, err := tool.Execute(context.Background(), domain.Request{CheckKind: "bogus", Arg: "x"}); err == nil {
		t.Fatal("expected error for unknown check kind")
	}
}
