package tool

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"safegate/internal/domain"
	"safegate/internal/report"
)

func TestProjectTool_GoAndNode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module example.com/app\n\ngo 1.22\n\nrequire github.com/spf13/cobra v1.8.0\n")
	writeFile(t, filepath.Join(dir, "package.json"), `{"name":"web","dependencies":{"react":"^18.0.0"}}`)
	writeFile(t, filepath.Join(dir, "Makefile"), "all:\n")

	tool := NewProjectTool(testEngine(t, dir), testLogger())
	doc, err := tool.Execute(context.Background(), domain.Request{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	p := doc.(*report.ProjectDocument)
	for _, k := range []string{"go", "node", "make"} {
		if !slices.Contains(p.Kinds, k) {
			t.Errorf("missing kind %q in %v", k, p.Kinds)
		}
	}
	if p.Name != "example.com/app" {
		t.Errorf("name: got %q", p.Name)
	}
	if !slices.Contains(p.Dependencies["go.mod"], "github.com/spf13/cobra") {
		t.Errorf("go deps: %v", p.Dependencies["go.mod"])
	}
	if !slices.Contains(p.Dependencies["package.json"], "react") {
		t.Errorf("node deps: %v", p.Dependencies["package.json"])
	}
}

func TestProjectTool_EmptyDir(t *testing.T) {
	dir := t.TempDir()
	tool := NewProjectTool(testEngine(t, dir), testLogger())
	doc, err := tool.Execute(context.Background(), domain.Request{Arg: dir})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	p := doc.(*report.ProjectDocument)
	if len(p.Kinds) != 0 || len(p.Manifests) != 0 {
		t.Errorf("expected nothing detected, got %+v", p)
	}
}

func TestProjectTool_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), "module x\n")
	tool := NewProjectTool(testEngine(t, dir), testLogger())
	if _, err := tool.Execute(context.Background(), domain.Request{Arg: "go.mod"}); err == nil {
		t.Fatal("expected error for a file argument")
	}
}
