package tool

import (
	"context"
	"path/filepath"
	"testing"

	"safegate/internal/domain"
	"safegate/internal/report"
)

func TestSearchTool_FindsMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.go"), "package a\n// TODO fix\n")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "nothing\nTODO later\n")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "TODO in git\n")
	writeFile(t, filepath.Join(dir, "bin.dat"), "TODO\x00binary")

	tool := NewSearchTool(testEngine(t, dir), 0, testLogger())
	doc, err := tool.Execute(context.Background(), domain.Request{Arg: "TODO", Path: "."})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := doc.(*report.SearchDocument)
	if s.Count != 2 {
		t.Fatalf("expected 2 matches, got %+v", s.Matches)
	}
	files := map[string]int{}
	for _, m := range s.Matches {
		files[m.File] = m.Line
	}
	if files["a.go"] != 2 || files["sub/b.txt"] != 2 {
		t.Errorf("unexpected hits: %v", files)
	}
}

func TestSearchTool_SkipsSecretsAndForbidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "PASSWORD=hunter2\n")
	writeFile(t, filepath.Join(dir, "vault", "notes.txt"), "PASSWORD here\n")
	writeFile(t, filepath.Join(dir, "readme.md"), "set PASSWORD in your env\n")

	tool := NewSearchTool(engineForbidding(t, dir, filepath.Join(dir, "vault")), 0, testLogger())
	doc, err := tool.Execute(context.Background(), domain.Request{Arg: "PASSWORD"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := doc.(*report.SearchDocument)
	if s.Count != 1 || s.Matches[0].File != "readme.md" {
		t.Fatalf("expected only readme.md, got %+v", s.Matches)
	}
	if s.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1 (.env)", s.Skipped)
	}
}

func TestSearchTool_LimitAndIgnoreCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "log.txt"), "Error one\nerror two\nERROR three\n")

	tool := NewSearchTool(testEngine(t, dir), 0, testLogger())
	doc, err := tool.Execute(context.Background(), domain.Request{Arg: "error", IgnoreCase: true, Limit: 2})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := doc.(*report.SearchDocument)
	if s.Count != 2 || !s.Truncated {
		t.Errorf("count=%d truncated=%v", s.Count, s.Truncated)
	}
}

func TestSearchTool_BadInput(t *testing.T) {
	dir := t.TempDir()
	tool := NewSearchTool(testEngine(t, dir), 0, testLogger())
	if _, err := tool.Execute(context.Background(), domain.Request{}); err == nil {
		t.Error("expected error for empty pattern")
	}
	if _, err := tool.Execute(context.Background(), domain.Request{Arg: "("}); err == nil {
		t.Error("expected error for invalid regexp")
	}
	_, err := tool.Execute(context.Background(), domain.Request{Arg: "x", Path: "../../.."})
	if code := domain.CodeOf(err); code != domain.ReasonPathTraversal {
		t.Errorf("expected %s, got %v", domain.ReasonPathTraversal, err)
	}
}
