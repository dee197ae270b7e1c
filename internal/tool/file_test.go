package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"minibot/internal/domain"
)

func TestFileToolsRoundTrip(t *testing.T) {
	ws := t.TempDir()
	cfg := FileConfig{Workspace: ws, Restrict: true}
	ctx := context.Background()
	tc := domain.ToolContext{}

	write := NewWriteFileTool(cfg)
	if _, err := write.Execute(ctx, tc, map[string]any{
		"path": "notes/todo.txt", "content": "buy milk",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	read := NewReadFileTool(cfg)
	got, err := read.Execute(ctx, tc, map[string]any{"path": "notes/todo.txt"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "buy milk" {
		t.Fatalf("content = %q", got)
	}

	list := NewListDirTool(cfg)
	out, err := list.Execute(ctx, tc, map[string]any{"path": "notes"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "todo.txt") {
		t.Fatalf("listing = %q", out)
	}
}

func TestEditFileTool(t *testing.T) {
	ws := t.TempDir()
	cfg := FileConfig{Workspace: ws, Restrict: true}
	ctx := context.Background()
	tc := domain.ToolContext{}

	path := filepath.Join(ws, "config.txt")
	if err := os.WriteFile(path, []byte("port = 8080\nhost = localhost\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	edit := NewEditFileTool(cfg)
	if _, err := edit.Execute(ctx, tc, map[string]any{
		"path": "config.txt", "old_text": "port = 8080", "new_text": "port = 9090",
	}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "port = 9090") {
		t.Fatalf("edit not applied: %q", data)
	}

	if _, err := edit.Execute(ctx, tc, map[string]any{
		"path": "config.txt", "old_text": "missing", "new_text": "x",
	}); err == nil {
		t.Fatal("expected error for absent old_text")
	}

	if err := os.WriteFile(path, []byte("dup\ndup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := edit.Execute(ctx, tc, map[string]any{
		"path": "config.txt", "old_text": "dup", "new_text": "x",
	}); err == nil {
		t.Fatal("expected error for ambiguous old_text")
	}
}

func TestResolvePathRestriction(t *testing.T) {
	ws := t.TempDir()
	restricted := FileConfig{Workspace: ws, Restrict: true}
	open := FileConfig{Workspace: ws, Restrict: false}

	if _, err := restricted.resolvePath("../escape.txt"); err == nil {
		t.Fatal("restricted config must reject traversal")
	}
	if _, err := restricted.resolvePath("/etc/passwd"); err == nil {
		t.Fatal("restricted config must reject absolute paths outside workspace")
	}
	if _, err := restricted.resolvePath("inside.txt"); err != nil {
		t.Fatalf("relative path inside workspace rejected: %v", err)
	}
	if _, err := open.resolvePath("/etc/passwd"); err != nil {
		t.Fatalf("unrestricted config rejected absolute path: %v", err)
	}
}
