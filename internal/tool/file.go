package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"minibot/internal/domain"
)

// FileConfig is shared by the filesystem tools.
type FileConfig struct {
	Workspace string
	Restrict  bool // confine paths to the workspace
}

// resolvePath resolves a path relative to the workspace and, when
// restricted, rejects anything that escapes it.
func (c FileConfig) resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if !filepath.IsAbs(path) && c.Workspace != "" {
		path = filepath.Join(c.Workspace, path)
	}
	resolved, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if c.Restrict && c.Workspace != "" {
		wsAbs, err := filepath.Abs(c.Workspace)
		if err != nil {
			return "", fmt.Errorf("resolve workspace: %w", err)
		}
		if !strings.HasPrefix(resolved, wsAbs+string(filepath.Separator)) && resolved != wsAbs {
			return "", fmt.Errorf("path %q is outside workspace %q", resolved, wsAbs)
		}
	}
	return resolved, nil
}

// --- ReadFileTool ---

type ReadFileTool struct {
	cfg FileConfig
}

func NewReadFileTool(cfg FileConfig) *ReadFileTool { return &ReadFileTool{cfg: cfg} }

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Provide the file path relative to workspace or absolute."
}
func (t *ReadFileTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"path": {Type: "string", Description: "File path to read (relative to workspace or absolute)"},
		},
		[]string{"path"},
	)
}

func (t *ReadFileTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	path := ArgString(args, "path")
	if path == "" {
		return "", fmt.Errorf("missing argument: path")
	}
	resolved, err := t.cfg.resolvePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// --- WriteFileTool ---

type WriteFileTool struct {
	cfg FileConfig
}

func NewWriteFileTool(cfg FileConfig) *WriteFileTool { return &WriteFileTool{cfg: cfg} }

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates the file if it does not exist; overwrites if it exists."
}
func (t *WriteFileTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"path":    {Type: "string", Description: "File path to write (relative to workspace or absolute)"},
			"content": {Type: "string", Description: "Content to write to the file"},
		},
		[]string{"path", "content"},
	)
}

func (t *WriteFileTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	path := ArgString(args, "path")
	content := ArgString(args, "content")
	if path == "" {
		return "", fmt.Errorf("missing argument: path")
	}
	resolved, err := t.cfg.resolvePath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), resolved), nil
}

// --- EditFileTool ---

// EditFileTool replaces an exact text fragment inside a file.
type EditFileTool struct {
	cfg FileConfig
}

func NewEditFileTool(cfg FileConfig) *EditFileTool { return &EditFileTool{cfg: cfg} }

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Edit a file by replacing an exact text match. The old text must appear exactly once in the file."
}
func (t *EditFileTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"path":     {Type: "string", Description: "File path to edit (relative to workspace or absolute)"},
			"old_text": {Type: "string", Description: "Exact text to replace (must appear exactly once)"},
			"new_text": {Type: "string", Description: "Replacement text"},
		},
		[]string{"path", "old_text", "new_text"},
	)
}

func (t *EditFileTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	path := ArgString(args, "path")
	oldText := ArgString(args, "old_text")
	newText := ArgString(args, "new_text")
	if path == "" || oldText == "" {
		return "", fmt.Errorf("missing argument: path and old_text are required")
	}
	resolved, err := t.cfg.resolvePath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	switch count := strings.Count(content, oldText); count {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", resolved)
	case 1:
	default:
		return "", fmt.Errorf("old_text appears %d times in %s, must be unique", count, resolved)
	}
	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("Edited %s", resolved), nil
}

// --- ListDirTool ---

type ListDirTool struct {
	cfg FileConfig
}

func NewListDirTool(cfg FileConfig) *ListDirTool { return &ListDirTool{cfg: cfg} }

func (t *ListDirTool) Name() string { return "list_dir" }
func (t *ListDirTool) Description() string {
	return "List files and directories at the given path. Use '.' or empty for the workspace root."
}
func (t *ListDirTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"path": {Type: "string", Description: "Directory path to list (use '.' for workspace root)"},
		},
		nil,
	)
}

func (t *ListDirTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	path := ArgString(args, "path")
	if path == "" {
		path = "."
	}
	resolved, err := t.cfg.resolvePath(path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list dir: %w", err)
	}
	var lines []string
	for _, e := range entries {
		if e.IsDir() {
			lines = append(lines, e.Name()+"/")
			continue
		}
		size := ""
		if info, err := e.Info(); err == nil {
			size = fmt.Sprintf(" %d", info.Size())
		}
		lines = append(lines, e.Name()+size)
	}
	return strings.Join(lines, "\n"), nil
}

// Compile-time interface checks.
var (
	_ domain.Tool = (*ReadFileTool)(nil)
	_ domain.Tool = (*WriteFileTool)(nil)
	_ domain.Tool = (*EditFileTool)(nil)
	_ domain.Tool = (*ListDirTool)(nil)
)
