package tool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"minibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type stubTool struct {
	name string
	fn   func(tc domain.ToolContext, args map[string]any) (string, error)
}

func (s stubTool) Name() string                { return s.name }
func (s stubTool) Description() string         { return "stub" }
func (s stubTool) Parameters() map[string]any  { return Parameters(nil, nil) }
func (s stubTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	return s.fn(tc, args)
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(stubTool{name: "greet", fn: func(tc domain.ToolContext, args map[string]any) (string, error) {
		return "hello " + ArgString(args, "who"), nil
	}})

	got := r.Execute(context.Background(), domain.ToolContext{}, "greet", map[string]any{"who": "world"})
	if got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestRegistryUnknownToolIsResultText(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(stubTool{name: "greet", fn: func(domain.ToolContext, map[string]any) (string, error) { return "", nil }})

	got := r.Execute(context.Background(), domain.ToolContext{}, "nope", nil)
	if !strings.Contains(got, "unknown tool: nope") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "greet") {
		t.Fatalf("available tools not listed: %q", got)
	}
}

func TestRegistryToolErrorIsResultText(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(stubTool{name: "boom", fn: func(domain.ToolContext, map[string]any) (string, error) {
		return "", fmt.Errorf("exploded")
	}})

	got := r.Execute(context.Background(), domain.ToolContext{}, "boom", nil)
	if !strings.Contains(got, "Error executing tool boom") || !strings.Contains(got, "exploded") {
		t.Fatalf("got %q", got)
	}
}

func TestRegistryContextReachesTool(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(stubTool{name: "whoami", fn: func(tc domain.ToolContext, args map[string]any) (string, error) {
		return tc.SessionKey, nil
	}})

	got := r.Execute(context.Background(), domain.ToolContext{SessionKey: "telegram:42"}, "whoami", nil)
	if got != "telegram:42" {
		t.Fatalf("tool context lost: %q", got)
	}
}

func TestDefinitionsSorted(t *testing.T) {
	r := NewRegistry(testLogger())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(stubTool{name: name, fn: func(domain.ToolContext, map[string]any) (string, error) { return "", nil }})
	}

	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("defs = %d", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "mid" || defs[2].Name != "zeta" {
		t.Fatalf("definitions not sorted: %+v", defs)
	}
}

func TestParametersSchema(t *testing.T) {
	schema := Parameters(map[string]Param{
		"path":  {Type: "string", Description: "a path"},
		"files": {Type: "array", Description: "some files", Items: map[string]any{"type": "string"}},
	}, []string{"path"})

	if schema["type"] != "object" {
		t.Fatalf("schema type = %v", schema["type"])
	}
	props := schema["properties"].(map[string]any)
	if props["path"].(map[string]any)["type"] != "string" {
		t.Fatalf("path prop = %v", props["path"])
	}
	if props["files"].(map[string]any)["items"] == nil {
		t.Fatal("array prop missing items")
	}
	req := schema["required"].([]string)
	if len(req) != 1 || req[0] != "path" {
		t.Fatalf("required = %v", req)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s":    "text",
		"n":    42.0,
		"list": []any{"a", "b", 3},
	}
	if got := ArgString(args, "s"); got != "text" {
		t.Fatalf("ArgString = %q", got)
	}
	if got := ArgString(args, "n"); got != "42" {
		t.Fatalf("ArgString non-string = %q", got)
	}
	if got := ArgString(nil, "s"); got != "" {
		t.Fatalf("ArgString nil args = %q", got)
	}
	if got := ArgStrings(args, "list"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("ArgStrings = %v", got)
	}
	if got := ArgStrings(args, "missing"); got != nil {
		t.Fatalf("ArgStrings missing = %v", got)
	}
}
