package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"minibot/internal/domain"
)

func TestWebFetchRejectsScheme(t *testing.T) {
	tool := NewWebFetchTool()
	_, err := tool.Execute(context.Background(), domain.ToolContext{}, map[string]any{
		"url": "ftp://example.com/file",
	})
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Fatalf("expected scheme error, got %v", err)
	}
}

func TestWebFetchStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>plain text</p></body></html>"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), domain.ToolContext{}, map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "plain text") || strings.Contains(result, "<p>") {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestWebFetchTruncatesOnRuneBoundary(t *testing.T) {
	// 3-byte runes, well past the output cap.
	page := strings.Repeat("界", fetchMaxOutput)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	result, err := tool.Execute(context.Background(), domain.ToolContext{}, map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result, "(truncated)") {
		t.Fatal("expected truncation marker")
	}
	if !utf8.ValidString(result) {
		t.Fatal("truncated output is not valid UTF-8")
	}
}
