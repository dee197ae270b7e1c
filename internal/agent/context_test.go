package agent

import (
	"strings"
	"testing"

	"minibot/internal/domain"
)

func TestBuildMessagesOrdering(t *testing.T) {
	c := NewContextBuilder("/tmp/workspace")

	msgs := c.BuildMessages(BuildInput{
		History: []domain.Message{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
		CurrentMessage: "new question",
		Channel:        "telegram",
		ChatID:         "42",
	})

	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Fatalf("first role = %q, want system", msgs[0].Role)
	}
	if msgs[1].Content != "earlier question" || msgs[2].Content != "earlier answer" {
		t.Fatal("history out of order")
	}
	if msgs[3].Role != "user" || msgs[3].Content != "new question" {
		t.Fatalf("last message = %+v", msgs[3])
	}
	if !strings.Contains(msgs[0].Content, "Channel: telegram | Chat ID: 42") {
		t.Fatal("system prompt missing session identity")
	}
}

func TestBuildMessagesUserContextAndMedia(t *testing.T) {
	c := NewContextBuilder("/tmp/workspace")

	msgs := c.BuildMessages(BuildInput{
		CurrentMessage: "what is this?",
		Media:          []string{"/tmp/photo.jpg"},
		Channel:        "cli",
		ChatID:         "direct",
		UserContext:    "Prefers terse answers.",
	})

	if !strings.Contains(msgs[0].Content, "Prefers terse answers.") {
		t.Fatal("user context not injected into system prompt")
	}
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "/tmp/photo.jpg") {
		t.Fatalf("media annotation missing: %q", last.Content)
	}
}

func TestAddAssistantAndToolResultOrdering(t *testing.T) {
	c := NewContextBuilder("/tmp/workspace")
	msgs := []domain.Message{{Role: "user", Content: "go"}}

	calls := []domain.ToolCall{
		{ID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.txt"}},
		{ID: "c2", Name: "read_file", Arguments: map[string]any{"path": "b.txt"}},
	}
	msgs = c.AddAssistantMessage(msgs, "", calls)
	msgs = c.AddToolResult(msgs, "c1", "read_file", "contents of a")
	msgs = c.AddToolResult(msgs, "c2", "read_file", "contents of b")

	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	if msgs[1].Role != "assistant" || len(msgs[1].ToolCalls) != 2 {
		t.Fatalf("assistant turn = %+v", msgs[1])
	}
	if msgs[2].ToolCallID != "c1" || msgs[3].ToolCallID != "c2" {
		t.Fatal("tool results must follow the assistant turn in call order")
	}
}
