package agent

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"minibot/internal/domain"
)

// ContextBuilder assembles the provider-ready message sequence for a turn:
// system prompt, stored history, then the new user message. It also appends
// the assistant/tool turns produced during iteration, preserving call order.
type ContextBuilder struct {
	workspace string
}

func NewContextBuilder(workspace string) *ContextBuilder {
	return &ContextBuilder{workspace: workspace}
}

// BuildInput is everything that feeds the initial message sequence of a turn.
type BuildInput struct {
	History        []domain.Message
	CurrentMessage string
	Media          []string
	Channel        string
	ChatID         string
	UserContext    string
}

func (c *ContextBuilder) systemPrompt(channel, chatID, userContext string) string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	workspacePath, err := filepath.Abs(c.workspace)
	if err != nil {
		workspacePath = c.workspace
	}

	prompt := fmt.Sprintf(`# Minibot

You are Minibot, a helpful assistant with access to tools. You can read,
write, and edit files in the workspace, run shell commands, search the web,
fetch pages, and delegate long-running work to background subagents with
the spawn tool.

## Current Time
%s

## Runtime
%s %s

## Workspace
%s

## Session
Channel: %s | Chat ID: %s

## Rules
1. When the user asks you to DO something, use the appropriate tool rather
   than describing what you would do.
2. Use spawn for tasks that would take many steps and do not need to block
   the conversation. The subagent reports back when done.
3. After tool execution, present results clearly. Do not mention tool names.
4. Respond in the same language the user writes in.
5. Be helpful, accurate, and concise.`,
		now, runtime.GOOS, runtime.GOARCH, workspacePath, channel, chatID)

	if userContext != "" {
		prompt += "\n\n## What You Know About This User\n" + userContext
	}
	return prompt
}

// BuildMessages constructs [system + history + user message] for a model call.
func (c *ContextBuilder) BuildMessages(in BuildInput) []domain.Message {
	messages := []domain.Message{
		{Role: "system", Content: c.systemPrompt(in.Channel, in.ChatID, in.UserContext)},
	}

	for _, m := range in.History {
		messages = append(messages, m)
	}

	content := in.CurrentMessage
	if len(in.Media) > 0 {
		// Providers here are text-only; media arrives as path annotations.
		content += "\n\n[Attached files: " + strings.Join(in.Media, ", ") + "]"
	}
	messages = append(messages, domain.Message{Role: "user", Content: content})
	return messages
}

// AddAssistantMessage appends the assistant turn carrying the model's
// tool-call records.
func (c *ContextBuilder) AddAssistantMessage(messages []domain.Message, content string, toolCalls []domain.ToolCall) []domain.Message {
	msg := domain.Message{Role: "assistant", Content: content}
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}
	return append(messages, msg)
}

// AddToolResult appends a tool-result turn echoing the originating call ID.
func (c *ContextBuilder) AddToolResult(messages []domain.Message, toolCallID, toolName, result string) []domain.Message {
	return append(messages, domain.Message{
		Role:       "tool",
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Content:    result,
	})
}
