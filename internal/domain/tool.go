package domain

import "context"

// ToolContext carries the per-call conversation context a tool may need.
// It is passed explicitly on every invocation; tools hold no mutable
// conversation state of their own.
type ToolContext struct {
	Channel     string
	ChatID      string
	SessionKey  string
	UserContext string // pre-fetched personalization snapshot, may be empty
}

// Tool is the interface for agent capabilities (files, shell, web, spawn).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, tc ToolContext, args map[string]any) (string, error)
}
