package tool

import (
	"context"
	"fmt"

	"minibot/internal/domain"
)

// UserContextTool asks the personalization backend a free-form question
// about the user behind the current session.
type UserContextTool struct {
	contexts domain.ContextStore
}

func NewUserContextTool(contexts domain.ContextStore) *UserContextTool {
	return &UserContextTool{contexts: contexts}
}

func (t *UserContextTool) Name() string { return "query_user_context" }
func (t *UserContextTool) Description() string {
	return "Ask a free-form question about the current user, answered from their long-term conversation history. " +
		"Use when you need background the current conversation does not provide."
}
func (t *UserContextTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"query": {Type: "string", Description: "The question to ask about the user"},
		},
		[]string{"query"},
	)
}

func (t *UserContextTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	query := ArgString(args, "query")
	if query == "" {
		return "", fmt.Errorf("missing argument: query")
	}
	if t.contexts == nil {
		return "No user context backend is active.", nil
	}
	answer, err := t.contexts.UserContext(ctx, tc.SessionKey, query)
	if err != nil {
		return "", fmt.Errorf("user context query: %w", err)
	}
	if answer == "" {
		return "No information available for that question.", nil
	}
	return answer, nil
}

var _ domain.Tool = (*UserContextTool)(nil)
