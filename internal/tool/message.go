package tool

import (
	"context"
	"fmt"

	"minibot/internal/domain"
)

// MessageTool sends a message to the current conversation mid-turn, before
// the final answer. The destination comes from the per-call ToolContext.
type MessageTool struct {
	bus domain.MessageBus
}

func NewMessageTool(bus domain.MessageBus) *MessageTool {
	return &MessageTool{bus: bus}
}

func (t *MessageTool) Name() string { return "message" }
func (t *MessageTool) Description() string {
	return "Send a message to the user immediately, before your final answer. Use for progress updates during long tasks."
}
func (t *MessageTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"content": {Type: "string", Description: "The message text to send"},
		},
		[]string{"content"},
	)
}

func (t *MessageTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	content := ArgString(args, "content")
	if content == "" {
		return "", fmt.Errorf("missing argument: content")
	}
	if tc.Channel == "" || tc.ChatID == "" {
		return "", fmt.Errorf("no destination in tool context")
	}
	t.bus.SendOutbound(domain.OutboundMessage{
		Channel: tc.Channel,
		ChatID:  tc.ChatID,
		Content: content,
	})
	return "Message sent.", nil
}

var _ domain.Tool = (*MessageTool)(nil)
