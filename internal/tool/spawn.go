package tool

import (
	"context"
	"fmt"

	"minibot/internal/domain"
)

// Spawner starts a detached background run for a delegated task and
// returns an immediate acknowledgement.
type Spawner interface {
	Spawn(ctx context.Context, task domain.SubagentTask) (string, error)
}

// SpawnTool delegates a task to a background subagent. The origin
// conversation and user-context snapshot come from the per-call
// ToolContext, so the announce routes back to the right chat.
type SpawnTool struct {
	manager Spawner
}

func NewSpawnTool(manager Spawner) *SpawnTool {
	return &SpawnTool{manager: manager}
}

func (t *SpawnTool) Name() string { return "spawn" }
func (t *SpawnTool) Description() string {
	return "Spawn a subagent to handle a task in the background. " +
		"Use this for complex or time-consuming tasks that can run independently. " +
		"The subagent will complete the task and report back when done."
}
func (t *SpawnTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"task":  {Type: "string", Description: "The task for the subagent to complete"},
			"label": {Type: "string", Description: "Optional short label for the task (for display)"},
			"context_summary": {Type: "string", Description: "Optional summary of conversation context relevant to this task. " +
				"Include key details the subagent needs to know."},
			"relevant_files": {
				Type:        "array",
				Description: "Optional list of file paths relevant to the task",
				Items:       map[string]any{"type": "string"},
			},
		},
		[]string{"task"},
	)
}

func (t *SpawnTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	task := ArgString(args, "task")
	if task == "" {
		return "", fmt.Errorf("missing argument: task")
	}
	return t.manager.Spawn(ctx, domain.SubagentTask{
		Task:           task,
		Label:          ArgString(args, "label"),
		OriginChannel:  tc.Channel,
		OriginChatID:   tc.ChatID,
		ContextSummary: ArgString(args, "context_summary"),
		RelevantFiles:  ArgStrings(args, "relevant_files"),
		UserContext:    tc.UserContext,
	})
}

var _ domain.Tool = (*SpawnTool)(nil)
