package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"minibot/internal/domain"
)

// guidedPromptFiles are the workspace files that shape the agent's
// personality and so deserve a preference check before editing.
var guidedPromptFiles = []string{"AGENTS.md", "IDENTITY.md", "SOUL.md", "USER.md"}

// PromptEditTool edits personality files. Before writing, it asks the
// personalization backend whether the change fits what is known about the
// user and surfaces that guidance alongside the edit result.
type PromptEditTool struct {
	cfg      FileConfig
	contexts domain.ContextStore
}

func NewPromptEditTool(cfg FileConfig, contexts domain.ContextStore) *PromptEditTool {
	return &PromptEditTool{cfg: cfg, contexts: contexts}
}

func (t *PromptEditTool) Name() string { return "edit_prompt" }
func (t *PromptEditTool) Description() string {
	return "Edit a personality file (" + strings.Join(guidedPromptFiles, ", ") + ") with guidance from what is known about the user. " +
		"Use this instead of edit_file for those files."
}
func (t *PromptEditTool) Parameters() map[string]any {
	return Parameters(
		map[string]Param{
			"file":     {Type: "string", Description: "The personality file to edit", Enum: guidedPromptFiles},
			"intent":   {Type: "string", Description: "What you want to change and why"},
			"old_text": {Type: "string", Description: "Exact text to replace (must appear exactly once)"},
			"new_text": {Type: "string", Description: "Replacement text"},
		},
		[]string{"file", "intent", "old_text", "new_text"},
	)
}

func (t *PromptEditTool) Execute(ctx context.Context, tc domain.ToolContext, args map[string]any) (string, error) {
	file := ArgString(args, "file")
	intent := ArgString(args, "intent")
	oldText := ArgString(args, "old_text")
	newText := ArgString(args, "new_text")
	if file == "" || oldText == "" {
		return "", fmt.Errorf("missing argument: file and old_text are required")
	}
	if !isGuidedPromptFile(file) {
		return "", fmt.Errorf("%s is not a personality file, use edit_file instead", file)
	}

	resolved := filepath.Join(t.cfg.Workspace, file)
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	content := string(data)
	switch count := strings.Count(content, oldText); count {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", file)
	case 1:
	default:
		return "", fmt.Errorf("old_text appears %d times in %s, must be unique", count, file)
	}

	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}

	result := fmt.Sprintf("Edited %s.", file)
	if guidance := t.guidance(ctx, tc.SessionKey, intent, oldText, newText); guidance != "" {
		result += "\n\nUser guidance:\n" + guidance
		result += "\n\nConsider whether the edit aligns with the preferences described above."
	}
	return result, nil
}

// guidance asks the personalization backend whether the edit fits the
// user's preferences. Failures degrade to no guidance.
func (t *PromptEditTool) guidance(ctx context.Context, sessionKey, intent, oldText, newText string) string {
	if t.contexts == nil || sessionKey == "" {
		return ""
	}
	query := fmt.Sprintf(
		"The user wants me to edit my personality settings. Intent: %s\nChanging from: %s\nChanging to: %s\n\n"+
			"Based on what you know about this user, does this change align with their preferences and communication style? What should I consider?",
		intent, preview(oldText), preview(newText),
	)
	answer, err := t.contexts.UserContext(ctx, sessionKey, query)
	if err != nil {
		return ""
	}
	return answer
}

func isGuidedPromptFile(name string) bool {
	for _, f := range guidedPromptFiles {
		if f == name {
			return true
		}
	}
	return false
}

// preview shortens text for inclusion in a guidance query.
func preview(s string) string {
	const max = 200
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

var _ domain.Tool = (*PromptEditTool)(nil)
