package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"minibot/internal/domain"
	"minibot/internal/tool"
)

// SubagentManager fans delegated tasks out to detached background runs and
// fans their results back in through the bus as system messages. Subagents
// share the parent's budget but use their own tool registry, which must not
// contain the spawn tool.
type SubagentManager struct {
	runner
	bus domain.MessageBus

	mu     sync.Mutex
	budget *SpendBudget
	active int
	wg     sync.WaitGroup
}

// SubagentConfig holds the wiring for background runs.
type SubagentConfig struct {
	Provider      domain.Provider
	Prompt        *ContextBuilder
	Tools         *tool.Registry
	Bus           domain.MessageBus
	Logger        *slog.Logger
	Model         string
	MaxIterations int
}

func NewSubagentManager(cfg SubagentConfig) *SubagentManager {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Model == "" {
		cfg.Model = cfg.Provider.DefaultModel()
	}
	return &SubagentManager{
		runner: runner{
			provider:      cfg.Provider,
			prompt:        cfg.Prompt,
			tools:         cfg.Tools,
			logger:        cfg.Logger,
			model:         cfg.Model,
			maxIterations: cfg.MaxIterations,
		},
		bus: cfg.Bus,
	}
}

// SetSharedBudget attaches the budget every subsequently spawned subagent
// charges against. The main loop calls this once per budgeted turn.
func (m *SubagentManager) SetSharedBudget(b *SpendBudget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = b
}

// Active returns the number of in-flight subagents.
func (m *SubagentManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Wait blocks until all in-flight subagents have announced.
func (m *SubagentManager) Wait() {
	m.wg.Wait()
}

// Spawn starts a detached background run for the task and returns an
// immediate acknowledgement. It never blocks on the subagent's completion;
// the result arrives later as a system message through the bus.
func (m *SubagentManager) Spawn(ctx context.Context, task domain.SubagentTask) (string, error) {
	if strings.TrimSpace(task.Task) == "" {
		return "", fmt.Errorf("spawn: task is required")
	}

	taskID := uuid.NewString()[:8]
	label := task.Label
	if label == "" {
		label = summarizeTask(task.Task)
	}

	m.mu.Lock()
	budget := m.budget
	m.active++
	m.mu.Unlock()
	m.wg.Add(1)

	m.logger.Info("spawning subagent", "id", taskID, "label", label)

	// The run outlives the parent turn; detach from its cancellation.
	runCtx := context.WithoutCancel(ctx)
	go m.run(runCtx, taskID, label, task, budget)

	return fmt.Sprintf("Spawned subagent [%s]: %s. It will report back when done.", taskID, label), nil
}

func (m *SubagentManager) run(ctx context.Context, taskID, label string, task domain.SubagentTask, budget *SpendBudget) {
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
		m.wg.Done()
	}()

	toolCtx := domain.ToolContext{
		Channel:     task.OriginChannel,
		ChatID:      task.OriginChatID,
		SessionKey:  domain.EncodeOrigin(task.OriginChannel, task.OriginChatID),
		UserContext: task.UserContext,
	}

	source := "subagent:" + taskID
	final, exhausted, err := m.runCycle(ctx, m.seedMessages(task), toolCtx, budget, source)

	var content string
	switch {
	case err != nil:
		m.logger.Error("subagent failed", "id", taskID, "error", err)
		content = fmt.Sprintf("Background task %q failed: %s", label, err.Error())
	case exhausted:
		content = fmt.Sprintf("Background task %q stopped: budget limit reached. %s", label, budget.Summary())
	case final == "":
		content = fmt.Sprintf("Background task %q finished with no result.", label)
	default:
		content = fmt.Sprintf("Background task %q finished:\n\n%s", label, final)
	}

	m.logger.Info("subagent done", "id", taskID, "label", label)

	// Announce through the normal inbound pipeline; the main loop routes
	// the reply back to the origin conversation.
	m.bus.Publish(domain.InboundMessage{
		Channel:   domain.SystemChannel,
		SenderID:  "subagent:" + taskID,
		ChatID:    domain.EncodeOrigin(task.OriginChannel, task.OriginChatID),
		Content:   content,
		Timestamp: time.Now(),
	})
}

// seedMessages builds the fresh message sequence a subagent starts from.
func (m *SubagentManager) seedMessages(task domain.SubagentTask) []domain.Message {
	var sb strings.Builder
	sb.WriteString(task.Task)
	if task.ContextSummary != "" {
		sb.WriteString("\n\n## Context\n")
		sb.WriteString(task.ContextSummary)
	}
	if len(task.RelevantFiles) > 0 {
		sb.WriteString("\n\n## Relevant Files\n")
		for _, f := range task.RelevantFiles {
			sb.WriteString("- ")
			sb.WriteString(f)
			sb.WriteByte('\n')
		}
	}

	system := `# Minibot Subagent

You are a background subagent. Complete the task below using your tools,
then reply with a clear, self-contained summary of the outcome. Your final
reply is delivered back to the conversation that delegated the task, so
include everything worth reporting. Do not ask questions; nobody will
answer them.`
	if task.UserContext != "" {
		system += "\n\n## What You Know About This User\n" + task.UserContext
	}

	return []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: sb.String()},
	}
}

// summarizeTask derives a short display label from the task text.
func summarizeTask(task string) string {
	task = strings.Join(strings.Fields(task), " ")
	const maxLabel = 48
	runes := []rune(task)
	if len(runes) <= maxLabel {
		return task
	}
	return string(runes[:maxLabel-3]) + "..."
}
