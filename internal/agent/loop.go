package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"minibot/internal/domain"
	"minibot/internal/tool"
)

const (
	defaultMaxIterations = 20
	defaultHistoryLimit  = 50
	defaultLLMMaxTokens  = 4096
	defaultTemperature   = 0.7
)

// Loop is the core agent engine: receive message → call model → execute
// tools → respond. One inbound message produces at most one outbound.
type Loop struct {
	runner
	sessions        domain.SessionStore
	contexts        domain.ContextStore // nil when the backend has no personalization
	subagents       *SubagentManager
	bus             domain.MessageBus
	historyLimit    int
	maxSpendDollars float64
	backend         string
}

// LoopConfig holds all dependencies and tuning parameters for the agent loop.
type LoopConfig struct {
	Provider        domain.Provider
	Sessions        domain.SessionStore
	Contexts        domain.ContextStore
	Prompt          *ContextBuilder
	Tools           *tool.Registry
	Subagents       *SubagentManager
	Bus             domain.MessageBus
	Logger          *slog.Logger
	Model           string
	MaxIterations   int
	HistoryLimit    int
	MaxSpendDollars float64
	Backend         string // session backend tag shown by /status
}

// NewLoop creates a new agent loop with the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Model == "" {
		cfg.Model = cfg.Provider.DefaultModel()
	}
	return &Loop{
		runner: runner{
			provider:      cfg.Provider,
			prompt:        cfg.Prompt,
			tools:         cfg.Tools,
			logger:        cfg.Logger,
			model:         cfg.Model,
			maxIterations: cfg.MaxIterations,
		},
		sessions:        cfg.Sessions,
		contexts:        cfg.Contexts,
		subagents:       cfg.Subagents,
		bus:             cfg.Bus,
		historyLimit:    cfg.HistoryLimit,
		maxSpendDollars: cfg.MaxSpendDollars,
		backend:         cfg.Backend,
	}
}

// Run consumes inbound messages until the context is cancelled. Messages
// are processed one at a time; subagents run concurrently on their own.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("agent loop started", "backend", l.backend)

	inbound := l.bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("agent loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, agent loop stopping")
				return
			}
			l.processMessage(ctx, msg)
		}
	}
}

// ProcessDirect processes a message synchronously and returns the response.
// Used for one-shot invocations that bypass the bus.
func (l *Loop) ProcessDirect(ctx context.Context, content, channel, chatID string) (string, error) {
	out, err := l.dispatch(ctx, domain.InboundMessage{
		Channel:   channel,
		ChatID:    chatID,
		SenderID:  "user",
		Content:   content,
		Timestamp: time.Now(),
	})
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

// processMessage handles a single inbound message and sends the response
// through the bus. A turn-level failure becomes an apologetic outbound
// message; it never terminates the run loop.
func (l *Loop) processMessage(ctx context.Context, msg domain.InboundMessage) {
	l.logger.Info("processing message",
		"channel", msg.Channel,
		"sender", msg.SenderID,
		"content_len", len(msg.Content),
	)

	out, err := l.dispatch(ctx, msg)
	if err != nil {
		l.logger.Error("message processing failed", "error", err)
		channel, chatID := msg.Channel, msg.ChatID
		if msg.IsSystem() {
			channel, chatID = domain.DecodeOrigin(msg.ChatID)
		}
		out = &domain.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: fmt.Sprintf("Sorry, I encountered an error: %s", err.Error()),
		}
	}
	if out != nil {
		l.bus.SendOutbound(*out)
	}
}

// dispatch routes a message to the system-announce path, the command
// handler, or the regular turn handler.
func (l *Loop) dispatch(ctx context.Context, msg domain.InboundMessage) (*domain.OutboundMessage, error) {
	if msg.IsSystem() {
		return l.handleSystemMessage(ctx, msg)
	}
	if out := l.handleCommand(ctx, msg); out != nil {
		return out, nil
	}
	return l.handleMessage(ctx, msg)
}

// handleMessage drives one user-originated turn to completion.
func (l *Loop) handleMessage(ctx context.Context, msg domain.InboundMessage) (*domain.OutboundMessage, error) {
	sessionKey := msg.SessionKey()

	session, err := l.sessions.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	userContext := l.prefetchContext(ctx, sessionKey, msg.Content)

	// One budget per top-level message, shared with any subagents it spawns.
	var budget *SpendBudget
	if l.maxSpendDollars > 0 {
		budget = NewSpendBudget(l.maxSpendDollars)
		if l.subagents != nil {
			l.subagents.SetSharedBudget(budget)
		}
	}

	messages := l.prompt.BuildMessages(BuildInput{
		History:        session.History(l.historyLimit),
		CurrentMessage: msg.Content,
		Media:          msg.Media,
		Channel:        msg.Channel,
		ChatID:         msg.ChatID,
		UserContext:    userContext,
	})

	toolCtx := domain.ToolContext{
		Channel:     msg.Channel,
		ChatID:      msg.ChatID,
		SessionKey:  sessionKey,
		UserContext: userContext,
	}

	final, exhausted, err := l.runCycle(ctx, messages, toolCtx, budget, "agent")
	if err != nil {
		return nil, err
	}

	switch {
	case exhausted:
		final = "I've reached my budget limit for this request. " + budget.Summary()
	case final == "":
		final = "I've completed processing but have no response to give."
	}

	session.AddMessage("user", msg.Content)
	session.AddMessage("assistant", final)
	if err := l.sessions.Save(ctx, session); err != nil {
		l.logger.Warn("failed to save session", "error", err, "session", sessionKey)
	}

	return &domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: final,
	}, nil
}

// handleSystemMessage processes a subagent announce. The ChatID carries
// the origin conversation, and the reply is routed there.
func (l *Loop) handleSystemMessage(ctx context.Context, msg domain.InboundMessage) (*domain.OutboundMessage, error) {
	l.logger.Info("processing system message", "sender", msg.SenderID)

	originChannel, originChatID := domain.DecodeOrigin(msg.ChatID)
	sessionKey := domain.EncodeOrigin(originChannel, originChatID)

	session, err := l.sessions.GetOrCreate(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("session error: %w", err)
	}

	userContext := l.prefetchContext(ctx, sessionKey, msg.Content)

	messages := l.prompt.BuildMessages(BuildInput{
		History:        session.History(l.historyLimit),
		CurrentMessage: msg.Content,
		Channel:        originChannel,
		ChatID:         originChatID,
		UserContext:    userContext,
	})

	toolCtx := domain.ToolContext{
		Channel:     originChannel,
		ChatID:      originChatID,
		SessionKey:  sessionKey,
		UserContext: userContext,
	}

	final, _, err := l.runCycle(ctx, messages, toolCtx, nil, "agent")
	if err != nil {
		return nil, err
	}
	if final == "" {
		final = "Background task completed."
	}

	// Tag the stored turn so transcripts distinguish announces from users.
	session.AddMessage("user", fmt.Sprintf("[System: %s] %s", msg.SenderID, msg.Content))
	session.AddMessage("assistant", final)
	if err := l.sessions.Save(ctx, session); err != nil {
		l.logger.Warn("failed to save session", "error", err, "session", sessionKey)
	}

	return &domain.OutboundMessage{
		Channel: originChannel,
		ChatID:  originChatID,
		Content: final,
	}, nil
}

// prefetchContext asks the personalization backend for a context snapshot.
// A missing backend or a fetch failure degrades to no context.
func (l *Loop) prefetchContext(ctx context.Context, sessionKey, message string) string {
	if l.contexts == nil {
		return ""
	}
	userContext, err := l.contexts.PrefetchContext(ctx, sessionKey, message)
	if err != nil {
		l.logger.Warn("failed to pre-fetch user context", "error", err)
		return ""
	}
	return userContext
}

// runner drives the bounded think/act cycle. It is shared between the main
// loop and subagent runs, which differ only in wiring and budget source.
type runner struct {
	provider      domain.Provider
	prompt        *ContextBuilder
	tools         *tool.Registry
	logger        *slog.Logger
	model         string
	maxIterations int
}

// runCycle calls the model, executes requested tools, and feeds results
// back until the model answers without tool calls, the iteration cap is
// hit, or the budget is exhausted. exhausted is true only in the last case.
func (r *runner) runCycle(ctx context.Context, messages []domain.Message, toolCtx domain.ToolContext, budget *SpendBudget, source string) (final string, exhausted bool, err error) {
	var toolDefs []domain.ToolDefinition
	if r.tools != nil {
		toolDefs = r.tools.Definitions()
	}

	for iteration := 0; iteration < r.maxIterations; iteration++ {
		if budget != nil && budget.IsExhausted() {
			return "", true, nil
		}

		r.logger.Debug("agent iteration", "iteration", iteration+1, "messages", len(messages))

		resp, err := r.provider.Chat(ctx, domain.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       r.model,
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultTemperature,
		})
		if err != nil {
			return "", false, fmt.Errorf("LLM error: %w", err)
		}

		if budget != nil {
			budget.AddCost(resp.Usage.Cost, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, source)
			r.logger.Debug("budget", "summary", budget.Summary())
		}

		// No tool calls means the model is done. A model that requests
		// tools without a registry to serve them gets the same treatment.
		if !resp.HasToolCalls() || r.tools == nil {
			return resp.Content, false, nil
		}

		messages = r.prompt.AddAssistantMessage(messages, resp.Content, resp.ToolCalls)
		for _, tc := range resp.ToolCalls {
			r.logger.Info("executing tool", "tool", tc.Name)
			result := r.tools.Execute(ctx, toolCtx, tc.Name, tc.Arguments)
			messages = r.prompt.AddToolResult(messages, tc.ID, tc.Name, result)
		}
	}

	// Iteration cap reached without a final answer. Normal termination.
	return "", false, nil
}
