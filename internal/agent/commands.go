package agent

import (
	"context"
	"fmt"
	"strings"

	"minibot/internal/domain"
)

// handleCommand short-circuits recognized slash commands before any model
// call. Returns nil when the message is not a command.
func (l *Loop) handleCommand(ctx context.Context, msg domain.InboundMessage) *domain.OutboundMessage {
	reply := func(content string) *domain.OutboundMessage {
		return &domain.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: content,
		}
	}

	switch strings.ToLower(strings.TrimSpace(msg.Content)) {
	case "/clear", "/reset", "/new":
		session, err := l.sessions.GetOrCreate(ctx, msg.SessionKey())
		if err != nil {
			return reply(fmt.Sprintf("Failed to clear session: %s", err.Error()))
		}
		session.Clear()
		if err := l.sessions.Save(ctx, session); err != nil {
			l.logger.Warn("failed to save cleared session", "error", err)
		}
		l.logger.Info("cleared session", "session", msg.SessionKey())
		return reply("Session cleared. Starting fresh conversation.")

	case "/status":
		session, err := l.sessions.GetOrCreate(ctx, msg.SessionKey())
		if err != nil {
			return reply(fmt.Sprintf("Failed to load session: %s", err.Error()))
		}
		budget := "unlimited"
		if l.maxSpendDollars > 0 {
			budget = fmt.Sprintf("$%.2f per request", l.maxSpendDollars)
		}
		return reply(fmt.Sprintf(
			"Session: %s\nMessages: %d\nMemory backend: %s\nBudget: %s",
			msg.SessionKey(), len(session.Turns), l.backend, budget))

	case "/help":
		return reply("Commands:\n" +
			"/clear - Clear conversation history\n" +
			"/status - Show session info\n" +
			"/help - Show this help")
	}

	return nil
}
