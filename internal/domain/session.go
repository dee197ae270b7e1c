package domain

import (
	"context"
	"time"
)

// Turn is one stored entry in a conversation session.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a per-conversation history owned by a SessionStore. A session
// is mutated only by the turn currently processing it; stores serialize
// access at their own boundary.
type Session struct {
	Key       string    `json:"key"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Persisted counts the leading turns already written to the backing
	// store, so Save only appends the tail.
	Persisted int `json:"-"`
}

// AddMessage appends a turn with the current timestamp.
func (s *Session) AddMessage(role, content string) {
	now := time.Now()
	s.Turns = append(s.Turns, Turn{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// History returns up to limit most recent turns as provider messages.
// limit <= 0 means all turns.
func (s *Session) History(limit int) []Message {
	turns := s.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// Clear removes all turns. Persisted is left untouched so the store can
// detect the truncation on the next Save and rewrite its copy.
func (s *Session) Clear() {
	s.Turns = nil
	s.UpdatedAt = time.Now()
}

// SessionStore is the persistence contract the agent loop consumes. Two
// interchangeable implementations exist: a local sqlite-backed store and a
// remote personalization-service store.
type SessionStore interface {
	GetOrCreate(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key string) bool
	Close() error
}

// ContextStore is an optional SessionStore extension for backends that can
// answer questions about the user behind a session.
type ContextStore interface {
	// PrefetchContext returns a context snapshot relevant to the incoming
	// message, fetched in a single call before the model is consulted.
	PrefetchContext(ctx context.Context, key, message string) (string, error)
	// UserContext answers a free-form question about the user.
	UserContext(ctx context.Context, key, query string) (string, error)
}
