package domain

import (
	"strings"
	"time"
)

// SystemChannel is the reserved channel name for internally generated
// messages (subagent announces). The ChatID of a system message encodes
// the origin conversation as "channel:chat_id".
const SystemChannel = "system"

// InboundMessage is a message received from a chat channel.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Media     []string
	Timestamp time.Time
}

// SessionKey returns the conversation identity for this message.
func (m InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// IsSystem reports whether this message came from the internal system
// channel rather than a user-facing transport.
func (m InboundMessage) IsSystem() bool {
	return m.Channel == SystemChannel
}

// OutboundMessage is a message to deliver through a chat channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}

// EncodeOrigin packs a channel and chat ID into the composite form carried
// in a system message's ChatID field.
func EncodeOrigin(channel, chatID string) string {
	return channel + ":" + chatID
}

// DecodeOrigin splits a system message's composite ChatID back into the
// origin channel and chat ID. Falls back to the CLI channel when the value
// carries no separator, so a malformed announce still reaches somewhere.
func DecodeOrigin(encoded string) (channel, chatID string) {
	if i := strings.Index(encoded, ":"); i >= 0 {
		return encoded[:i], encoded[i+1:]
	}
	return "cli", encoded
}
