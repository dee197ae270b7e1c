package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"minibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "cli", ChatID: "direct", Content: "hi"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "hi" {
			t.Fatalf("expected 'hi', got %q", msg.Content)
		}
		if msg.SessionKey() != "cli:direct" {
			t.Fatalf("expected session key 'cli:direct', got %q", msg.SessionKey())
		}
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}
}

func TestOutboundRouting(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	got := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		got <- msg
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", ChatID: "42", Content: "pong"})

	select {
	case msg := <-got:
		if msg.ChatID != "42" || msg.Content != "pong" {
			t.Fatalf("unexpected outbound: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestOutboundNoHandlerDoesNotPanic(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.SendOutbound(domain.OutboundMessage{Channel: "unknown", Content: "x"})
}

func TestPublishAfterClose(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "late"})
}
