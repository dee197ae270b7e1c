package agent

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"minibot/internal/domain"
	"minibot/internal/tool"
)

func newTestManager(p *fakeProvider, bus *fakeBus) *SubagentManager {
	return NewSubagentManager(SubagentConfig{
		Provider:      p,
		Prompt:        NewContextBuilder("/tmp/workspace"),
		Tools:         tool.NewRegistry(testLogger()),
		Bus:           bus,
		Logger:        testLogger(),
		MaxIterations: 5,
	})
}

func TestSpawnAnnouncesToOrigin(t *testing.T) {
	p := &fakeProvider{responses: []*domain.ChatResponse{textResponse("research complete", 0.01)}}
	bus := &fakeBus{}
	m := newTestManager(p, bus)

	ack, err := m.Spawn(context.Background(), domain.SubagentTask{
		Task:          "research the thing",
		Label:         "research",
		OriginChannel: "telegram",
		OriginChatID:  "42",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ack, "Spawned subagent") || !strings.Contains(ack, "research") {
		t.Fatalf("ack = %q", ack)
	}

	m.Wait()

	published := bus.publishedMessages()
	if len(published) != 1 {
		t.Fatalf("published = %d, want 1 announce", len(published))
	}
	announce := published[0]
	if announce.Channel != domain.SystemChannel {
		t.Fatalf("announce channel = %q, want system", announce.Channel)
	}
	if announce.ChatID != "telegram:42" {
		t.Fatalf("announce chat_id = %q, want telegram:42", announce.ChatID)
	}
	if !strings.HasPrefix(announce.SenderID, "subagent:") {
		t.Fatalf("announce sender = %q", announce.SenderID)
	}
	if !strings.Contains(announce.Content, "research complete") {
		t.Fatalf("announce content = %q", announce.Content)
	}
	if m.Active() != 0 {
		t.Fatalf("active = %d after Wait", m.Active())
	}
}

func TestSpawnRequiresTask(t *testing.T) {
	p := &fakeProvider{responses: []*domain.ChatResponse{textResponse("x", 0)}}
	m := newTestManager(p, &fakeBus{})

	if _, err := m.Spawn(context.Background(), domain.SubagentTask{Task: "  "}); err == nil {
		t.Fatal("expected error for empty task")
	}
}

func TestSpawnFailureBecomesAnnounce(t *testing.T) {
	bus := &fakeBus{}
	m := NewSubagentManager(SubagentConfig{
		Provider: errProvider{},
		Prompt:   NewContextBuilder("/tmp/workspace"),
		Tools:    tool.NewRegistry(testLogger()),
		Bus:      bus,
		Logger:   testLogger(),
	})

	if _, err := m.Spawn(context.Background(), domain.SubagentTask{
		Task: "doomed", OriginChannel: "cli", OriginChatID: "direct",
	}); err != nil {
		t.Fatal(err)
	}
	m.Wait()

	published := bus.publishedMessages()
	if len(published) != 1 {
		t.Fatalf("published = %d, want 1", len(published))
	}
	if !strings.Contains(published[0].Content, "failed") {
		t.Fatalf("failure announce = %q", published[0].Content)
	}
}

func TestSharedBudgetAcrossSubagents(t *testing.T) {
	// Two subagents against a $1.00 ceiling with calls costing $0.6 and
	// $0.7. Each observes remaining budget before its single call, so at
	// most one call may overshoot: total spend stays within ceiling plus
	// one in-flight call.
	p := &fakeProvider{responses: []*domain.ChatResponse{
		textResponse("first done", 0.6),
		textResponse("second done", 0.7),
	}}
	bus := &fakeBus{}
	m := newTestManager(p, bus)

	budget := NewSpendBudget(1.00)
	m.SetSharedBudget(budget)

	for _, task := range []string{"first task", "second task"} {
		if _, err := m.Spawn(context.Background(), domain.SubagentTask{
			Task: task, OriginChannel: "cli", OriginChatID: "direct",
		}); err != nil {
			t.Fatal(err)
		}
	}
	m.Wait()

	if spent := budget.Spent(); spent > 1.00+0.7+1e-9 {
		t.Fatalf("spent = %v, exceeds ceiling plus one in-flight call", spent)
	}
	calls := p.callCount()

	// A third subagent must observe exhaustion and make no model call.
	if _, err := m.Spawn(context.Background(), domain.SubagentTask{
		Task: "third task", OriginChannel: "cli", OriginChatID: "direct",
	}); err != nil {
		t.Fatal(err)
	}
	m.Wait()

	if !budget.IsExhausted() {
		t.Fatalf("budget not exhausted at spend %v", budget.Spent())
	}
	if p.callCount() != calls {
		t.Fatalf("model calls = %d, want %d (exhausted subagent must not call)", p.callCount(), calls)
	}

	published := bus.publishedMessages()
	if len(published) != 3 {
		t.Fatalf("announces = %d, want 3", len(published))
	}
	last := published[2]
	if !strings.Contains(last.Content, "budget limit") {
		t.Fatalf("exhausted announce = %q", last.Content)
	}

	// Every call is attributed to a distinct subagent source.
	detail := budget.DetailedSummary()
	if !strings.Contains(detail, "subagent:") {
		t.Fatalf("ledger missing subagent attribution: %q", detail)
	}
}

func TestSummarizeTask(t *testing.T) {
	if got := summarizeTask("short task"); got != "short task" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("investigate the anomaly ", 10)
	got := summarizeTask(long)
	if len([]rune(got)) != 48 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long label = %q (len %d)", got, len(got))
	}

	wide := strings.Repeat("调查异常情况", 20)
	got = summarizeTask(wide)
	if !utf8.ValidString(got) {
		t.Fatalf("label is not valid UTF-8: %q", got)
	}
	if len([]rune(got)) != 48 || !strings.HasSuffix(got, "...") {
		t.Fatalf("wide label = %q (rune len %d)", got, len([]rune(got)))
	}
}
