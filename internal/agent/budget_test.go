package agent

import (
	"strings"
	"sync"
	"testing"
)

func TestBudgetAccumulation(t *testing.T) {
	b := NewSpendBudget(1.00)

	if b.IsExhausted() {
		t.Fatal("fresh budget should not be exhausted")
	}
	if rem := b.RemainingDollars(); rem != 1.00 {
		t.Fatalf("remaining = %v, want 1.00", rem)
	}

	b.AddCost(0.25, 100, 50, "agent")
	b.AddCost(0.25, 200, 80, "agent")
	if b.IsExhausted() {
		t.Fatal("half-spent budget should not be exhausted")
	}
	if rem := b.RemainingDollars(); rem != 0.50 {
		t.Fatalf("remaining = %v, want 0.50", rem)
	}

	b.AddCost(0.50, 300, 100, "subagent:abc")
	if !b.IsExhausted() {
		t.Fatal("budget at ceiling should be exhausted")
	}
	if rem := b.RemainingDollars(); rem != 0 {
		t.Fatalf("remaining = %v, want 0", rem)
	}

	// Spend never decreases; exhaustion is sticky.
	b.AddCost(0.10, 10, 5, "agent")
	if !b.IsExhausted() {
		t.Fatal("exhaustion must be sticky")
	}
	if rem := b.RemainingDollars(); rem != 0 {
		t.Fatalf("remaining after overshoot = %v, want 0", rem)
	}
	if spent := b.Spent(); spent < 1.10-1e-9 {
		t.Fatalf("spent = %v, want >= 1.10", spent)
	}
}

func TestBudgetUtilization(t *testing.T) {
	b := NewSpendBudget(2.00)
	b.AddCost(0.50, 0, 0, "agent")
	if u := b.Utilization(); u != 0.25 {
		t.Fatalf("utilization = %v, want 0.25", u)
	}

	zero := NewSpendBudget(0)
	if u := zero.Utilization(); u != 0 {
		t.Fatalf("zero-ceiling utilization = %v, want 0", u)
	}
}

func TestBudgetSummaryFormat(t *testing.T) {
	b := NewSpendBudget(5.00)
	b.AddCost(0.1234, 1234567, 890, "agent")

	got := b.Summary()
	want := "$0.1234 of $5.00 (1,234,567 in, 890 out)"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}

func TestBudgetDetailedSummary(t *testing.T) {
	b := NewSpendBudget(1.00)
	b.AddCost(0.10, 1000, 200, "agent")
	b.AddCost(0.20, 2000, 400, "subagent:ab12")

	got := b.DetailedSummary()
	if !strings.HasPrefix(got, "Total: $0.3000 of $1.00") {
		t.Fatalf("detailed summary missing total: %q", got)
	}
	if !strings.Contains(got, "- agent: $0.1000 (1,000 in, 200 out)") {
		t.Fatalf("detailed summary missing agent line: %q", got)
	}
	if !strings.Contains(got, "- subagent:ab12: $0.2000 (2,000 in, 400 out)") {
		t.Fatalf("detailed summary missing subagent line: %q", got)
	}
}

func TestBudgetConcurrentAddCost(t *testing.T) {
	b := NewSpendBudget(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.AddCost(0.001, 10, 5, "agent")
			}
		}()
	}
	wg.Wait()

	if spent := b.Spent(); spent < 0.999 || spent > 1.001 {
		t.Fatalf("spent = %v, want ~1.0 (lost updates?)", spent)
	}
}

func TestGroupThousands(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, c := range cases {
		if got := groupThousands(c.in); got != c.want {
			t.Errorf("groupThousands(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
