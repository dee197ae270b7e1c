package agent

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// SpendBudget tracks API spend across a turn and any subagents it spawns.
// A single budget is shared by reference between the parent loop and every
// subagent spawned while processing the same request; AddCost is the only
// mutation point and serializes all callers.
type SpendBudget struct {
	mu           sync.Mutex
	maxDollars   float64
	spentDollars float64
	inputTokens  int
	outputTokens int
	calls        []budgetCall
}

type budgetCall struct {
	Source       string
	InputTokens  int
	OutputTokens int
	Cost         float64
}

func NewSpendBudget(maxDollars float64) *SpendBudget {
	return &SpendBudget{maxDollars: maxDollars}
}

// AddCost records one model call's cost and token usage. Source labels the
// caller, e.g. "agent" or "subagent:<task-id>". Spend only ever increases.
func (b *SpendBudget) AddCost(cost float64, inputTokens, outputTokens int, source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inputTokens += inputTokens
	b.outputTokens += outputTokens
	b.spentDollars += cost
	b.calls = append(b.calls, budgetCall{
		Source:       source,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
	})
}

// IsExhausted reports whether the ceiling has been reached. Once true it
// stays true.
func (b *SpendBudget) IsExhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentDollars >= b.maxDollars
}

// RemainingDollars returns the unspent budget, never negative.
func (b *SpendBudget) RemainingDollars() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rem := b.maxDollars - b.spentDollars; rem > 0 {
		return rem
	}
	return 0
}

// Utilization returns the fraction of budget used (may exceed 1.0 when an
// in-flight call overshoots the ceiling).
func (b *SpendBudget) Utilization() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxDollars <= 0 {
		return 0
	}
	return b.spentDollars / b.maxDollars
}

// Spent returns the total dollars recorded so far.
func (b *SpendBudget) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentDollars
}

// Summary returns a one-line human-readable spend summary.
func (b *SpendBudget) Summary() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("$%.4f of $%.2f (%s in, %s out)",
		b.spentDollars, b.maxDollars,
		groupThousands(b.inputTokens), groupThousands(b.outputTokens))
}

// DetailedSummary returns the total plus a per-call breakdown by source.
func (b *SpendBudget) DetailedSummary() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total: $%.4f of $%.2f (%s in, %s out)",
		b.spentDollars, b.maxDollars,
		groupThousands(b.inputTokens), groupThousands(b.outputTokens))
	if len(b.calls) > 0 {
		sb.WriteString("\nCalls:")
		for _, c := range b.calls {
			fmt.Fprintf(&sb, "\n  - %s: $%.4f (%s in, %s out)",
				c.Source, c.Cost,
				groupThousands(c.InputTokens), groupThousands(c.OutputTokens))
		}
	}
	return sb.String()
}

// groupThousands formats n with comma separators, e.g. 1234567 -> "1,234,567".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
