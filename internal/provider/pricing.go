package provider

import "github.com/shopspring/decimal"

// Pricing holds per-million-token prices in dollars for one model.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var million = decimal.NewFromInt(1_000_000)

// Cost computes the dollar cost of one call. Token prices are tiny
// fractions of a cent, so the arithmetic is done in decimal to keep the
// budget ledger free of float drift.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	in := decimal.NewFromFloat(p.InputPerMillion).
		Mul(decimal.NewFromInt(int64(inputTokens))).
		Div(million)
	out := decimal.NewFromFloat(p.OutputPerMillion).
		Mul(decimal.NewFromInt(int64(outputTokens))).
		Div(million)
	cost, _ := in.Add(out).Float64()
	return cost
}
