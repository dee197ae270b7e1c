package provider

import "testing"

func TestPricingCost(t *testing.T) {
	tests := []struct {
		name    string
		pricing Pricing
		in, out int
		want    float64
	}{
		{"zero tokens", Pricing{InputPerMillion: 15, OutputPerMillion: 75}, 0, 0, 0},
		{"input only", Pricing{InputPerMillion: 15, OutputPerMillion: 75}, 1_000_000, 0, 15},
		{"output only", Pricing{InputPerMillion: 15, OutputPerMillion: 75}, 0, 1_000_000, 75},
		{"mixed", Pricing{InputPerMillion: 3, OutputPerMillion: 15}, 500_000, 100_000, 3.0},
		{"small call stays exact", Pricing{InputPerMillion: 0.15, OutputPerMillion: 0.60}, 1000, 500, 0.00045},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pricing.Cost(tt.in, tt.out)
			if got != tt.want {
				t.Fatalf("Cost(%d, %d) = %v, want %v", tt.in, tt.out, got, tt.want)
			}
		})
	}
}

func TestPricingZeroRates(t *testing.T) {
	var p Pricing
	if got := p.Cost(123456, 654321); got != 0 {
		t.Fatalf("unpriced provider should cost 0, got %v", got)
	}
}
