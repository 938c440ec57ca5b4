package model

import (
	"math"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestResolvePricing(t *testing.T) {
	tests := []struct {
		model string
		want  Pricing
	}{
		{"gemini-2.5-flash-lite", Pricing{InputPerM: 0.10, OutputPerM: 0.40}},
		{"models/gemini-2.5-flash", Pricing{InputPerM: 0.30, OutputPerM: 2.50}},
		{"gemini-2.5-flash-lite-001", Pricing{InputPerM: 0.10, OutputPerM: 0.40}},
		{"unknown-model", Pricing{}},
	}
	for _, tt := range tests {
		if got := ResolvePricing(tt.model); got != tt.want {
			t.Errorf("ResolvePricing(%q) = %+v, want %+v", tt.model, got, tt.want)
		}
	}
}

func TestComputeCost(t *testing.T) {
	usage := &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}
	in, out, total := ComputeCost(usage, Pricing{InputPerM: 0.10, OutputPerM: 0.40})
	if math.Abs(in-0.10) > 1e-9 || math.Abs(out-0.20) > 1e-9 || math.Abs(total-0.30) > 1e-9 {
		t.Fatalf("unexpected cost in=%v out=%v total=%v", in, out, total)
	}
	if _, _, total := ComputeCost(nil, Pricing{InputPerM: 1}); total != 0 {
		t.Fatalf("nil usage should cost nothing, got %v", total)
	}
}
