package core

import (
	"math"
	"testing"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  Tier
	}{
		{"well above S threshold", 4.8, TierS},
		{"exactly S threshold", 4.2, TierS},
		{"high A", 4.1, TierA},
		{"exactly A threshold", 3.5, TierA},
		{"high B", 3.4, TierB},
		{"exactly B threshold", 2.8, TierB},
		{"just below B", 2.7, TierC},
		{"floor", 1.0, TierC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TierFor(tt.score); got != tt.want {
				t.Errorf("TierFor(%v) = %v, want %v", tt.score, got, tt.want)
			}
		})
	}
}

func TestHypeScoreFor(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{1, 1}, {2, 1},
		{3, 2}, {5, 2},
		{6, 3}, {10, 3},
		{11, 4}, {20, 4},
		{21, 5}, {100, 5},
	}
	for _, tt := range tests {
		if got := HypeScoreFor(tt.size); got != tt.want {
			t.Errorf("HypeScoreFor(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestCompositeScore(t *testing.T) {
	// 5*0.5 + 4*0.3 + 3*0.2 = 4.3, which lands in tier S.
	got := CompositeScore(5, 4, 3)
	if math.Abs(got-4.3) > 1e-9 {
		t.Errorf("CompositeScore(5, 4, 3) = %v, want 4.3", got)
	}
	if tier := TierFor(got); tier != TierS {
		t.Errorf("TierFor(%v) = %v, want S", got, tier)
	}

	// The rank fallback scores (2, 2, 1) must produce 1.9 and tier C.
	got = CompositeScore(2, 2, 1)
	if math.Abs(got-1.9) > 1e-9 {
		t.Errorf("CompositeScore(2, 2, 1) = %v, want 1.9", got)
	}
	if tier := TierFor(got); tier != TierC {
		t.Errorf("TierFor(%v) = %v, want C", got, tier)
	}
}
