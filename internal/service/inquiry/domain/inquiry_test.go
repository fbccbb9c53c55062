package domain

import "testing"

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		score int
		want  Priority
	}{
		{-1, PriorityLow}, {0, PriorityLow}, {1, PriorityLow},
		{2, PriorityMedium}, {4, PriorityMedium},
		{5, PriorityHigh}, {9, PriorityHigh},
	}
	for _, tt := range tests {
		if got := PriorityFor(tt.score); got != tt.want {
			t.Errorf("PriorityFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestVIPLevel(t *testing.T) {
	tests := []struct {
		total int64
		want  int
	}{
		{0, 0}, {999_999, 0}, {1_000_000, 1}, {2_999_999, 1},
		{3_000_000, 2}, {4_999_999, 2}, {5_000_000, 3}, {200_000_000, 3},
	}
	for _, tt := range tests {
		if got := VIPLevel(tt.total); got != tt.want {
			t.Errorf("VIPLevel(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}
