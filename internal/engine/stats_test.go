package engine

import (
	"math"
	"testing"

	"github.com/mailfleet/mailfleet/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScore(t *testing.T) {
	tests := []struct {
		openRate  float64
		clickRate float64
		want      float64
	}{
		{0, 0, 0},
		{1, 1, 1},
		{0.5, 0.2, 0.41},
		{0.3, 0.1, 0.24},
	}

	for _, tt := range tests {
		if got := Score(tt.openRate, tt.clickRate); !almostEqual(got, tt.want) {
			t.Errorf("Score(%v, %v) = %v, want %v", tt.openRate, tt.clickRate, got, tt.want)
		}
	}
}

func TestBuildVariantStats(t *testing.T) {
	s := BuildVariantStats(models.VariantCounts{Sent: 10, Opened: 5, Clicked: 2})

	if !almostEqual(s.OpenRate, 0.5) {
		t.Errorf("open rate = %v, want 0.5", s.OpenRate)
	}
	if !almostEqual(s.ClickRate, 0.2) {
		t.Errorf("click rate = %v, want 0.2", s.ClickRate)
	}
	if !almostEqual(s.Score, 0.41) {
		t.Errorf("score = %v, want 0.41", s.Score)
	}
}

func TestBuildVariantStatsZeroSent(t *testing.T) {
	s := BuildVariantStats(models.VariantCounts{})

	if s.OpenRate != 0 || s.ClickRate != 0 || s.Score != 0 {
		t.Errorf("zero-sent variant should score zero, got %+v", s)
	}
}
