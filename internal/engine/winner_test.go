package engine

import (
	"testing"

	"github.com/mailfleet/mailfleet/internal/models"
)

func TestDetermineWinner(t *testing.T) {
	tests := []struct {
		name   string
		scoreA float64
		scoreB float64
		want   models.ABVariant
	}{
		{"A wins", 0.5, 0.3, models.VariantA},
		{"B wins", 0.2, 0.4, models.VariantB},
		{"tie goes to A", 0.3, 0.3, models.VariantA},
		{"zero engagement goes to A", 0, 0, models.VariantA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := models.VariantStats{Score: tt.scoreA}
			b := models.VariantStats{Score: tt.scoreB}
			if got := DetermineWinner(a, b); got != tt.want {
				t.Errorf("DetermineWinner = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVariantContent(t *testing.T) {
	c := &models.Campaign{
		Subject:     "Original",
		FromName:    "Shop",
		ABSubjectB:  "Alternative",
		ABFromNameB: "",
	}

	subject, fromName := variantContent(c, models.VariantA)
	if subject != "Original" || fromName != "Shop" {
		t.Errorf("variant A = %q/%q", subject, fromName)
	}

	// B overrides the subject but falls back on the unset from-name.
	subject, fromName = variantContent(c, models.VariantB)
	if subject != "Alternative" || fromName != "Shop" {
		t.Errorf("variant B = %q/%q", subject, fromName)
	}

	subject, fromName = variantContent(c, models.VariantNone)
	if subject != "Original" || fromName != "Shop" {
		t.Errorf("direct send = %q/%q", subject, fromName)
	}
}
