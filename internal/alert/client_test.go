package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/solarops-dev/solarops/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"day 15 (net gain 693.75)", "day 15 \\(net gain 693\\.75\\)"},
		{"a-b_c", "a\\-b\\_c"},
	}

	for _, tt := range tests {
		result := escapeMarkdownV2(tt.input)
		if result != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatFlipMessage(t *testing.T) {
	date := time.Date(2026, 4, 16, 0, 0, 0, 0, time.UTC)
	decision := models.Decision{
		ID:                  "d1",
		Recommendation:      models.RecommendClean,
		CleaningDate:        &date,
		AdditionalEnergyKWh: 337.5,
		NetEconomicGain:     693.75,
		WaterUsedLiters:     10000,
		Explanation: models.Explanation{
			Reasons: []string{"cleaning on day 15 recovers 338 kWh over the horizon"},
		},
	}

	msg := formatFlipMessage("Thar One", models.RecommendWait, decision)

	if !strings.Contains(msg, "Thar One") {
		t.Error("Expected site name in message")
	}
	if !strings.Contains(msg, "WAIT") || !strings.Contains(msg, "CLEAN") {
		t.Error("Expected the recommendation transition in message")
	}
	if !strings.Contains(msg, "2026\\-04\\-16") {
		t.Errorf("Expected escaped cleaning date in message, got: %s", msg)
	}
	if strings.Contains(msg, "693.75") {
		t.Error("Expected decimal points escaped for MarkdownV2")
	}
}
