package degradation

import (
	"errors"
	"math"
	"testing"

	"github.com/solarops-dev/solarops/internal/models"
)

func TestModel_EfficiencyLoss(t *testing.T) {
	m := New()

	if loss := m.EfficiencyLoss(1.0, 0); loss != 0 {
		t.Errorf("Expected zero loss at day 0, got %g", loss)
	}

	day10 := m.EfficiencyLoss(1.2, 10)
	day20 := m.EfficiencyLoss(1.2, 20)
	if day10 >= day20 {
		t.Errorf("Expected loss to grow with dust age: day10=%g day20=%g", day10, day20)
	}

	// Very long exposure must saturate at the cap.
	if loss := m.EfficiencyLoss(10.0, 1e7); loss != MaxLossFraction {
		t.Errorf("Expected loss capped at %g, got %g", MaxLossFraction, loss)
	}
}

func TestModel_RecoverableEnergy(t *testing.T) {
	m := New()

	energy, err := m.RecoverableEnergy(Params{
		DustRate:       1.2,
		DaysSinceClean: 30,
		PanelAreaM2:    125000,
		AvgIrradiance:  5.0,
		HorizonDays:    30,
	})
	if err != nil {
		t.Fatalf("RecoverableEnergy failed: %v", err)
	}
	if math.Abs(energy-1350) > 1 {
		t.Errorf("Expected ~1350 kWh recoverable, got %g", energy)
	}
}

func TestModel_RecoverableEnergy_InvalidParams(t *testing.T) {
	m := New()

	cases := []struct {
		name   string
		params Params
	}{
		{"zero area", Params{DustRate: 1, DaysSinceClean: 10, PanelAreaM2: 0, AvgIrradiance: 5, HorizonDays: 30}},
		{"negative dust rate", Params{DustRate: -1, DaysSinceClean: 10, PanelAreaM2: 100, AvgIrradiance: 5, HorizonDays: 30}},
		{"zero horizon", Params{DustRate: 1, DaysSinceClean: 10, PanelAreaM2: 100, AvgIrradiance: 5, HorizonDays: 0}},
		{"negative irradiance", Params{DustRate: 1, DaysSinceClean: 10, PanelAreaM2: 100, AvgIrradiance: -5, HorizonDays: 30}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.RecoverableEnergy(tc.params); !errors.Is(err, models.ErrConfig) {
				t.Errorf("Expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestModel_DailyOutput(t *testing.T) {
	m := New()

	clean := m.DailyOutput(1000, 5, 1.0, 0)
	ideal := m.IdealDailyOutput(1000, 5)
	if clean != ideal {
		t.Errorf("Expected freshly cleaned output to equal ideal: %g vs %g", clean, ideal)
	}

	dusty := m.DailyOutput(1000, 5, 1.0, 100)
	if dusty >= clean {
		t.Errorf("Expected dusty output below clean output: %g vs %g", dusty, clean)
	}
}
