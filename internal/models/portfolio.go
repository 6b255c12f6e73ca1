package models

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the closed set of portfolio objectives. Adding a mode means adding
// a constant here and a priority case in the optimizer; there is no
// string-keyed branching anywhere else.
type Mode int

const (
	// ModeProfit maximizes net economic benefit.
	ModeProfit Mode = iota
	// ModeCarbon maximizes CO2 offset.
	ModeCarbon
	// ModeWaterScarcity maximizes energy recovered per liter of water.
	ModeWaterScarcity
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeProfit:
		return "PROFIT"
	case ModeCarbon:
		return "CARBON"
	case ModeWaterScarcity:
		return "WATER_SCARCITY"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a wire name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PROFIT":
		return ModeProfit, nil
	case "CARBON":
		return ModeCarbon, nil
	case "WATER_SCARCITY":
		return ModeWaterScarcity, nil
	default:
		return 0, fmt.Errorf("%w: mode must be one of PROFIT|CARBON|WATER_SCARCITY, got %q", ErrConfig, s)
	}
}

// PortfolioSelection is the terminal output of the portfolio optimizer.
// SelectedFarmIDs preserves priority order and contains no duplicates.
type PortfolioSelection struct {
	ID                   string    `json:"id"`
	Mode                 string    `json:"mode"`
	SelectedFarmIDs      []string  `json:"selected_farm_ids"`
	WaterUsed            float64   `json:"water_used"`
	TotalEnergyRecovered float64   `json:"total_energy_recovered"`
	TotalCO2Saved        float64   `json:"total_co2_saved"`
	TotalBenefit         float64   `json:"total_benefit"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// Validate checks selection invariants before the record is persisted.
func (p *PortfolioSelection) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: selection id must not be empty", ErrConfig)
	}
	if p.WaterUsed < 0 {
		return fmt.Errorf("%w: water_used must be >= 0", ErrConfig)
	}
	seen := make(map[string]bool, len(p.SelectedFarmIDs))
	for _, id := range p.SelectedFarmIDs {
		if id == "" {
			return fmt.Errorf("%w: selected farm id must not be empty", ErrConfig)
		}
		if seen[id] {
			return fmt.Errorf("%w: selected farm id %s appears twice", ErrConfig, id)
		}
		seen[id] = true
	}
	return nil
}
