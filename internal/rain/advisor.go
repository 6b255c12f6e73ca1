// Package rain decides whether imminent precipitation should defer a
// scheduled panel wash.
package rain

import (
	"fmt"
	"math"

	"github.com/solarops-dev/solarops/internal/models"
)

const (
	// WashThresholdMM is the cumulative precipitation over the lookahead
	// window at or above which a natural wash is expected.
	WashThresholdMM = 2.0

	// LookaheadDays is the forecast window checked for a natural wash.
	LookaheadDays = 2

	// dustReductionPerMM scales rainfall into an estimated fractional dust
	// reduction, capped at dustReductionCap.
	dustReductionPerMM = 0.4
	dustReductionCap   = 0.95
)

// Inputs carries the forecast and the water stakes of the planned clean.
type Inputs struct {
	// Forecast holds daily environment samples starting today; only the
	// first LookaheadDays entries are consulted.
	Forecast []models.EnvironmentSample
	// PlannedVolumeL is the water a manual clean would consume.
	PlannedVolumeL float64
	// WaterUnitCost is the currency cost per liter, used for messaging.
	WaterUnitCost float64
}

// Advise returns WAIT when the near-term forecast promises enough rain to
// wash the panels naturally, PROCEED otherwise. A missing or too-short
// forecast yields ErrForecastUnavailable so the caller can apply its own
// fail-safe.
func Advise(in Inputs) (models.RainAdvice, error) {
	if len(in.Forecast) < LookaheadDays {
		return models.RainAdvice{}, fmt.Errorf("%w: need %d forecast days, got %d",
			models.ErrForecastUnavailable, LookaheadDays, len(in.Forecast))
	}
	if in.PlannedVolumeL < 0 {
		return models.RainAdvice{}, fmt.Errorf("%w: planned_volume_liters must be >= 0, got %g",
			models.ErrConfig, in.PlannedVolumeL)
	}

	var totalMM float64
	for _, sample := range in.Forecast[:LookaheadDays] {
		mm := sample.PrecipitationMM
		if mm < 0 || math.IsNaN(mm) {
			return models.RainAdvice{}, fmt.Errorf("%w: invalid precipitation value %g",
				models.ErrForecastUnavailable, mm)
		}
		totalMM += mm
	}

	if totalMM < WashThresholdMM {
		return models.RainAdvice{
			Decision:       models.RecommendProceed,
			RainForecastMM: totalMM,
			Message: fmt.Sprintf("only %.1f mm of rain expected in the next %d days, proceed with manual cleaning",
				totalMM, LookaheadDays),
		}, nil
	}

	reduction := math.Min(dustReductionPerMM*totalMM, dustReductionCap)
	return models.RainAdvice{
		Decision:              models.RecommendWait,
		RainForecastMM:        totalMM,
		DustReductionEstimate: reduction,
		WaterSavedLiters:      in.PlannedVolumeL,
		SustainabilityBoost:   reduction * 100,
		Message: fmt.Sprintf("%.1f mm of rain expected in the next %d days, deferring saves %.0f liters of water",
			totalMM, LookaheadDays, in.PlannedVolumeL),
	}, nil
}
