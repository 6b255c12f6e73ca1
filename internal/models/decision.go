package models

import (
	"fmt"
	"time"
)

// Recommendation values emitted by the single-site engine and the rain advisor.
const (
	RecommendClean   = "CLEAN"
	RecommendWait    = "WAIT"
	RecommendProceed = "PROCEED"
)

// ScenarioResult is the outcome of evaluating one candidate cleaning day.
// RecoverableEnergyKWh is the additional energy captured over the horizon by
// cleaning on that day versus never cleaning.
type ScenarioResult struct {
	DayOffset            int     `json:"day_offset"`
	RecoverableEnergyKWh float64 `json:"recoverable_energy_kwh"`
	NetBenefit           float64 `json:"net_benefit"`
	CarbonKg             float64 `json:"carbon_kg"`
}

// ConfidenceInterval bounds the projected benefit of a decision. P10 is the
// conservative bound, P90 the optimistic one.
type ConfidenceInterval struct {
	P10Benefit           float64 `json:"p10_benefit"`
	P90Benefit           float64 `json:"p90_benefit"`
	UncertaintySpreadKWh float64 `json:"uncertainty_spread_kwh"`
}

// Explanation carries the concrete drivers behind a recommendation.
type Explanation struct {
	Model             string   `json:"model"`
	Reasons           []string `json:"reasons"`
	OptimizationScore float64  `json:"optimization_score"`
}

// Decision is the terminal output of the single-site engine. It is a pure
// function of its inputs and is never mutated after creation.
type Decision struct {
	ID                        string             `json:"id"`
	Recommendation            string             `json:"recommendation"`
	CleaningDate              *time.Time         `json:"cleaning_date"`
	TotalOutputGainPercent    float64            `json:"total_output_gain_percent"`
	RecoverableCapturePercent float64            `json:"recoverable_capture_percent"`
	AdditionalEnergyKWh       float64            `json:"additional_energy_kwh"`
	CarbonSavedKg             float64            `json:"carbon_saved_kg"`
	NetEconomicGain           float64            `json:"net_economic_gain"`
	WaterUsedLiters           float64            `json:"water_used_liters"`
	SSESScore                 float64            `json:"sses_score"`
	Explanation               Explanation        `json:"explanation"`
	Confidence                ConfidenceInterval `json:"confidence_interval"`
	// Partial is set when a request deadline truncated the horizon scan and
	// the decision reflects the best candidate found so far.
	Partial     bool      `json:"partial_result,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Validate checks decision invariants before the record is persisted.
func (d *Decision) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: decision id must not be empty", ErrConfig)
	}
	if d.Recommendation != RecommendClean && d.Recommendation != RecommendWait {
		return fmt.Errorf("%w: recommendation must be CLEAN or WAIT", ErrConfig)
	}
	if d.Recommendation == RecommendClean && d.CleaningDate == nil {
		return fmt.Errorf("%w: CLEAN decision requires a cleaning date", ErrConfig)
	}
	if d.SSESScore < 0 || d.SSESScore > 100 {
		return fmt.Errorf("%w: sses_score must be within [0, 100]", ErrConfig)
	}
	if d.WaterUsedLiters < 0 {
		return fmt.Errorf("%w: water_used_liters must be >= 0", ErrConfig)
	}
	return nil
}

// RainAdvice is the rain advisor's verdict on deferring a planned clean.
type RainAdvice struct {
	Decision              string  `json:"decision"`
	RainForecastMM        float64 `json:"rain_forecast_mm"`
	DustReductionEstimate float64 `json:"dust_reduction_estimate"`
	WaterSavedLiters      float64 `json:"water_saved_liters"`
	SustainabilityBoost   float64 `json:"sustainability_boost"`
	Message               string  `json:"message"`
}

// ShouldWait reports whether the advice defers cleaning to upcoming rain.
func (a RainAdvice) ShouldWait() bool {
	return a.Decision == RecommendWait
}
