// Package degradation converts farm physical parameters and elapsed dust-days
// into an energy-recoverable estimate.
//
// The model is a deliberately simple, monotonic surrogate for soiling physics:
// efficiency loss grows linearly with dust-rate-weighted days since the last
// clean, clamped to a maximum, and recoverable energy scales that loss by
// panel area, irradiance, and nominal panel efficiency. It is not a full PV
// simulation.
package degradation

import (
	"fmt"
	"math"

	"github.com/solarops-dev/solarops/internal/models"
)

// Frozen surrogate constants. LossCoefficient is empirical, calibrated so that
// utility-scale farms with kWh tariffs produce net-negative early cleans over
// a 30-day horizon.
const (
	// PanelEfficiency is the nominal datasheet conversion efficiency.
	PanelEfficiency = 0.20
	// LossCoefficient is the efficiency loss fraction accrued per
	// dust-rate unit per day since the last clean.
	LossCoefficient = 1e-5
	// MaxLossFraction caps dust-driven efficiency loss.
	MaxLossFraction = 0.30
	// CarbonFactorKgPerKWh converts displaced grid energy to CO2 offset.
	CarbonFactorKgPerKWh = 0.7
)

// Model evaluates the dust degradation surrogate. The zero value is not
// usable; construct with New.
type Model struct {
	lossCoefficient float64
	maxLoss         float64
	panelEfficiency float64
}

// New returns a Model with the frozen surrogate constants.
func New() Model {
	return Model{
		lossCoefficient: LossCoefficient,
		maxLoss:         MaxLossFraction,
		panelEfficiency: PanelEfficiency,
	}
}

// Params describes one recoverable-energy evaluation.
type Params struct {
	DustRate       float64
	DaysSinceClean float64
	PanelAreaM2    float64
	// AvgIrradiance is the mean daily irradiance in kWh/m²/day.
	AvgIrradiance float64
	HorizonDays   int
}

func (p Params) validate() error {
	if p.PanelAreaM2 <= 0 {
		return fmt.Errorf("%w: panel_area_m2 must be > 0, got %g", models.ErrConfig, p.PanelAreaM2)
	}
	if p.DustRate < 0 || math.IsNaN(p.DustRate) {
		return fmt.Errorf("%w: dust_rate must be >= 0, got %g", models.ErrConfig, p.DustRate)
	}
	if p.DaysSinceClean < 0 {
		return fmt.Errorf("%w: days_since_clean must be >= 0, got %g", models.ErrConfig, p.DaysSinceClean)
	}
	if p.AvgIrradiance < 0 {
		return fmt.Errorf("%w: avg_irradiance must be >= 0, got %g", models.ErrConfig, p.AvgIrradiance)
	}
	if p.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon_days must be > 0, got %d", models.ErrConfig, p.HorizonDays)
	}
	return nil
}

// EfficiencyLoss returns the dust-driven efficiency loss fraction after
// daysSinceClean days at the given dust rate, clamped to [0, MaxLossFraction).
func (m Model) EfficiencyLoss(dustRate, daysSinceClean float64) float64 {
	loss := dustRate * daysSinceClean * m.lossCoefficient
	if loss < 0 {
		return 0
	}
	if loss > m.maxLoss {
		return m.maxLoss
	}
	return loss
}

// RecoverableEnergy estimates the energy, in kWh, that one clean would
// recover over the horizon given the accumulated dust level. A dust rate of
// zero yields zero, which downstream treats as a trivial WAIT.
func (m Model) RecoverableEnergy(p Params) (float64, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}
	loss := m.EfficiencyLoss(p.DustRate, p.DaysSinceClean)
	return p.PanelAreaM2 * p.AvgIrradiance * m.panelEfficiency * loss * float64(p.HorizonDays), nil
}

// DailyOutput returns one day of energy production, in kWh, for panels whose
// dust has accumulated for dustAgeDays at the given rate.
func (m Model) DailyOutput(panelAreaM2, irradianceKWhM2, dustRate, dustAgeDays float64) float64 {
	loss := m.EfficiencyLoss(dustRate, dustAgeDays)
	return panelAreaM2 * irradianceKWhM2 * m.panelEfficiency * (1 - loss)
}

// IdealDailyOutput returns one day of production for perfectly clean panels.
func (m Model) IdealDailyOutput(panelAreaM2, irradianceKWhM2 float64) float64 {
	return panelAreaM2 * irradianceKWhM2 * m.panelEfficiency
}
