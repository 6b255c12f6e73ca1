// Package scenario searches a discrete day horizon for the best cleaning date.
//
// For each candidate day d the simulator compares the horizon's cumulative
// output with a clean on day d (degraded output before d, restored output
// after) against the never-clean baseline, nets out the fixed cleaning cost,
// and selects the candidate maximizing the active objective. The objective is
// financial-only or blended with carbon value according to the caller's
// carbon weight. The sweep over day-indexed net value is a single bounded
// forward pass, not a general dynamic program over arbitrary state.
package scenario

import (
	"context"
	"fmt"

	"github.com/solarops-dev/solarops/internal/degradation"
	"github.com/solarops-dev/solarops/internal/models"
)

// CarbonShadowPriceKg is the internal shadow price applied to CO2 offset when
// the carbon weight is non-zero.
const CarbonShadowPriceKg = 75.0

// Simulator evaluates cleaning scenarios against a degradation model.
type Simulator struct {
	model degradation.Model
}

// New returns a Simulator backed by the given model.
func New(model degradation.Model) Simulator {
	return Simulator{model: model}
}

// Inputs describes one horizon search. Samples must cover at least
// HorizonDays entries, ordered by date ascending. Dust is assumed fully
// washed at day zero; DustRate controls how quickly it re-accumulates.
type Inputs struct {
	Samples          []models.EnvironmentSample
	PanelAreaM2      float64
	DustRate         float64
	ElectricityPrice float64
	CleaningCost     float64
	// CarbonWeight in [0,1] blends normalized carbon value into the
	// objective; 0 means financial-only.
	CarbonWeight float64
	HorizonDays  int
}

func (in Inputs) validate() error {
	if in.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon_days must be > 0, got %d", models.ErrConfig, in.HorizonDays)
	}
	if len(in.Samples) < in.HorizonDays {
		return fmt.Errorf("%w: need %d environment samples, got %d", models.ErrConfig, in.HorizonDays, len(in.Samples))
	}
	if in.PanelAreaM2 <= 0 {
		return fmt.Errorf("%w: panel_area_m2 must be > 0, got %g", models.ErrConfig, in.PanelAreaM2)
	}
	if in.DustRate < 0 {
		return fmt.Errorf("%w: dust_rate must be >= 0, got %g", models.ErrConfig, in.DustRate)
	}
	if in.ElectricityPrice <= 0 {
		return fmt.Errorf("%w: electricity_price must be > 0, got %g", models.ErrConfig, in.ElectricityPrice)
	}
	if in.CleaningCost < 0 {
		return fmt.Errorf("%w: cleaning_cost must be >= 0, got %g", models.ErrConfig, in.CleaningCost)
	}
	if in.CarbonWeight < 0 || in.CarbonWeight > 1 {
		return fmt.Errorf("%w: carbon_weight must be within [0, 1], got %g", models.ErrConfig, in.CarbonWeight)
	}
	return nil
}

// Outcome is the result of one horizon search.
type Outcome struct {
	// Results holds one entry per evaluated candidate day, in day order.
	Results []models.ScenarioResult
	// Best is the candidate maximizing the blended objective.
	Best models.ScenarioResult
	// BestScore is the blended normalized score of Best.
	BestScore float64
	// BaselineEnergyKWh is the never-clean total output over the horizon.
	BaselineEnergyKWh float64
	// BaselineRecoverableKWh is the total loss versus ideal output when
	// never cleaning; the denominator for recoverable capture.
	BaselineRecoverableKWh float64
	// Partial reports that the request deadline truncated the scan and
	// Best is only the best candidate seen so far.
	Partial bool
}

// Search evaluates every candidate cleaning day in [0, horizon) and returns
// the best one under the active weighting. A context deadline truncates the
// scan; the outcome is then tagged partial instead of blocking to completion.
func (s Simulator) Search(ctx context.Context, in Inputs) (Outcome, error) {
	if err := in.validate(); err != nil {
		return Outcome{}, err
	}

	horizon := in.HorizonDays
	samples := in.Samples[:horizon]

	var out Outcome
	baselineByDay := make([]float64, horizon)
	for day, sample := range samples {
		baselineByDay[day] = s.model.DailyOutput(in.PanelAreaM2, sample.IrradianceKWhM2, in.DustRate, float64(day))
		out.BaselineEnergyKWh += baselineByDay[day]
		out.BaselineRecoverableKWh += s.model.IdealDailyOutput(in.PanelAreaM2, sample.IrradianceKWhM2) - baselineByDay[day]
	}

	out.Results = make([]models.ScenarioResult, 0, horizon)
	for d := 0; d < horizon; d++ {
		if err := ctx.Err(); err != nil {
			out.Partial = true
			break
		}

		// Output before day d matches the baseline; only the restored
		// tail differs.
		var additional float64
		for day := d; day < horizon; day++ {
			restored := s.model.DailyOutput(in.PanelAreaM2, samples[day].IrradianceKWhM2, in.DustRate, float64(day-d))
			additional += restored - baselineByDay[day]
		}

		out.Results = append(out.Results, models.ScenarioResult{
			DayOffset:            d,
			RecoverableEnergyKWh: additional,
			NetBenefit:           additional*in.ElectricityPrice - in.CleaningCost,
			CarbonKg:             additional * degradation.CarbonFactorKgPerKWh,
		})
	}

	if len(out.Results) == 0 {
		return Outcome{}, fmt.Errorf("%w: horizon scan produced no candidates before deadline", models.ErrConfig)
	}

	out.Best, out.BestScore = selectBest(out.Results, in.CarbonWeight)
	return out, nil
}

// selectBest picks the candidate maximizing the blended objective
// score = w*normalized_carbon + (1-w)*normalized_financial. Each dimension is
// normalized by its maximum magnitude across candidates so the weights
// compare like with like. Ties resolve to the earlier day.
func selectBest(results []models.ScenarioResult, carbonWeight float64) (models.ScenarioResult, float64) {
	var maxNet, maxCarbon float64
	for _, r := range results {
		if abs(r.NetBenefit) > maxNet {
			maxNet = abs(r.NetBenefit)
		}
		if abs(r.CarbonKg) > maxCarbon {
			maxCarbon = abs(r.CarbonKg)
		}
	}

	best := results[0]
	bestScore := blendedScore(results[0], carbonWeight, maxNet, maxCarbon)
	for _, r := range results[1:] {
		score := blendedScore(r, carbonWeight, maxNet, maxCarbon)
		if score > bestScore {
			best = r
			bestScore = score
		}
	}
	return best, bestScore
}

func blendedScore(r models.ScenarioResult, w, maxNet, maxCarbon float64) float64 {
	var financial, carbon float64
	if maxNet > 0 {
		financial = r.NetBenefit / maxNet
	}
	if maxCarbon > 0 {
		carbon = r.CarbonKg / maxCarbon
	}
	return w*carbon + (1-w)*financial
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
