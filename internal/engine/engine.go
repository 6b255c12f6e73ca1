// Package engine runs the per-site cleaning analysis as an explicit state
// machine: rain check first, then the horizon scenario search, then scoring
// and confidence estimation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/solarops-dev/solarops/internal/degradation"
	"github.com/solarops-dev/solarops/internal/logger"
	"github.com/solarops-dev/solarops/internal/models"
	"github.com/solarops-dev/solarops/internal/rain"
	"github.com/solarops-dev/solarops/internal/scenario"
)

// State identifies a stage of the analysis pipeline.
type State int

const (
	StateAnalyzing State = iota
	StateRainCheck
	StateWaitTerminal
	StateScenarioSearch
	StateDecisionTerminal
)

func (s State) String() string {
	switch s {
	case StateAnalyzing:
		return "ANALYZING"
	case StateRainCheck:
		return "RAIN_CHECK"
	case StateWaitTerminal:
		return "WAIT_TERMINAL"
	case StateScenarioSearch:
		return "SCENARIO_SEARCH"
	case StateDecisionTerminal:
		return "DECISION_TERMINAL"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// SquareMetersPerMW converts nameplate capacity to panel area.
const SquareMetersPerMW = 5000.0

// uncertaintyShift is the fractional shift applied to irradiance and dust
// rate for the low/high confidence re-runs.
const uncertaintyShift = 0.10

// Request is one site analysis. PanelAreaM2 wins when both it and
// PlantCapacityMW are set; otherwise capacity is scaled by SquareMetersPerMW.
type Request struct {
	SiteID           string
	Latitude         float64
	Longitude        float64
	PlantCapacityMW  float64
	PanelAreaM2      float64
	DustRate         float64
	ElectricityPrice float64
	CleaningCost     float64
	CarbonWeight     float64
	HorizonDays      int
	// WaterUsageLiters is the volume one clean of this site consumes.
	WaterUsageLiters float64
	WaterUnitCost    float64
	// Samples is the daily environment series covering the horizon,
	// starting today.
	Samples []models.EnvironmentSample
}

func (r Request) panelArea() float64 {
	if r.PanelAreaM2 > 0 {
		return r.PanelAreaM2
	}
	return r.PlantCapacityMW * SquareMetersPerMW
}

func (r Request) validate() error {
	if r.panelArea() <= 0 {
		return fmt.Errorf("%w: panel area unset, need panel_area_m2 or plant_capacity_mw", models.ErrConfig)
	}
	if r.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon_days must be > 0, got %d", models.ErrConfig, r.HorizonDays)
	}
	if r.CarbonWeight < 0 || r.CarbonWeight > 1 {
		return fmt.Errorf("%w: carbon_weight must be within [0, 1], got %g", models.ErrConfig, r.CarbonWeight)
	}
	if len(r.Samples) < r.HorizonDays {
		return fmt.Errorf("%w: need %d environment samples, got %d", models.ErrConfig, r.HorizonDays, len(r.Samples))
	}
	return nil
}

// Engine owns the degradation model and scenario simulator for a process.
type Engine struct {
	model degradation.Model
	sim   scenario.Simulator
}

// New returns an Engine with a fresh model.
func New() Engine {
	model := degradation.New()
	return Engine{model: model, sim: scenario.New(model)}
}

// Analyze runs the full pipeline and returns a terminal decision.
// An unavailable rain forecast is logged and treated as "no wash expected";
// the analysis proceeds rather than failing.
func (e Engine) Analyze(ctx context.Context, req Request) (models.Decision, error) {
	if err := req.validate(); err != nil {
		return models.Decision{}, err
	}

	reasons := make([]string, 0, 4)

	state := StateRainCheck
	advice, err := rain.Advise(rain.Inputs{
		Forecast:       req.Samples,
		PlannedVolumeL: req.WaterUsageLiters,
		WaterUnitCost:  req.WaterUnitCost,
	})
	switch {
	case err == nil && advice.ShouldWait():
		state = StateWaitTerminal
		logger.Info("site %s: %s -> WAIT, %.1f mm rain in window", req.SiteID, state, advice.RainForecastMM)
		return e.waitDecision(req, advice), nil
	case errors.Is(err, models.ErrForecastUnavailable):
		// Fail safe: no forecast never blocks a clean.
		logger.Warn("site %s: rain forecast unavailable, proceeding without wash check: %v", req.SiteID, err)
		reasons = append(reasons, "rain forecast unavailable, proceeding without natural wash check")
	case err != nil:
		return models.Decision{}, err
	default:
		reasons = append(reasons, fmt.Sprintf("only %.1f mm rain expected in %d days, no natural wash",
			advice.RainForecastMM, rain.LookaheadDays))
	}

	state = StateScenarioSearch
	logger.Debug("site %s: %s over %d day horizon", req.SiteID, state, req.HorizonDays)
	outcome, err := e.sim.Search(ctx, scenario.Inputs{
		Samples:          req.Samples,
		PanelAreaM2:      req.panelArea(),
		DustRate:         req.DustRate,
		ElectricityPrice: req.ElectricityPrice,
		CleaningCost:     req.CleaningCost,
		CarbonWeight:     req.CarbonWeight,
		HorizonDays:      req.HorizonDays,
	})
	if err != nil {
		return models.Decision{}, err
	}

	state = StateDecisionTerminal
	best := outcome.Best
	netGain := best.NetBenefit + req.CarbonWeight*best.CarbonKg*scenario.CarbonShadowPriceKg

	if netGain <= 0 {
		reasons = append(reasons, fmt.Sprintf("best candidate (day %d) nets %.0f after cleaning cost, cleaning not worthwhile this horizon",
			best.DayOffset, netGain))
		d := e.baseDecision(req, outcome, reasons)
		d.Recommendation = models.RecommendWait
		d.SSESScore = e.sustainabilityScore(req, best, netGain)
		d.Confidence = e.confidence(ctx, req, best)
		logger.Info("site %s: %s -> WAIT, net gain %.0f", req.SiteID, state, netGain)
		return d, nil
	}

	cleanDate := startOfDay(req.Samples[0].Date).AddDate(0, 0, best.DayOffset)
	reasons = append(reasons,
		fmt.Sprintf("cleaning on day %d recovers %.0f kWh over the horizon", best.DayOffset, best.RecoverableEnergyKWh),
		fmt.Sprintf("net economic gain %.0f after cleaning cost %.0f", netGain, req.CleaningCost))
	if req.CarbonWeight > 0 {
		reasons = append(reasons, fmt.Sprintf("avoids %.0f kg CO2 at carbon weight %.2f", best.CarbonKg, req.CarbonWeight))
	}

	d := e.baseDecision(req, outcome, reasons)
	d.Recommendation = models.RecommendClean
	d.CleaningDate = &cleanDate
	d.AdditionalEnergyKWh = best.RecoverableEnergyKWh
	d.CarbonSavedKg = best.CarbonKg
	d.NetEconomicGain = netGain
	d.WaterUsedLiters = req.WaterUsageLiters
	if outcome.BaselineEnergyKWh > 0 {
		d.TotalOutputGainPercent = 100 * best.RecoverableEnergyKWh / outcome.BaselineEnergyKWh
	}
	if outcome.BaselineRecoverableKWh > 0 {
		d.RecoverableCapturePercent = 100 * best.RecoverableEnergyKWh / outcome.BaselineRecoverableKWh
	}
	d.SSESScore = e.sustainabilityScore(req, best, netGain)
	d.Confidence = e.confidence(ctx, req, best)

	logger.Info("site %s: %s -> CLEAN day %d, net gain %.0f, sses %.0f",
		req.SiteID, state, best.DayOffset, netGain, d.SSESScore)
	return d, nil
}

func (e Engine) baseDecision(req Request, outcome scenario.Outcome, reasons []string) models.Decision {
	return models.Decision{
		ID:          uuid.NewString(),
		Partial:     outcome.Partial,
		GeneratedAt: time.Now().UTC(),
		Explanation: models.Explanation{
			Model:             "degradation-surrogate-v1",
			Reasons:           reasons,
			OptimizationScore: outcome.BestScore,
		},
	}
}

func (e Engine) waitDecision(req Request, advice models.RainAdvice) models.Decision {
	return models.Decision{
		ID:             uuid.NewString(),
		Recommendation: models.RecommendWait,
		GeneratedAt:    time.Now().UTC(),
		SSESScore:      50 + advice.SustainabilityBoost/2,
		Explanation: models.Explanation{
			Model: "rain-advisor-v1",
			Reasons: []string{
				advice.Message,
				fmt.Sprintf("expected dust reduction %.0f%% from rainfall", advice.DustReductionEstimate*100),
			},
		},
	}
}

// sustainabilityScore maps the decision onto a 0..100 scale that rewards
// recovered energy and carbon offset and penalizes water and cleaning spend.
func (e Engine) sustainabilityScore(req Request, best models.ScenarioResult, netGain float64) float64 {
	normEnergy := clamp(best.RecoverableEnergyKWh/10000, -1, 1)
	normCarbon := clamp(best.CarbonKg/7000, -1, 1)
	normWater := clamp(req.WaterUsageLiters/50000, 0, 1)
	normCost := clamp(req.CleaningCost/50000, 0, 1)

	w := req.CarbonWeight
	score := 50 + 50*((1-w)*normEnergy+w*normCarbon-0.1*normWater-0.1*normCost)
	return clamp(score, 0, 100)
}

// confidence re-runs the search with irradiance and dust shifted down and up
// by uncertaintyShift and reports the benefit spread as a crude interval.
func (e Engine) confidence(ctx context.Context, req Request, best models.ScenarioResult) models.ConfidenceInterval {
	low, okLow := e.shiftedBenefit(ctx, req, 1-uncertaintyShift)
	high, okHigh := e.shiftedBenefit(ctx, req, 1+uncertaintyShift)
	if !okLow || !okHigh {
		return models.ConfidenceInterval{P10Benefit: best.NetBenefit, P90Benefit: best.NetBenefit}
	}
	if low.NetBenefit > high.NetBenefit {
		low, high = high, low
	}
	return models.ConfidenceInterval{
		P10Benefit:           low.NetBenefit,
		P90Benefit:           high.NetBenefit,
		UncertaintySpreadKWh: math.Abs(high.RecoverableEnergyKWh - low.RecoverableEnergyKWh),
	}
}

func (e Engine) shiftedBenefit(ctx context.Context, req Request, factor float64) (models.ScenarioResult, bool) {
	shifted := make([]models.EnvironmentSample, len(req.Samples))
	for i, s := range req.Samples {
		s.IrradianceKWhM2 *= factor
		shifted[i] = s
	}
	outcome, err := e.sim.Search(ctx, scenario.Inputs{
		Samples:          shifted,
		PanelAreaM2:      req.panelArea(),
		DustRate:         req.DustRate * factor,
		ElectricityPrice: req.ElectricityPrice,
		CleaningCost:     req.CleaningCost,
		CarbonWeight:     req.CarbonWeight,
		HorizonDays:      req.HorizonDays,
	})
	if err != nil {
		logger.Debug("site %s: confidence re-run at factor %.2f failed: %v", req.SiteID, factor, err)
		return models.ScenarioResult{}, false
	}
	return outcome.Best, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
