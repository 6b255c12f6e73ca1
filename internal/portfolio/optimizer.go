// Package portfolio allocates a shared water budget across farms.
//
// Each farm is reduced through the degradation model at a fixed baseline
// dust age into a (water, energy, benefit, co2) tuple, ranked by the active
// mode's priority, and selected under the budget. The default strategy is the
// greedy priority scan; an exact bounded-knapsack variant over whole-liter
// units is available for small portfolios.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/solarops-dev/solarops/internal/degradation"
	"github.com/solarops-dev/solarops/internal/models"
)

// Strategy selects farms under the water budget.
type Strategy int

const (
	// StrategyGreedy adds farms in priority order until one no longer
	// fits. Cheap and usually near-optimal, and budget-monotone.
	StrategyGreedy Strategy = iota
	// StrategyExactDP solves the 0/1 knapsack over whole-liter water
	// units. Optimal, but bounded to small portfolios.
	StrategyExactDP
)

const (
	// BaselineDustAgeDays is the dust age every farm is evaluated at so
	// portfolios compare farms on equal footing.
	BaselineDustAgeDays = 30

	// maxExactFarms bounds the DP strategy; beyond this the liter-grid
	// table gets too large to justify over greedy.
	maxExactFarms = 64

	// maxExactCapacityUnits caps the width of the DP table. Budgets above
	// it are discretized with a proportionally coarser unit.
	maxExactCapacityUnits = 100000
)

// Evaluation is one farm reduced to portfolio terms.
type Evaluation struct {
	Farm         models.Farm
	WaterLiters  float64
	EnergyKWh    float64
	NetBenefit   float64
	CO2OffsetKg  float64
	priority     float64
	infinitePrio bool
}

// Optimizer scores and selects farms.
type Optimizer struct {
	model degradation.Model
	// AvgIrradiance is the flat irradiance assumption used for baseline
	// evaluation, kWh/m2/day.
	AvgIrradiance float64
	// WaterUnitCost nets water spend out of the PROFIT benefit.
	WaterUnitCost float64
	Strategy      Strategy
}

// New returns an Optimizer with the given ambient assumptions and the greedy
// strategy.
func New(avgIrradiance, waterUnitCost float64) Optimizer {
	return Optimizer{
		model:         degradation.New(),
		AvgIrradiance: avgIrradiance,
		WaterUnitCost: waterUnitCost,
	}
}

// Optimize evaluates every farm at the baseline dust age and selects a
// subset under waterBudget according to mode. An empty farm list yields an
// empty selection with zero totals.
func (o Optimizer) Optimize(ctx context.Context, farms []models.Farm, waterBudget float64, mode models.Mode) (models.PortfolioSelection, error) {
	if waterBudget < 0 {
		return models.PortfolioSelection{}, fmt.Errorf("%w: water_budget must be >= 0, got %g", models.ErrConfig, waterBudget)
	}
	switch mode {
	case models.ModeProfit, models.ModeCarbon, models.ModeWaterScarcity:
	default:
		return models.PortfolioSelection{}, fmt.Errorf("%w: unknown mode %v", models.ErrConfig, mode)
	}
	seen := make(map[string]bool, len(farms))
	for i := range farms {
		if err := farms[i].Validate(); err != nil {
			return models.PortfolioSelection{}, err
		}
		if seen[farms[i].ID] {
			return models.PortfolioSelection{}, fmt.Errorf("%w: duplicate farm id %q", models.ErrConfig, farms[i].ID)
		}
		seen[farms[i].ID] = true
	}

	evals, err := o.evaluate(ctx, farms, mode)
	if err != nil {
		return models.PortfolioSelection{}, err
	}

	sortByPriority(evals)

	// Zero-water farms cost nothing and never hurt the objective, so they
	// bypass the budget strategy entirely and are always selected.
	paid := make([]Evaluation, 0, len(evals))
	for _, ev := range evals {
		if ev.WaterLiters > 0 {
			paid = append(paid, ev)
		}
	}

	var chosen []Evaluation
	if o.Strategy == StrategyExactDP && len(paid) > 0 && len(paid) <= maxExactFarms {
		chosen = selectExact(paid, waterBudget)
	} else {
		chosen = selectGreedy(paid, waterBudget)
	}

	chosenIDs := make(map[string]bool, len(chosen))
	for _, ev := range chosen {
		chosenIDs[ev.Farm.ID] = true
	}

	// Emit in priority order: free farms plus whatever the strategy chose.
	selected := make([]Evaluation, 0, len(evals))
	for _, ev := range evals {
		if ev.WaterLiters == 0 || chosenIDs[ev.Farm.ID] {
			selected = append(selected, ev)
		}
	}

	sel := models.PortfolioSelection{
		ID:              uuid.NewString(),
		Mode:            mode.String(),
		SelectedFarmIDs: make([]string, 0, len(selected)),
		GeneratedAt:     time.Now().UTC(),
	}
	for _, ev := range selected {
		sel.SelectedFarmIDs = append(sel.SelectedFarmIDs, ev.Farm.ID)
		sel.WaterUsed += ev.WaterLiters
		sel.TotalEnergyRecovered += ev.EnergyKWh
		sel.TotalCO2Saved += ev.CO2OffsetKg
		sel.TotalBenefit += ev.NetBenefit
	}
	return sel, nil
}

// evaluate runs the per-farm physics in parallel; the reduction is
// independent per farm, only the later sort-and-select needs a total order.
func (o Optimizer) evaluate(ctx context.Context, farms []models.Farm, mode models.Mode) ([]Evaluation, error) {
	evals := make([]Evaluation, len(farms))
	g, ctx := errgroup.WithContext(ctx)
	for i := range farms {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev, err := o.evaluateOne(farms[i], mode)
			if err != nil {
				return err
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return evals, nil
}

func (o Optimizer) evaluateOne(farm models.Farm, mode models.Mode) (Evaluation, error) {
	energy, err := o.model.RecoverableEnergy(degradation.Params{
		DustRate:       farm.DustRate,
		DaysSinceClean: BaselineDustAgeDays,
		PanelAreaM2:    farm.PanelAreaM2,
		AvgIrradiance:  o.AvgIrradiance,
		HorizonDays:    BaselineDustAgeDays,
	})
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{
		Farm:        farm,
		WaterLiters: farm.WaterUsagePerClean,
		EnergyKWh:   energy,
		NetBenefit:  energy*farm.ElectricityPrice - farm.WaterUsagePerClean*o.WaterUnitCost,
		CO2OffsetKg: energy * degradation.CarbonFactorKgPerKWh,
	}

	switch mode {
	case models.ModeProfit:
		ev.priority = ev.NetBenefit
	case models.ModeCarbon:
		ev.priority = ev.CO2OffsetKg
	case models.ModeWaterScarcity:
		if ev.WaterLiters == 0 {
			// Free recovery, ranked ahead of everything.
			ev.infinitePrio = true
		} else {
			ev.priority = ev.EnergyKWh / ev.WaterLiters
		}
	}
	if math.IsNaN(ev.priority) || math.IsInf(ev.priority, 0) {
		return Evaluation{}, fmt.Errorf("%w: priority for farm %s is not finite", models.ErrNumericDomain, farm.ID)
	}
	return ev, nil
}

// sortByPriority orders descending by priority with farm id as the
// deterministic tiebreak. Infinite-priority farms sort first.
func sortByPriority(evals []Evaluation) {
	sort.SliceStable(evals, func(i, j int) bool {
		a, b := evals[i], evals[j]
		if a.infinitePrio != b.infinitePrio {
			return a.infinitePrio
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		return a.Farm.ID < b.Farm.ID
	})
}

// selectGreedy walks the priority order and stops at the first farm that
// does not fit. Stopping (rather than skipping and continuing) keeps the
// selection monotone in the budget: a larger budget can only extend the
// accepted prefix.
func selectGreedy(evals []Evaluation, waterBudget float64) []Evaluation {
	selected := make([]Evaluation, 0, len(evals))
	var used float64
	for _, ev := range evals {
		if used+ev.WaterLiters > waterBudget {
			break
		}
		used += ev.WaterLiters
		selected = append(selected, ev)
	}
	return selected
}

// selectExact solves the knapsack by DP over discrete budget units and
// backtracks the chosen set. The unit is one liter up to
// maxExactCapacityUnits and grows proportionally for larger budgets; water
// volumes are rounded up to whole units so the capacity constraint is never
// exceeded by discretization.
func selectExact(evals []Evaluation, waterBudget float64) []Evaluation {
	unit := 1.0
	if waterBudget > maxExactCapacityUnits {
		unit = waterBudget / maxExactCapacityUnits
	}
	capacity := int(waterBudget / unit)
	weights := make([]int, len(evals))
	for i, ev := range evals {
		weights[i] = int(math.Ceil(ev.WaterLiters / unit))
	}

	// table[i][c]: best priority sum using evals[:i] within capacity c.
	table := make([][]float64, len(evals)+1)
	for i := range table {
		table[i] = make([]float64, capacity+1)
	}
	for i := 1; i <= len(evals); i++ {
		value := evals[i-1].priority
		for c := 0; c <= capacity; c++ {
			table[i][c] = table[i-1][c]
			if weights[i-1] <= c {
				if with := table[i-1][c-weights[i-1]] + value; with > table[i][c] {
					table[i][c] = with
				}
			}
		}
	}

	selected := make([]Evaluation, 0, len(evals))
	c := capacity
	for i := len(evals); i > 0; i-- {
		if table[i][c] != table[i-1][c] {
			selected = append(selected, evals[i-1])
			c -= weights[i-1]
		}
	}
	// Backtrack visits in reverse; restore priority order.
	for l, r := 0, len(selected)-1; l < r; l, r = l+1, r-1 {
		selected[l], selected[r] = selected[r], selected[l]
	}
	return selected
}
