// Package watch re-analyzes configured sites on an interval, records every
// decision, and raises an alert when a site's recommendation flips to CLEAN.
//
// Alerts are deduplicated with a cooldown: a site already alerted for a
// CLEAN flip is not alerted again until the cooldown elapses, even if the
// recommendation oscillates in between.
package watch

import (
	"context"
	"time"

	"github.com/solarops-dev/solarops/internal/config"
	"github.com/solarops-dev/solarops/internal/engine"
	"github.com/solarops-dev/solarops/internal/logger"
	"github.com/solarops-dev/solarops/internal/models"
	"github.com/solarops-dev/solarops/internal/storage"
	"github.com/solarops-dev/solarops/internal/weather"
)

// Notifier delivers a recommendation-flip alert. Nil or absent notifiers
// disable alerting without disabling the analysis loop.
type Notifier interface {
	SendFlip(siteName, previous string, decision models.Decision) error
}

// notifiedRecord tracks a previously sent alert for cooldown deduplication.
type notifiedRecord struct {
	Recommendation string
	SentAt         time.Time
}

// Watcher drives the periodic site analysis cycle.
type Watcher struct {
	eng      engine.Engine
	provider weather.Provider
	store    *storage.Storage
	notifier Notifier
	defaults config.EngineConfig
	cooldown time.Duration

	notifiedSites map[string]notifiedRecord
}

// New creates a Watcher. notifier may be nil.
func New(eng engine.Engine, provider weather.Provider, store *storage.Storage, notifier Notifier, defaults config.EngineConfig, cooldown time.Duration) *Watcher {
	return &Watcher{
		eng:           eng,
		provider:      provider,
		store:         store,
		notifier:      notifier,
		defaults:      defaults,
		cooldown:      cooldown,
		notifiedSites: make(map[string]notifiedRecord),
	}
}

// RunCycle analyzes every site once. Per-site failures are logged and do not
// abort the cycle; the first failure is returned so callers can surface it.
func (w *Watcher) RunCycle(ctx context.Context, sites []config.SiteConfig) error {
	var firstErr error
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.analyzeSite(ctx, site); err != nil {
			logger.Error("watch: site %s analysis failed: %v", site.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *Watcher) analyzeSite(ctx context.Context, site config.SiteConfig) error {
	start := time.Now()

	samples, err := w.provider.Daily(ctx, site.Latitude, site.Longitude, start, w.defaults.HorizonDays)
	if err != nil {
		return err
	}

	req := engine.Request{
		SiteID:           site.ID,
		Latitude:         site.Latitude,
		Longitude:        site.Longitude,
		PanelAreaM2:      site.PanelAreaM2,
		PlantCapacityMW:  site.PlantCapacityMW,
		DustRate:         site.DustRate,
		ElectricityPrice: orDefault(site.ElectricityPrice, w.defaults.ElectricityPrice),
		CleaningCost:     orDefault(site.CleaningCost, w.defaults.CleaningCost),
		CarbonWeight:     w.defaults.CarbonWeight,
		HorizonDays:      w.defaults.HorizonDays,
		WaterUsageLiters: orDefault(site.WaterUsageLiters, w.defaults.WaterUsageLiters),
		WaterUnitCost:    w.defaults.WaterUnitCost,
		Samples:          samples,
	}

	decision, err := w.eng.Analyze(ctx, req)
	if err != nil {
		return err
	}

	previous, hadPrevious := w.store.LastDecision(site.ID)
	if err := w.store.AddDecision(site.ID, time.Since(start), decision); err != nil {
		return err
	}

	if hadPrevious && previous.Recommendation != decision.Recommendation {
		w.maybeNotify(site, previous.Recommendation, decision)
	}
	return nil
}

// maybeNotify sends a flip alert unless the site was already notified for
// this recommendation within the cooldown. Only flips into CLEAN alert;
// flips back to WAIT just reset the dedup state.
func (w *Watcher) maybeNotify(site config.SiteConfig, previous string, decision models.Decision) {
	if decision.Recommendation != models.RecommendClean {
		return
	}

	rec, exists := w.notifiedSites[site.ID]
	if exists && rec.Recommendation == decision.Recommendation && time.Since(rec.SentAt) < w.cooldown {
		logger.Debug("watch: site %s flip suppressed by cooldown", site.ID)
		return
	}

	if w.notifier == nil {
		return
	}

	name := site.Name
	if name == "" {
		name = site.ID
	}
	if err := w.notifier.SendFlip(name, previous, decision); err != nil {
		logger.Error("watch: site %s flip alert failed: %v", site.ID, err)
		return
	}

	w.notifiedSites[site.ID] = notifiedRecord{
		Recommendation: decision.Recommendation,
		SentAt:         time.Now(),
	}
	logger.Info("watch: site %s flip alert sent (%s -> %s)", site.ID, previous, decision.Recommendation)
}

func orDefault(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}
