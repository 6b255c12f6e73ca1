package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/solarops-dev/solarops/internal/config"
	"github.com/solarops-dev/solarops/internal/engine"
	"github.com/solarops-dev/solarops/internal/models"
	"github.com/solarops-dev/solarops/internal/storage"
)

// switchableProvider flips between rainy and dry series so tests can force a
// WAIT -> CLEAN recommendation flip between cycles.
type switchableProvider struct {
	rainy bool
}

func (p *switchableProvider) Daily(_ context.Context, _, _ float64, start time.Time, days int) ([]models.EnvironmentSample, error) {
	samples := make([]models.EnvironmentSample, days)
	for i := range samples {
		samples[i] = models.EnvironmentSample{
			Date:            start.AddDate(0, 0, i),
			IrradianceKWhM2: 5.0,
			TemperatureC:    30,
		}
	}
	if p.rainy {
		samples[0].PrecipitationMM = 3.0
	}
	return samples, nil
}

// recordingNotifier captures sent flips.
type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) SendFlip(siteName, previous string, decision models.Decision) error {
	n.sent = append(n.sent, siteName+":"+previous+"->"+decision.Recommendation)
	return nil
}

func testSites() []config.SiteConfig {
	return []config.SiteConfig{{
		ID:          "site-1",
		Name:        "Thar One",
		Latitude:    26.9,
		Longitude:   70.9,
		PanelAreaM2: 125000,
		DustRate:    1.2,
	}}
}

func testDefaults() config.EngineConfig {
	return config.EngineConfig{
		HorizonDays:      30,
		CleaningCost:     1500,
		ElectricityPrice: 6.5,
		WaterUsageLiters: 10000,
		WaterUnitCost:    0.05,
	}
}

func newTestWatcher(t *testing.T, provider *switchableProvider, notifier Notifier, cooldown time.Duration) (*Watcher, *storage.Storage) {
	t.Helper()
	store := storage.New(100, 100, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)
	return New(engine.New(), provider, store, notifier, testDefaults(), cooldown), store
}

func TestWatcher_RecordsDecisions(t *testing.T) {
	provider := &switchableProvider{}
	notifier := &recordingNotifier{}
	w, store := newTestWatcher(t, provider, notifier, time.Hour)

	if err := w.RunCycle(context.Background(), testSites()); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	last, ok := store.LastDecision("site-1")
	if !ok {
		t.Fatal("Expected a recorded decision after the cycle")
	}
	if last.Recommendation != models.RecommendClean {
		t.Errorf("Expected CLEAN in dry weather, got %s", last.Recommendation)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("Expected no alert on the first cycle, got %v", notifier.sent)
	}
}

func TestWatcher_AlertsOnFlipToClean(t *testing.T) {
	provider := &switchableProvider{rainy: true}
	notifier := &recordingNotifier{}
	w, _ := newTestWatcher(t, provider, notifier, time.Hour)

	sites := testSites()

	// First cycle: imminent rain, recommendation is WAIT.
	if err := w.RunCycle(context.Background(), sites); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("Expected no alert yet, got %v", notifier.sent)
	}

	// Second cycle: rain gone, recommendation flips to CLEAN.
	provider.rainy = false
	if err := w.RunCycle(context.Background(), sites); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("Expected one flip alert, got %v", notifier.sent)
	}
	if notifier.sent[0] != "Thar One:WAIT->CLEAN" {
		t.Errorf("Unexpected alert payload: %s", notifier.sent[0])
	}
}

func TestWatcher_CooldownSuppressesRepeatAlerts(t *testing.T) {
	provider := &switchableProvider{rainy: true}
	notifier := &recordingNotifier{}
	w, _ := newTestWatcher(t, provider, notifier, time.Hour)

	sites := testSites()

	_ = w.RunCycle(context.Background(), sites)
	provider.rainy = false
	_ = w.RunCycle(context.Background(), sites)

	// Flip back to WAIT and again to CLEAN within the cooldown.
	provider.rainy = true
	_ = w.RunCycle(context.Background(), sites)
	provider.rainy = false
	_ = w.RunCycle(context.Background(), sites)

	if len(notifier.sent) != 1 {
		t.Errorf("Expected repeat flip suppressed within cooldown, got %v", notifier.sent)
	}
}

func TestWatcher_NilNotifier(t *testing.T) {
	provider := &switchableProvider{rainy: true}
	w, _ := newTestWatcher(t, provider, nil, time.Hour)

	sites := testSites()
	_ = w.RunCycle(context.Background(), sites)
	provider.rainy = false

	// Must not panic without a notifier.
	if err := w.RunCycle(context.Background(), sites); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
}
