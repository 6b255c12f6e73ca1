package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/solarops-dev/solarops/internal/models"
)

func testDecision(id string, recommendation string, generatedAt time.Time) models.Decision {
	return models.Decision{
		ID:             id,
		Recommendation: recommendation,
		SSESScore:      60,
		GeneratedAt:    generatedAt,
	}
}

func TestStorage_AddAndGetDecisions(t *testing.T) {
	s := New(100, 50, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)

	now := time.Now()
	if err := s.AddDecision("site-1", 120*time.Millisecond, testDecision("d1", models.RecommendWait, now)); err != nil {
		t.Fatalf("AddDecision failed: %v", err)
	}

	records, err := s.GetDecisions("site-1")
	if err != nil {
		t.Fatalf("GetDecisions failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Decision.ID != "d1" {
		t.Errorf("Expected decision d1, got %s", records[0].Decision.ID)
	}
	if records[0].LatencyMS != 120 {
		t.Errorf("Expected latency 120ms, got %d", records[0].LatencyMS)
	}
}

func TestStorage_LastDecision(t *testing.T) {
	s := New(100, 50, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)

	if _, ok := s.LastDecision("site-1"); ok {
		t.Fatal("Expected no last decision for unknown site")
	}

	now := time.Now()
	_ = s.AddDecision("site-1", 0, testDecision("d1", models.RecommendWait, now))
	_ = s.AddDecision("site-1", 0, testDecision("d2", models.RecommendWait, now.Add(time.Minute)))

	last, ok := s.LastDecision("site-1")
	if !ok {
		t.Fatal("Expected a last decision")
	}
	if last.ID != "d2" {
		t.Errorf("Expected most recent decision d2, got %s", last.ID)
	}
}

func TestStorage_InvalidDecision(t *testing.T) {
	s := New(100, 50, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)

	// CLEAN without a cleaning date must be rejected.
	bad := testDecision("d1", models.RecommendClean, time.Now())
	if err := s.AddDecision("site-1", 0, bad); err == nil {
		t.Error("Expected validation error for CLEAN decision without date")
	}

	good := testDecision("d2", models.RecommendWait, time.Now())
	if err := s.AddDecision("", 0, good); err == nil {
		t.Error("Expected error for empty site id")
	}
}

func TestStorage_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := New(100, 50, path, 0o644, 0o755)

	now := time.Now().UTC()
	_ = s.AddDecision("site-1", 0, testDecision("d1", models.RecommendWait, now))
	_ = s.AddSelection(5*time.Millisecond, models.PortfolioSelection{
		ID:              "sel-1",
		Mode:            "PROFIT",
		SelectedFarmIDs: []string{"alpha"},
		WaterUsed:       10000,
		GeneratedAt:     now,
	})

	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := New(100, 50, path, 0o644, 0o755)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	last, ok := restored.LastDecision("site-1")
	if !ok || last.ID != "d1" {
		t.Errorf("Expected decision d1 after reload, got %+v ok=%v", last, ok)
	}

	selections, err := restored.RecentSelections(10)
	if err != nil {
		t.Fatalf("RecentSelections failed: %v", err)
	}
	if len(selections) != 1 || selections[0].Selection.ID != "sel-1" {
		t.Errorf("Expected selection sel-1 after reload, got %+v", selections)
	}
}

func TestStorage_LoadMissingFile(t *testing.T) {
	s := New(100, 50, filepath.Join(t.TempDir(), "missing.json"), 0o644, 0o755)
	if err := s.Load(); err != nil {
		t.Errorf("Expected missing file to start fresh, got %v", err)
	}
}

func TestStorage_Rotate(t *testing.T) {
	s := New(3, 2, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)

	now := time.Now()
	for i := 0; i < 10; i++ {
		d := testDecision(fmt.Sprintf("d%d", i), models.RecommendWait, now.Add(time.Duration(i)*time.Minute))
		if err := s.AddDecision("site-1", 0, d); err != nil {
			t.Fatalf("AddDecision failed: %v", err)
		}
		sel := models.PortfolioSelection{ID: fmt.Sprintf("sel%d", i), Mode: "PROFIT", GeneratedAt: now}
		if err := s.AddSelection(0, sel); err != nil {
			t.Fatalf("AddSelection failed: %v", err)
		}
	}

	if err := s.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	records, _ := s.GetDecisions("site-1")
	if len(records) != 3 {
		t.Errorf("Expected 3 decisions after rotation, got %d", len(records))
	}
	if records[len(records)-1].Decision.ID != "d9" {
		t.Errorf("Expected newest decision kept, got %s", records[len(records)-1].Decision.ID)
	}

	selections, _ := s.RecentSelections(10)
	if len(selections) != 2 {
		t.Errorf("Expected 2 selections after rotation, got %d", len(selections))
	}
}

func TestStorage_DecisionsInWindow(t *testing.T) {
	s := New(100, 50, filepath.Join(t.TempDir(), "history.json"), 0o644, 0o755)

	now := time.Now()
	_ = s.AddDecision("site-1", 0, testDecision("old", models.RecommendWait, now.Add(-2*time.Hour)))
	_ = s.AddDecision("site-1", 0, testDecision("new", models.RecommendWait, now.Add(-10*time.Minute)))

	records, err := s.DecisionsInWindow("site-1", time.Hour)
	if err != nil {
		t.Fatalf("DecisionsInWindow failed: %v", err)
	}
	if len(records) != 1 || records[0].Decision.ID != "new" {
		t.Errorf("Expected only the recent decision, got %+v", records)
	}
}
