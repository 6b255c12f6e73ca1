// Package storage keeps the decision and portfolio history in memory with
// file-based persistence. Every analysis and optimization run is recorded so
// the watch loop can detect recommendation flips and operators can audit
// past runs. Histories rotate at configured caps to bound memory.
//
// Persistence uses atomic writes (temp file then rename) and tolerates a
// missing file on first start.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/solarops-dev/solarops/internal/models"
)

// DecisionRecord is one persisted analysis run for a site.
type DecisionRecord struct {
	SiteID    string          `json:"site_id"`
	LatencyMS int64           `json:"latency_ms"`
	Decision  models.Decision `json:"decision"`
}

// SelectionRecord is one persisted portfolio optimization run.
type SelectionRecord struct {
	LatencyMS int64                     `json:"latency_ms"`
	Selection models.PortfolioSelection `json:"selection"`
}

// Storage provides thread-safe history storage with file persistence.
type Storage struct {
	decisions  map[string][]DecisionRecord
	selections []SelectionRecord
	mu         sync.RWMutex

	maxDecisionsPerSite int
	maxSelections       int
	filePath            string
	filePermissions     os.FileMode
	dirPermissions      os.FileMode
}

// PersistenceFile is the on-disk JSON layout.
type PersistenceFile struct {
	Version    string                      `json:"version"`
	SavedAt    time.Time                   `json:"saved_at"`
	Decisions  map[string][]DecisionRecord `json:"decisions"`
	Selections []SelectionRecord           `json:"selections"`
}

// New creates a Storage persisting under filePath. An empty filePath falls
// back to the OS tmp directory.
func New(maxDecisionsPerSite, maxSelections int, filePath string, filePermissions, dirPermissions os.FileMode) *Storage {
	if filePath == "" {
		filePath = filepath.Join(os.TempDir(), "solarops", "history.json")
	}

	return &Storage{
		decisions:           make(map[string][]DecisionRecord),
		selections:          make([]SelectionRecord, 0),
		maxDecisionsPerSite: maxDecisionsPerSite,
		maxSelections:       maxSelections,
		filePath:            filePath,
		filePermissions:     filePermissions,
		dirPermissions:      dirPermissions,
	}
}

// AddDecision appends a decision record for a site.
func (s *Storage) AddDecision(siteID string, latency time.Duration, decision models.Decision) error {
	if siteID == "" {
		return fmt.Errorf("%w: site id must not be empty", models.ErrConfig)
	}
	if err := decision.Validate(); err != nil {
		return fmt.Errorf("invalid decision: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions[siteID] = append(s.decisions[siteID], DecisionRecord{
		SiteID:    siteID,
		LatencyMS: latency.Milliseconds(),
		Decision:  decision,
	})
	return nil
}

// LastDecision returns the most recent decision for a site, or false when
// the site has no history.
func (s *Storage) LastDecision(siteID string) (models.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.decisions[siteID]
	if len(history) == 0 {
		return models.Decision{}, false
	}
	return history[len(history)-1].Decision, true
}

// GetDecisions returns the full recorded history for a site, oldest first.
func (s *Storage) GetDecisions(siteID string) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.decisions[siteID]
	if !exists {
		return []DecisionRecord{}, nil
	}
	out := make([]DecisionRecord, len(history))
	copy(out, history)
	return out, nil
}

// DecisionsInWindow returns a site's decisions generated within the window,
// oldest first.
func (s *Storage) DecisionsInWindow(siteID string, window time.Duration) ([]DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var filtered []DecisionRecord
	for _, rec := range s.decisions[siteID] {
		if now.Sub(rec.Decision.GeneratedAt) <= window {
			filtered = append(filtered, rec)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Decision.GeneratedAt.Before(filtered[j].Decision.GeneratedAt)
	})

	return filtered, nil
}

// AddSelection appends a portfolio selection record.
func (s *Storage) AddSelection(latency time.Duration, selection models.PortfolioSelection) error {
	if err := selection.Validate(); err != nil {
		return fmt.Errorf("invalid selection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections = append(s.selections, SelectionRecord{
		LatencyMS: latency.Milliseconds(),
		Selection: selection,
	})
	return nil
}

// RecentSelections returns the most recent k selections, newest first.
func (s *Storage) RecentSelections(k int) ([]SelectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.selections)
	if k > n {
		k = n
	}
	out := make([]SelectionRecord, 0, k)
	for i := n - 1; i >= n-k; i-- {
		out = append(out, s.selections[i])
	}
	return out, nil
}

// Save persists storage state to file atomically.
func (s *Storage) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data := PersistenceFile{
		Version:    "1.0",
		SavedAt:    time.Now(),
		Decisions:  s.decisions,
		Selections: s.selections,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, s.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load restores storage state from file. A missing file starts fresh.
func (s *Storage) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up any stale temp file from a previous crash.
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil
	}

	jsonData, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data PersistenceFile
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	s.decisions = data.Decisions
	if s.decisions == nil {
		s.decisions = make(map[string][]DecisionRecord)
	}
	s.selections = data.Selections
	if s.selections == nil {
		s.selections = make([]SelectionRecord, 0)
	}

	return nil
}

// Rotate trims per-site decision history and the selection log to their
// configured caps, keeping the most recent entries.
func (s *Storage) Rotate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for siteID, history := range s.decisions {
		if len(history) > s.maxDecisionsPerSite {
			start := len(history) - s.maxDecisionsPerSite
			s.decisions[siteID] = history[start:]
		}
	}

	if len(s.selections) > s.maxSelections {
		start := len(s.selections) - s.maxSelections
		s.selections = s.selections[start:]
	}

	return nil
}
