package workflow

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	featureCooldown  = 30 * 24 * time.Hour
	defaultCategory  = "other"
	popularAppsLimit = 10
)

// Store keeps every record in memory and rewrites the whole file on each change.
type Store struct {
	path    string
	records []Record
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore loads path. A missing file starts empty; an unreadable or invalid
// one also starts empty, with a warning, and is replaced on the next write.
func NewStore(path string) *Store {
	s := &Store{path: path, now: time.Now}

	records, err := s.load()
	if err != nil {
		slog.Warn("Workflow store unreadable, starting empty", "path", path, "error", err)
		records = nil
	}
	s.records = records

	slog.Debug("Workflow store loaded", "path", path, "records", len(s.records))
	return s
}

func (s *Store) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	return records, nil
}

// persist writes to a temp file in the same directory and renames it over the store.
// Callers hold the write lock.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflows: %w", err)
	}
	if s.records == nil {
		data = []byte("[]")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Add assigns id = count+1. Ids can repeat if the file was edited by hand.
func (s *Store) Add(record Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record = record.clone()
	record.ID = len(s.records) + 1
	record.AddedDate = Timestamp{s.now()}
	record.LastFeatured = nil
	record.FeatureCount = 0
	if record.Apps == nil {
		record.Apps = []string{}
	}

	s.records = append(s.records, record)
	if err := s.persist(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return Record{}, err
	}

	slog.Debug("Workflow added", "id", record.ID, "title", record.Title)
	return record.clone(), nil
}

func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.records)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// BestWorkflows ranks by showcase score, then app count, then feature count.
// An empty category means all categories.
func (s *Store) BestWorkflows(limit int, category string) []Record {
	s.mu.RLock()
	candidates := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		if category == "" || r.Category == category {
			candidates = append(candidates, r.clone())
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(candidates, func(a, b Record) int {
		if c := cmp.Compare(b.ShowcaseScore, a.ShowcaseScore); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b.Apps), len(a.Apps)); c != 0 {
			return c
		}
		return cmp.Compare(b.FeatureCount, a.FeatureCount)
	})

	return capped(candidates, limit)
}

// Unfeatured returns never-featured records followed by ones last featured
// more than 30 days ago, ranked by showcase score.
func (s *Store) Unfeatured(limit int) []Record {
	threshold := s.now().Add(-featureCooldown)

	s.mu.RLock()
	var never, stale []Record
	for _, r := range s.records {
		switch {
		case r.LastFeatured == nil:
			never = append(never, r.clone())
		case r.LastFeatured.Before(threshold):
			stale = append(stale, r.clone())
		}
	}
	s.mu.RUnlock()

	candidates := append(never, stale...)
	sortByScore(candidates)
	return capped(candidates, limit)
}

// MarkFeatured updates the first record with id. It reports whether one was found;
// a missing id changes nothing and writes nothing.
func (s *Store) MarkFeatured(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}

		previous := s.records[i].clone()
		featured := Timestamp{s.now()}
		s.records[i].LastFeatured = &featured
		s.records[i].FeatureCount++

		if err := s.persist(); err != nil {
			s.records[i] = previous
			return true, err
		}
		return true, nil
	}

	return false, nil
}

// Search matches query case-insensitively against title, description and apps.
func (s *Store) Search(query string) []Record {
	needle := strings.ToLower(query)

	s.mu.RLock()
	var results []Record
	for _, r := range s.records {
		haystack := strings.ToLower(r.Title + " " + r.Description + " " + strings.Join(r.Apps, " "))
		if strings.Contains(haystack, needle) {
			results = append(results, r.clone())
		}
	}
	s.mu.RUnlock()

	sortByScore(results)
	return results
}

// ByCategory groups records; an empty category is reported as "other".
func (s *Store) ByCategory() map[string][]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[string][]Record)
	for _, r := range s.records {
		category := cmp.Or(r.Category, defaultCategory)
		groups[category] = append(groups[category], r.clone())
	}
	return groups
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalWorkflows: len(s.records),
		Categories:     make(map[string]int),
		PopularApps:    []AppCount{},
	}

	appIndex := make(map[string]int)
	totalApps := 0
	for _, r := range s.records {
		stats.Categories[cmp.Or(r.Category, defaultCategory)]++
		totalApps += len(r.Apps)

		for _, app := range r.Apps {
			if i, ok := appIndex[app]; ok {
				stats.PopularApps[i].Count++
				continue
			}
			appIndex[app] = len(stats.PopularApps)
			stats.PopularApps = append(stats.PopularApps, AppCount{App: app, Count: 1})
		}
	}

	// Stable so equally popular apps keep first-seen order.
	slices.SortStableFunc(stats.PopularApps, func(a, b AppCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	stats.PopularApps = capped(stats.PopularApps, popularAppsLimit)

	stats.AvgAppsPerWorkflow = float64(totalApps) / float64(max(len(s.records), 1))
	return stats
}

func sortByScore(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(b.ShowcaseScore, a.ShowcaseScore)
	})
}

func capped[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cloneAll(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, r.clone())
	}
	return out
}
