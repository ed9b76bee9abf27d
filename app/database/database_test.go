package database

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Expected no error opening database, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer rows.Close()

	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Expected no error scanning, got: %v", err)
		}
		tables[name] = true
	}

	for _, table := range []string{"reported_items", "reports"} {
		if !tables[table] {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	repo := NewItemRepository(db)
	if err := repo.MarkReported([]ReportedItem{{ContentHash: "abc", Title: "First"}}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("Expected no error reopening, got: %v", err)
	}
	defer db.Close()

	reported, err := NewItemRepository(db).IsReported("abc")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reported {
		t.Error("Expected hash to survive reopen")
	}
}

func TestItemRepositoryMarkReported(t *testing.T) {
	repo := NewItemRepository(setupTestDB(t))

	reported, err := repo.IsReported("hash-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if reported {
		t.Error("Expected unknown hash to be unreported")
	}

	items := []ReportedItem{
		{ContentHash: "hash-1", Title: "One", Link: "https://example.com/1", SourceName: "Example"},
		{ContentHash: "hash-2", Title: "Two", Link: "https://example.com/2", SourceName: "Example"},
	}
	if err := repo.MarkReported(items); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Marking again must not fail on the primary key.
	if err := repo.MarkReported(items[:1]); err != nil {
		t.Fatalf("Expected no error on repeat, got: %v", err)
	}

	count, err := repo.GetReportedCount()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 reported items, got %d", count)
	}

	reported, err = repo.IsReported("hash-2")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !reported {
		t.Error("Expected hash-2 to be reported")
	}
}

func TestReportRepository(t *testing.T) {
	repo := NewReportRepository(setupTestDB(t))

	older := &Report{GeneratedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), PostCount: 3, Analysis: "older"}
	newer := &Report{GeneratedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), PostCount: 7, SourceFailures: 1, Analysis: "newer"}

	for _, r := range []*Report{older, newer} {
		if err := repo.SaveReport(r); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if r.ID == "" {
			t.Error("Expected report ID to be assigned")
		}
	}

	reports, err := repo.GetLatestReports(10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	if reports[0].Analysis != "newer" {
		t.Errorf("Expected newest report first, got %q", reports[0].Analysis)
	}
	if reports[0].SourceFailures != 1 || reports[0].PostCount != 7 {
		t.Errorf("Expected counts 7/1, got %d/%d", reports[0].PostCount, reports[0].SourceFailures)
	}
	if !reports[1].GeneratedAt.Equal(older.GeneratedAt) {
		t.Errorf("Expected generated_at %v, got %v", older.GeneratedAt, reports[1].GeneratedAt)
	}

	got, err := repo.GetReport(newer.ID)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got == nil || got.Analysis != "newer" {
		t.Errorf("Expected report %s to be found", newer.ID)
	}

	missing, err := repo.GetReport("missing")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing report")
	}
}
