package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type reportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SaveReport(report *Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO reports (id, generated_at, post_count, source_failures, analysis)
		VALUES (?, ?, ?, ?, ?)
	`, report.ID, report.GeneratedAt, report.PostCount, report.SourceFailures, report.Analysis)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetReport(id string) (*Report, error) {
	var report Report
	err := r.db.QueryRow(`
		SELECT id, generated_at, post_count, source_failures, analysis
		FROM reports WHERE id = ?
	`, id).Scan(&report.ID, &report.GeneratedAt, &report.PostCount, &report.SourceFailures, &report.Analysis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// GetLatestReports returns reports newest first.
func (r *reportRepository) GetLatestReports(limit int) ([]Report, error) {
	rows, err := r.db.Query(`
		SELECT id, generated_at, post_count, source_failures, analysis
		FROM reports
		ORDER BY generated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var report Report
		if err := rows.Scan(&report.ID, &report.GeneratedAt, &report.PostCount, &report.SourceFailures, &report.Analysis); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}
