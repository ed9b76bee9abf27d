package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type itemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) IsReported(contentHash string) (bool, error) {
	var hash string
	err := r.db.QueryRow(`SELECT content_hash FROM reported_items WHERE content_hash = ? LIMIT 1`, contentHash).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check reported item: %w", err)
	}
	return true, nil
}

// MarkReported records items in one transaction. Already reported hashes keep
// their original timestamp.
func (r *itemRepository) MarkReported(items []ReportedItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO reported_items (content_hash, title, link, source_name, reported_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (content_hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		reportedAt := item.ReportedAt
		if reportedAt.IsZero() {
			reportedAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(item.ContentHash, item.Title, item.Link, item.SourceName, reportedAt); err != nil {
			return fmt.Errorf("failed to mark item reported: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *itemRepository) GetReportedCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM reported_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reported items: %w", err)
	}
	return count, nil
}
