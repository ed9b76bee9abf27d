package database

import (
	"time"
)

type ReportedItem struct {
	ContentHash string
	Title       string
	Link        string
	SourceName  string
	ReportedAt  time.Time
}

type Report struct {
	ID             string // UUID, assigned on save when empty
	GeneratedAt    time.Time
	PostCount      int
	SourceFailures int
	Analysis       string
}
