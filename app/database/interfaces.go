package database

type ItemRepository interface {
	IsReported(contentHash string) (bool, error)
	MarkReported(items []ReportedItem) error
	GetReportedCount() (int, error)
}

type ReportRepository interface {
	SaveReport(report *Report) error
	GetReport(id string) (*Report, error)
	GetLatestReports(limit int) ([]Report, error)
}
