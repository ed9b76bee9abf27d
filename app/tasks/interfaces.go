package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

// TaskSchedulerInterface is what the server and API need from the scheduler.
//
//	scheduler, err := NewScheduler(factory, "0 9 * * *", time.Local, 1)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewDigestTask(TriggerAPI, deps))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type SourceProvider interface {
	GetEnabledConfigs() []*feed.Config
}

type Collector interface {
	Collect(ctx context.Context, sources []*feed.Config, window time.Duration) feed.CollectResult
}

type Enricher interface {
	Enrich(ctx context.Context, url string) feed.EnrichedContent
}

type WorkflowStore interface {
	BestWorkflows(limit int, category string) []workflow.Record
	Unfeatured(limit int) []workflow.Record
	MarkFeatured(id int) (bool, error)
}
