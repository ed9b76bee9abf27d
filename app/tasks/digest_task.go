package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/workflow-digest/app/database"
	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/metrics"
	"github.com/lysyi3m/workflow-digest/app/report"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

type DigestOptions struct {
	HoursBack       int
	MaxPosts        int
	MaxEnriched     int
	BestLimit       int
	UnfeaturedLimit int
	SkipReported    bool
}

// DigestDeps are shared by every digest task. ItemRepo and ReportRepo may be
// nil when no ledger is configured.
type DigestDeps struct {
	Sources    SourceProvider
	Collector  Collector
	Enricher   Enricher
	Store      WorkflowStore
	Analyzer   report.Analyzer
	Deliverer  report.Deliverer
	ItemRepo   database.ItemRepository
	ReportRepo database.ReportRepository
	Options    DigestOptions
	Now        func() time.Time
}

type DigestResult struct {
	Empty          bool
	PostCount      int
	SourceFailures int
	Enriched       int
	Discoveries    int
	AnalysisOK     bool
	ReportID       string
	Featured       []int
}

type DigestTask struct {
	Task
	deps   *DigestDeps
	Result *DigestResult
}

func NewDigestTask(trigger string, deps *DigestDeps) *DigestTask {
	return &DigestTask{
		Task: NewTask(TaskTypeDigest, trigger),
		deps: deps,
	}
}

// Execute runs one collection-to-delivery pass. Only cancellation and delivery
// failures are returned; optional steps log and carry on.
func (t *DigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	started := time.Now()
	opts := t.options()
	result := &DigestResult{}
	t.Result = result

	sources := t.deps.Sources.GetEnabledConfigs()
	if len(sources) == 0 {
		slog.Warn("No enabled feed sources configured")
		result.Empty = true
		metrics.DigestRuns.WithLabelValues("empty").Inc()
		return nil
	}

	collected := t.deps.Collector.Collect(ctx, sources, time.Duration(opts.HoursBack)*time.Hour)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collection cancelled: %w", err)
	}

	result.SourceFailures = len(collected.Failures)
	metrics.SourcesTotal.WithLabelValues("ok").Add(float64(collected.Fetched))
	metrics.SourcesTotal.WithLabelValues("failed").Add(float64(len(collected.Failures)))
	metrics.ItemsCollected.Add(float64(len(collected.Items)))

	items := collected.Items
	if opts.SkipReported {
		items = t.dropReported(items)
	}

	if len(items) == 0 {
		slog.Info("No recent posts found", "sources", len(sources), "failed", len(collected.Failures))
		result.Empty = true
		metrics.DigestRuns.WithLabelValues("empty").Inc()
		return nil
	}

	posts := items
	if len(posts) > opts.MaxPosts {
		posts = posts[:opts.MaxPosts]
	}
	result.PostCount = len(posts)

	enriched := t.enrich(ctx, posts, opts.MaxEnriched)
	for _, e := range enriched {
		if !e.Content.IsEmpty() {
			result.Enriched++
		}
	}

	discoveries := workflow.Discover(posts)
	result.Discoveries = len(discoveries)

	best := t.deps.Store.BestWorkflows(opts.BestLimit, "")
	unfeatured := t.deps.Store.Unfeatured(opts.UnfeaturedLimit)

	prompt := report.BuildPrompt(report.PromptInput{
		Posts:       posts,
		Enriched:    enriched,
		Best:        best,
		Unfeatured:  unfeatured,
		Discoveries: discoveries,
		MaxPosts:    opts.MaxPosts,
	})

	analysis, ok := report.AnalysisText(ctx, t.deps.Analyzer, prompt)
	result.AnalysisOK = ok
	if ok {
		metrics.AnalysisTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.AnalysisTotal.WithLabelValues("failed").Inc()
	}

	generated := t.now()
	digest := report.Report{
		GeneratedAt:    generated,
		PostCount:      len(posts),
		SourceFailures: len(collected.Failures),
		Analysis:       analysis,
	}

	if err := t.deps.Deliverer.Deliver(ctx, digest); err != nil {
		metrics.DigestRuns.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to deliver report: %w", err)
	}

	result.ReportID = t.saveReport(digest)
	t.markReported(posts, generated)

	// A failed analysis never reached a reader, so nothing counts as featured.
	if ok {
		result.Featured = t.markFeatured(unfeatured)
	}

	metrics.DigestRuns.WithLabelValues("success").Inc()
	metrics.DigestDuration.Observe(time.Since(started).Seconds())

	slog.Info("Task completed",
		"type", string(t.GetType()),
		"trigger", t.GetTrigger(),
		"duration", t.GetDuration(),
		"sources", len(sources),
		"failed_sources", len(collected.Failures),
		"posts", len(posts),
		"enriched", result.Enriched,
		"discoveries", len(discoveries),
		"analysis_ok", ok)

	return nil
}

func (t *DigestTask) options() DigestOptions {
	opts := t.deps.Options
	if opts.HoursBack <= 0 {
		opts.HoursBack = 24
	}
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = report.DefaultMaxPosts
	}
	if opts.MaxEnriched < 0 {
		opts.MaxEnriched = 0
	}
	if opts.BestLimit <= 0 {
		opts.BestLimit = 5
	}
	if opts.UnfeaturedLimit <= 0 {
		opts.UnfeaturedLimit = 3
	}
	return opts
}

func (t *DigestTask) now() time.Time {
	if t.deps.Now != nil {
		return t.deps.Now()
	}
	return time.Now()
}

func (t *DigestTask) dropReported(items []feed.ScoredItem) []feed.ScoredItem {
	if t.deps.ItemRepo == nil {
		return items
	}

	fresh := make([]feed.ScoredItem, 0, len(items))
	skipped := 0
	for _, item := range items {
		reported, err := t.deps.ItemRepo.IsReported(item.ContentHash)
		if err != nil {
			slog.Warn("Failed to check reported item, keeping it", "link", item.Link, "error", err)
		}
		if reported {
			skipped++
			continue
		}
		fresh = append(fresh, item)
	}

	slog.Debug("Previously reported items skipped", "skipped", skipped, "remaining", len(fresh))
	return fresh
}

// enrich fetches full content for the first limit posts, one at a time.
func (t *DigestTask) enrich(ctx context.Context, posts []feed.ScoredItem, limit int) []feed.EnrichedItem {
	if t.deps.Enricher == nil || limit == 0 {
		return nil
	}

	top := posts
	if len(top) > limit {
		top = top[:limit]
	}

	enriched := make([]feed.EnrichedItem, 0, len(top))
	for _, post := range top {
		if ctx.Err() != nil {
			break
		}
		content := t.deps.Enricher.Enrich(ctx, post.Link)
		if content.IsEmpty() {
			metrics.EnrichmentTotal.WithLabelValues("empty").Inc()
		} else {
			metrics.EnrichmentTotal.WithLabelValues("ok").Inc()
		}
		enriched = append(enriched, feed.EnrichedItem{ScoredItem: post, Content: content})
	}
	return enriched
}

func (t *DigestTask) saveReport(digest report.Report) string {
	if t.deps.ReportRepo == nil {
		return ""
	}

	record := &database.Report{
		GeneratedAt:    digest.GeneratedAt.UTC(),
		PostCount:      digest.PostCount,
		SourceFailures: digest.SourceFailures,
		Analysis:       digest.Analysis,
	}
	if err := t.deps.ReportRepo.SaveReport(record); err != nil {
		slog.Warn("Failed to save report", "error", err)
		return ""
	}
	return record.ID
}

func (t *DigestTask) markReported(posts []feed.ScoredItem, reportedAt time.Time) {
	if t.deps.ItemRepo == nil {
		return
	}

	items := make([]database.ReportedItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, database.ReportedItem{
			ContentHash: post.ContentHash,
			Title:       post.Title,
			Link:        post.Link,
			SourceName:  post.SourceName,
			ReportedAt:  reportedAt.UTC(),
		})
	}
	if err := t.deps.ItemRepo.MarkReported(items); err != nil {
		slog.Warn("Failed to mark items reported", "count", len(items), "error", err)
	}
}

func (t *DigestTask) markFeatured(records []workflow.Record) []int {
	featured := make([]int, 0, len(records))
	for _, r := range records {
		found, err := t.deps.Store.MarkFeatured(r.ID)
		if err != nil {
			slog.Warn("Failed to mark workflow featured", "id", r.ID, "error", err)
			continue
		}
		if found {
			featured = append(featured, r.ID)
		}
	}
	return featured
}
