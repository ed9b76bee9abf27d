package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Collector fetches every source, keeps recent dated entries and scores them.
// A failing source is recorded and never stops the others.
type Collector struct {
	httpClient     *http.Client
	parser         *Parser
	filterer       *Filterer
	scorer         *Scorer
	limiter        *rate.Limiter
	workers        int
	userAgent      string
	defaultTimeout time.Duration
	now            func() time.Time
}

type CollectorOptions struct {
	HTTPClient *http.Client
	Scorer     *Scorer
	Delay      time.Duration // minimum gap between fetch starts
	Workers    int
	UserAgent  string
	Timeout    time.Duration // used when a source has no timeout of its own
}

func NewCollector(opts CollectorOptions) *Collector {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Scorer == nil {
		opts.Scorer = NewScorer(DefaultKeywords())
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Collector{
		httpClient:     opts.HTTPClient,
		parser:         NewParser(),
		filterer:       NewFilterer(),
		scorer:         opts.Scorer,
		limiter:        rate.NewLimiter(limit, 1),
		workers:        opts.Workers,
		userAgent:      opts.UserAgent,
		defaultTimeout: opts.Timeout,
		now:            time.Now,
	}
}

func (c *Collector) Collect(ctx context.Context, sources []*Config, window time.Duration) CollectResult {
	cutoff := c.now().Add(-window)

	var (
		mu       sync.Mutex
		result   CollectResult
		seen     = make(map[string]bool)
		items    []Item
		perIndex = make([][]Item, len(sources))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, source := range sources {
		if !source.Settings.Enabled {
			slog.Debug("Source disabled, skipping", "feed", source.Name)
			continue
		}

		g.Go(func() error {
			collected, err := c.collectSource(gctx, source, cutoff)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Source failed", "feed", source.Name, "url", source.URL, "error", err)
				result.Failures = append(result.Failures, SourceFailure{Source: source.Name, Err: err})
				return nil
			}
			result.Fetched++
			perIndex[i] = collected
			return nil
		})
	}

	// Worker goroutines never return errors.
	_ = g.Wait()

	// Merge in source order so dedup keeps the first listed source.
	for _, collected := range perIndex {
		for _, item := range collected {
			if seen[item.ContentHash] {
				continue
			}
			seen[item.ContentHash] = true
			items = append(items, item)
		}
	}

	result.Items = c.scorer.ScoreAll(items)

	slog.Info("Collection completed",
		"sources", len(sources),
		"fetched", result.Fetched,
		"failed", len(result.Failures),
		"items", len(result.Items))

	return result
}

func (c *Collector) collectSource(ctx context.Context, source *Config, cutoff time.Time) ([]Item, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}

	data, err := c.fetchFeed(ctx, source)
	if err != nil {
		return nil, err
	}

	parsed, undated, err := c.parser.Run(data, source.URL)
	if err != nil {
		return nil, err
	}

	recent := make([]Item, 0, len(parsed))
	stale := 0
	for _, item := range parsed {
		if !item.PublishedAt.After(cutoff) {
			stale++
			continue
		}
		recent = append(recent, item)
	}

	visible := c.filterer.Visible(c.filterer.Run(recent, source))

	slog.Debug("Source collected",
		"feed", source.Name,
		"total", len(parsed)+undated,
		"undated", undated,
		"stale", stale,
		"filtered", len(recent)-len(visible),
		"kept", len(visible))

	return visible, nil
}

func (c *Collector) fetchFeed(ctx context.Context, source *Config) ([]byte, error) {
	timeout := c.defaultTimeout
	if source.Settings.Timeout > 0 {
		timeout = time.Duration(source.Settings.Timeout) * time.Second
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
