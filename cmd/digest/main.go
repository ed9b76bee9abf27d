package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/workflow-digest/app/api"
	"github.com/lysyi3m/workflow-digest/app/cfg"
	"github.com/lysyi3m/workflow-digest/app/database"
	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/report"
	"github.com/lysyi3m/workflow-digest/app/tasks"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	cfg.SetupLogging(appCfg.Debug)

	switch appCfg.Command {
	case cfg.CommandWorkflows:
		err = runWorkflows(appCfg, os.Stdout)
	case cfg.CommandServe:
		err = serve(appCfg)
	default:
		err = runOnce(appCfg)
	}

	if err != nil {
		slog.Error("Command failed", "command", appCfg.Command, "error", err)
		os.Exit(1)
	}
}

type components struct {
	sources *feed.ConfigCache
	store   *workflow.Store
	db      *database.DB
	deps    *tasks.DigestDeps
}

func (c *components) Close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			slog.Warn("Failed to close ledger", "error", err)
		}
	}
}

func loadSources(appCfg *cfg.Cfg) (*feed.ConfigCache, error) {
	sources := feed.NewConfigCache(appCfg.FeedsDir)
	if err := sources.Run(); err != nil {
		return nil, fmt.Errorf("failed to load feed sources: %w", err)
	}
	if err := sources.AddURLs(appCfg.FeedURLs); err != nil {
		return nil, err
	}
	if sources.GetConfigCount() == 0 {
		if err := sources.AddURLs(feed.DefaultFeedURLs); err != nil {
			return nil, err
		}
	}

	slog.Info("Feed sources loaded", "total", sources.GetConfigCount(), "enabled", len(sources.GetEnabledConfigs()))
	return sources, nil
}

func newComponents(appCfg *cfg.Cfg) (*components, error) {
	sources, err := loadSources(appCfg)
	if err != nil {
		return nil, err
	}

	keywords, err := feed.LoadKeywords(appCfg.KeywordsFile)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	httpClient := &http.Client{}
	store := workflow.NewStore(appCfg.StorePath)

	deps := &tasks.DigestDeps{
		Sources: sources,
		Collector: feed.NewCollector(feed.CollectorOptions{
			HTTPClient: httpClient,
			Scorer:     feed.NewScorer(keywords),
			Delay:      appCfg.FetchDelay,
			Workers:    appCfg.WorkerCount,
			UserAgent:  appCfg.UserAgent,
			Timeout:    appCfg.FetchTimeout,
		}),
		Enricher: feed.NewContentExtractor(httpClient, appCfg.UserAgent, appCfg.ContentTimeout),
		Store:    store,
		Analyzer: report.NewGeminiClient(appCfg.GeminiAPIKey, report.WithModel(appCfg.GeminiModel)),
		Deliverer: report.NewConsoleDeliverer(os.Stdout, report.MailSettings{
			User:      appCfg.EmailUser,
			Password:  appCfg.EmailPass,
			Recipient: appCfg.RecipientEmail,
		}),
		ItemRepo:   database.NewItemRepository(db),
		ReportRepo: database.NewReportRepository(db),
		Options: tasks.DigestOptions{
			HoursBack:    appCfg.HoursBack,
			MaxPosts:     appCfg.MaxPosts,
			MaxEnriched:  appCfg.MaxEnriched,
			SkipReported: appCfg.SkipReported,
		},
	}

	return &components{sources: sources, store: store, db: db, deps: deps}, nil
}

func runOnce(appCfg *cfg.Cfg) error {
	c, err := newComponents(appCfg)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := tasks.NewDigestTask(tasks.TriggerCLI, c.deps)
	task.Start()
	if err := task.Execute(ctx); err != nil {
		return err
	}

	if task.Result.Empty {
		fmt.Println("No recent posts found")
	}
	return nil
}

func serve(appCfg *cfg.Cfg) error {
	slog.Info("Starting Workflow Digest server", "version", appCfg.Version)

	c, err := newComponents(appCfg)
	if err != nil {
		return err
	}
	defer c.Close()

	newDigest := func(trigger string) tasks.TaskFactory {
		return func() tasks.TaskInterface {
			return tasks.NewDigestTask(trigger, c.deps)
		}
	}

	scheduler, err := tasks.NewScheduler(newDigest(tasks.TriggerSchedule), appCfg.Schedule, time.Local, 1)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	selfLink := ""
	if appCfg.BaseUrl != "" {
		selfLink = appCfg.BaseUrl + "/feeds/reports"
	}

	handler := api.NewHandler(c.store, c.deps.ReportRepo, c.deps.ItemRepo,
		feed.NewGenerator(selfLink, appCfg.Version), c.sources, scheduler, newDigest(tasks.TriggerAPI))
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
