package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/lysyi3m/workflow-digest/app/cfg"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

// runWorkflows serves the store subcommands. It never touches feeds or the ledger.
func runWorkflows(appCfg *cfg.Cfg, w io.Writer) error {
	store := workflow.NewStore(appCfg.StorePath)
	args := appCfg.Workflows

	switch args.Action {
	case "seed":
		added, err := store.Seed()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Seeded %d workflows (%d total)\n", added, store.Count())

	case "best":
		printRecords(w, store.BestWorkflows(args.Limit, args.Category))

	case "unfeatured":
		printRecords(w, store.Unfeatured(args.Limit))

	case "search":
		printRecords(w, store.Search(args.Query))

	case "stats":
		printStats(w, store.Stats())

	case "feature":
		found, err := store.MarkFeatured(args.ID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("workflow %d not found", args.ID)
		}
		fmt.Fprintf(w, "Workflow %d marked as featured\n", args.ID)

	default:
		printRecords(w, store.All())
	}

	return nil
}

func printRecords(w io.Writer, records []workflow.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No workflows found")
		return
	}

	for _, r := range records {
		category := r.Category
		if category == "" {
			category = "other"
		}
		fmt.Fprintf(w, "#%d %s [%s] score %d\n", r.ID, r.Title, category, r.ShowcaseScore)
		if len(r.Apps) > 0 {
			fmt.Fprintf(w, "    apps: %s\n", strings.Join(r.Apps, ", "))
		}
		if r.LastFeatured != nil {
			fmt.Fprintf(w, "    featured %d times, last %s\n", r.FeatureCount, r.LastFeatured.Format("2006-01-02"))
		}
	}
}

func printStats(w io.Writer, stats workflow.Stats) {
	fmt.Fprintf(w, "Total workflows: %d\n", stats.TotalWorkflows)
	fmt.Fprintf(w, "Average apps per workflow: %.1f\n", stats.AvgAppsPerWorkflow)

	if len(stats.Categories) > 0 {
		fmt.Fprintln(w, "Categories:")
		for _, category := range slices.Sorted(maps.Keys(stats.Categories)) {
			fmt.Fprintf(w, "    %s: %d\n", category, stats.Categories[category])
		}
	}

	if len(stats.PopularApps) > 0 {
		fmt.Fprintln(w, "Popular apps:")
		for _, app := range stats.PopularApps {
			fmt.Fprintf(w, "    %s: %d\n", app.App, app.Count)
		}
	}
}
