package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/workflow-digest/app/feed"
	"github.com/lysyi3m/workflow-digest/app/workflow"
)

const (
	DefaultMaxPosts = 40
	summaryLimit    = 300
	fullTextLimit   = 1500
)

const promptHeader = `Analyze these recent AI/automation posts and extract:
1. Key trends and emerging tools
2. Best practices and workflows mentioned
3. Notable new releases or breakthroughs
4. Practical tips and use cases

Format as a clear, actionable summary with bullet points.

`

type PromptInput struct {
	Posts       []feed.ScoredItem
	Enriched    []feed.EnrichedItem
	Best        []workflow.Record
	Unfeatured  []workflow.Record
	Discoveries []workflow.Discovery
	MaxPosts    int
}

func BuildPrompt(in PromptInput) string {
	maxPosts := in.MaxPosts
	if maxPosts <= 0 {
		maxPosts = DefaultMaxPosts
	}

	var b strings.Builder
	b.WriteString(promptHeader)

	posts := in.Posts
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	for _, post := range posts {
		fmt.Fprintf(&b, "Title: %s\n", post.Title)
		fmt.Fprintf(&b, "Source: %s\n", post.SourceName)
		fmt.Fprintf(&b, "Summary: %s...\n", truncate(post.Summary, summaryLimit))
		fmt.Fprintf(&b, "Link: %s\n", post.Link)
		if metrics := post.ExtractedMetrics(); len(metrics) > 0 {
			fmt.Fprintf(&b, "Metrics: %s\n", strings.Join(metrics, ", "))
		}
		b.WriteString("\n")
	}

	writeEnriched(&b, in.Enriched)
	// cases.Caser is stateful; one per call.
	titleCaser := cases.Title(language.English)
	writeRecords(&b, titleCaser, "PROVEN WORKFLOWS", in.Best)
	writeRecords(&b, titleCaser, "WORKFLOWS NOT FEATURED RECENTLY", in.Unfeatured)
	writeDiscoveries(&b, titleCaser, in.Discoveries)

	return b.String()
}

func writeEnriched(b *strings.Builder, items []feed.EnrichedItem) {
	var withContent []feed.EnrichedItem
	for _, item := range items {
		if !item.Content.IsEmpty() {
			withContent = append(withContent, item)
		}
	}
	if len(withContent) == 0 {
		return
	}

	b.WriteString("FULL CONTENT OF TOP POSTS:\n\n")
	for _, item := range withContent {
		fmt.Fprintf(b, "Title: %s\n", item.Title)
		if item.Content.FullText != "" {
			fmt.Fprintf(b, "Content: %s\n", truncate(item.Content.FullText, fullTextLimit))
		}
		for _, step := range item.Content.WorkflowSteps {
			fmt.Fprintf(b, "Step: %s\n", step)
		}
		for _, block := range item.Content.CodeBlocks {
			label := "Code"
			if block.WorkflowConfig {
				label = "Workflow config"
			}
			fmt.Fprintf(b, "%s:\n%s\n", label, block.Content)
		}
		if len(item.Content.Metrics) > 0 {
			fmt.Fprintf(b, "Metrics: %s\n", strings.Join(item.Content.Metrics, ", "))
		}
		b.WriteString("\n")
	}
}

func writeRecords(b *strings.Builder, titleCaser cases.Caser, heading string, records []workflow.Record) {
	if len(records) == 0 {
		return
	}

	fmt.Fprintf(b, "%s:\n\n", heading)
	for _, r := range records {
		fmt.Fprintf(b, "- %s (%s, score %d/10)\n", r.Title, titleCaser.String(r.Category), r.ShowcaseScore)
		fmt.Fprintf(b, "  Apps: %s\n", strings.Join(r.Apps, " + "))
		if r.Workflow != "" {
			fmt.Fprintf(b, "  Flow: %s\n", r.Workflow)
		}
		if r.Impact != "" {
			fmt.Fprintf(b, "  Impact: %s\n", r.Impact)
		}
		if r.Complexity != "" {
			fmt.Fprintf(b, "  Complexity: %s (%s)\n", r.Complexity, r.TimeToBuild)
		}
	}
	b.WriteString("\n")
}

func writeDiscoveries(b *strings.Builder, titleCaser cases.Caser, discoveries []workflow.Discovery) {
	if len(discoveries) == 0 {
		return
	}

	b.WriteString("COMMUNITY SHOWCASES:\n\n")
	for _, d := range discoveries {
		fmt.Fprintf(b, "- %s [%s, score %d/10]\n", d.Title, titleCaser.String(d.Category), d.ShowcaseScore)
		if len(d.Apps) > 0 {
			fmt.Fprintf(b, "  Apps: %s\n", strings.Join(d.Apps, ", "))
		}
		fmt.Fprintf(b, "  Link: %s\n", d.URL)
	}
	b.WriteString("\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
