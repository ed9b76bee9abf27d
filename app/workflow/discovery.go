package workflow

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/lysyi3m/workflow-digest/app/feed"
)

const (
	maxDiscoveredApps = 5
	maxShowcaseScore  = 10
	fallbackCategory  = "automation"
)

// Discovery is a workflow-shaped view of a showcase post. It lives for one run
// and is never written to the Store.
type Discovery struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	SourceName    string   `json:"source_name"`
	Apps          []string `json:"apps"`
	Category      string   `json:"category"`
	ShowcaseScore int      `json:"showcase_score"`
	Metrics       []string `json:"metrics"`
}

var (
	durationMention = regexp.MustCompile(`\d+\s*(?:hours?|minutes?|days?)`)
	percentMention  = regexp.MustCompile(`\d+%`)
)

var highValueSignals = []string{
	"saved hours", "saved time", "automated away",
	"no longer need to", "eliminates the need",
	"tutorial", "guide", "walkthrough", "how i",
	"github", "code", "screenshot", "demo",
}

var mediumValueSignals = []string{
	"workflow", "automation", "n8n", "zapier", "make.com",
	"slack", "gmail", "sheets", "airtable", "notion",
}

// appPatterns is ordered; extracted apps follow this order.
var appPatterns = []struct {
	pattern string
	name    string
}{
	{"n8n", "n8n"},
	{"zapier", "Zapier"},
	{"make.com", "Make.com"},
	{"ifttt", "IFTTT"},
	{"slack", "Slack"},
	{"discord", "Discord"},
	{"gmail", "Gmail"},
	{"google sheets", "Google Sheets"},
	{"airtable", "Airtable"},
	{"notion", "Notion"},
	{"trello", "Trello"},
	{"asana", "Asana"},
	{"stripe", "Stripe"},
	{"shopify", "Shopify"},
	{"webhook", "Webhooks"},
	{"api", "API"},
	{"python", "Python"},
	{"node.js", "Node.js"},
	{"docker", "Docker"},
	{"raspberry pi", "Raspberry Pi"},
	{"home assistant", "Home Assistant"},
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"data sync", []string{"sync", "import", "export", "backup"}},
	{"notifications", []string{"alert", "notify", "notification", "remind"}},
	{"social media", []string{"twitter", "facebook", "instagram", "linkedin", "social"}},
	{"e-commerce", []string{"shopify", "stripe", "order", "customer", "product"}},
	{"project management", []string{"trello", "asana", "jira", "task", "project"}},
	{"marketing", []string{"mailchimp", "campaign", "email marketing", "lead"}},
	{"content", []string{"rss", "blog", "content", "post", "article"}},
	{"integration", []string{"api", "webhook", "connect", "integration"}},
}

// Discover turns showcase items into discoveries ranked by showcase score.
func Discover(items []feed.ScoredItem) []Discovery {
	discoveries := []Discovery{}
	for _, item := range items {
		if !item.IsShowcase {
			continue
		}

		text := strings.ToLower(item.Title + " " + item.Summary)
		discoveries = append(discoveries, Discovery{
			Title:         item.Title,
			URL:           item.Link,
			SourceName:    item.SourceName,
			Apps:          ExtractApps(text),
			Category:      Categorize(item.Title),
			ShowcaseScore: ShowcaseScore(text),
			Metrics:       item.ExtractedMetrics(),
		})
	}

	slices.SortStableFunc(discoveries, func(a, b Discovery) int {
		return cmp.Compare(b.ShowcaseScore, a.ShowcaseScore)
	})
	return discoveries
}

// ShowcaseScore rates 0-10 how much concrete build detail a post carries.
func ShowcaseScore(text string) int {
	text = strings.ToLower(text)
	score := 0

	if durationMention.MatchString(text) {
		score += 3
	}
	if percentMention.MatchString(text) {
		score += 2
	}
	for _, signal := range highValueSignals {
		if strings.Contains(text, signal) {
			score += 2
		}
	}
	for _, signal := range mediumValueSignals {
		if strings.Contains(text, signal) {
			score++
		}
	}

	return min(score, maxShowcaseScore)
}

func ExtractApps(text string) []string {
	text = strings.ToLower(text)
	apps := []string{}
	for _, p := range appPatterns {
		if strings.Contains(text, p.pattern) {
			apps = append(apps, p.name)
			if len(apps) == maxDiscoveredApps {
				break
			}
		}
	}
	return apps
}

func Categorize(title string) string {
	lower := strings.ToLower(title)
	for _, c := range categoryKeywords {
		for _, keyword := range c.keywords {
			if strings.Contains(lower, keyword) {
				return c.category
			}
		}
	}
	return fallbackCategory
}
