package feed

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	timeSavedPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:hour|minute|day)s?\s*(?:saved|reduced)`)
	improvementPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)%\s*(?:improvement|reduction|faster|increase)`)
)

// Scorer is a deterministic keyword heuristic: the same text always yields the same score.
type Scorer struct {
	keywords Keywords
}

func NewScorer(keywords Keywords) *Scorer {
	return &Scorer{keywords: keywords.normalized()}
}

// Score computes automation keyword hits over title and summary plus twice the
// showcase keyword hits found in the title alone.
func (s *Scorer) Score(item Item) ScoredItem {
	title := normalizeText(item.Title)
	text := title + " " + normalizeText(item.Summary)

	automationHits := countMatches(text, s.keywords.Automation)
	showcaseHits := countMatches(title, s.keywords.Showcase)

	return ScoredItem{
		Item:           item,
		RelevanceScore: automationHits + 2*showcaseHits,
		IsShowcase:     showcaseHits > 0,
		TimeSaved:      captureAll(timeSavedPattern, text),
		Improvements:   captureAll(improvementPattern, text),
	}
}

func (s *Scorer) ScoreAll(items []Item) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, s.Score(item))
	}
	SortByRelevance(scored)
	return scored
}

// SortByRelevance orders by score, then by publish time, both descending.
func SortByRelevance(items []ScoredItem) {
	slices.SortStableFunc(items, func(a, b ScoredItem) int {
		if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
			return c
		}
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

func normalizeText(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func countMatches(text string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits++
		}
	}
	return hits
}

func captureAll(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	captured := make([]string, 0, len(matches))
	for _, m := range matches {
		captured = append(captured, m[1])
	}
	return captured
}
