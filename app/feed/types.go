package feed

import (
	"time"
)

// Feed processing types

type Item struct {
	Title       string
	Link        string
	Summary     string
	PublishedAt time.Time // entries without a parsed published date never become Items
	SourceName  string

	ContentHash  string
	IsFiltered   bool
	FilterReason string
}

type ScoredItem struct {
	Item

	RelevanceScore int
	IsShowcase     bool
	TimeSaved      []string // numbers from "<n> hours saved" style phrases
	Improvements   []string // numbers from "<n>% faster" style phrases
}

// ExtractedMetrics returns time-saved mentions followed by percentage mentions.
func (s ScoredItem) ExtractedMetrics() []string {
	metrics := make([]string, 0, len(s.TimeSaved)+len(s.Improvements))
	metrics = append(metrics, s.TimeSaved...)
	metrics = append(metrics, s.Improvements...)
	return metrics
}

type CodeBlock struct {
	Content        string
	WorkflowConfig bool // brace plus "nodes"/"trigger"; not a JSON parse
}

type EnrichedContent struct {
	FullText      string
	CodeBlocks    []CodeBlock
	WorkflowSteps []string
	Metrics       []string
}

// EmptyEnrichment is the shape returned whenever a page cannot be fetched or parsed.
func EmptyEnrichment() EnrichedContent {
	return EnrichedContent{
		FullText:      "",
		CodeBlocks:    []CodeBlock{},
		WorkflowSteps: []string{},
		Metrics:       []string{},
	}
}

func (e EnrichedContent) IsEmpty() bool {
	return e.FullText == "" && len(e.CodeBlocks) == 0 && len(e.Metrics) == 0 && len(e.WorkflowSteps) == 0
}

type EnrichedItem struct {
	ScoredItem
	Content EnrichedContent
}

type SourceFailure struct {
	Source string
	Err    error
}

func (f SourceFailure) Error() string {
	return f.Source + ": " + f.Err.Error()
}

type CollectResult struct {
	Items    []ScoredItem
	Failures []SourceFailure
	Fetched  int // sources fetched and parsed successfully
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"` // seconds
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
