package feed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords are the tables the Scorer matches against. Matching is
// case-insensitive substring, so multi-word phrases are allowed.
type Keywords struct {
	Automation []string `yaml:"automation"`
	Showcase   []string `yaml:"showcase"`
}

func DefaultKeywords() Keywords {
	return Keywords{
		Automation: []string{
			"automation", "automate", "workflow", "n8n", "zapier", "make.com",
			"ifttt", "no-code", "nocode", "low-code", "webhook", "integration",
			"pipeline", "bot", "agent", "trigger", "scheduled", "api",
		},
		Showcase: []string{
			"i built", "i made", "i created", "built a", "made a", "created a",
			"my automation", "my workflow", "my project", "my bot",
			"show off", "sharing my", "check out my", "automated my",
			"how i automated", "finally automated", "showcase", "showdev",
		},
	}
}

// LoadKeywords reads a YAML keyword file. A table missing from the file keeps its default.
func LoadKeywords(path string) (Keywords, error) {
	keywords := DefaultKeywords()
	if path == "" {
		return keywords, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return keywords, fmt.Errorf("failed to read keywords file: %w", err)
	}

	var fromFile Keywords
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return keywords, fmt.Errorf("failed to parse keywords YAML: %w", err)
	}

	if len(fromFile.Automation) > 0 {
		keywords.Automation = fromFile.Automation
	}
	if len(fromFile.Showcase) > 0 {
		keywords.Showcase = fromFile.Showcase
	}

	return keywords.normalized(), nil
}

func (k Keywords) normalized() Keywords {
	return Keywords{
		Automation: lowerAll(k.Automation),
		Showcase:   lowerAll(k.Showcase),
	}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
