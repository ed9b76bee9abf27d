package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	sanitizer    *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

// Run parses raw feed bytes. Entries without a parsed published date are
// dropped and counted in the second return value.
func (p *Parser) Run(data []byte, sourceURL string) ([]Item, int, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	sourceName := cmp.Or(strings.TrimSpace(parsed.Title), sourceURL)

	items := make([]Item, 0, len(parsed.Items))
	undated := 0
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		if entry.PublishedParsed == nil {
			undated++
			continue
		}
		normalized := p.normalizeItem(entry, sourceName)
		normalized.ContentHash = p.generateContentHash(normalized)
		items = append(items, normalized)
	}

	return items, undated, nil
}

func (p *Parser) normalizeItem(entry *gofeed.Item, sourceName string) Item {
	return Item{
		Title:       strings.TrimSpace(entry.Title),
		Link:        strings.TrimSpace(entry.Link),
		Summary:     p.plainText(entry.Description),
		PublishedAt: entry.PublishedParsed.UTC(),
		SourceName:  sourceName,
	}
}

// plainText strips markup from feed summaries; Reddit and HN wrap them in HTML.
func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	stripped := html.UnescapeString(p.sanitizer.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

func (p *Parser) generateContentHash(item Item) string {
	content := fmt.Sprintf("%s|%s",
		item.Title,
		item.Link)

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
