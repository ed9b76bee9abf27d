package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	maxFullTextChars  = 5000
	maxCodeBlocks     = 3
	maxCodeBlockChars = 500
	maxStepsPerRule   = 5
	maxSteps          = 5
	maxMetrics        = 10
	maxPageBytes      = 5 << 20
)

var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".post-content",
	".entry-content",
	".content",
	"#content",
}

var stepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*(?:first|second|third|then|next|after that|finally|step\s*\d+)[,:.)]?\s+(.{5,200})$`),
	regexp.MustCompile(`(?m)^\s*(?:\d{1,2}[.)]|[-*•])\s+(.{5,200})$`),
	regexp.MustCompile(`(?i)\b(?:trigger|action|filter)\s*:\s*([^\n]{3,200})`),
}

var metricPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:hours?|hrs?|minutes?|mins?|days?|weeks?)\s+(?:saved|reduced|per week|per day|a week|a day|every week)`),
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?%\s*(?:faster|reduction|improvement|increase|less|more|fewer)`),
	regexp.MustCompile(`(?i)\$\d[\d,]*(?:\.\d+)?\s*(?:k\b|m\b|million|thousand)?`),
	regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?x\s+(?:faster|more|cheaper|less|productivity)`),
}

// ContentExtractor fetches a page and pulls best-effort automation signals
// out of it. Enrich never fails; problems yield EmptyEnrichment.
type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewContentExtractor(httpClient *http.Client, userAgent string, timeout time.Duration) *ContentExtractor {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (e *ContentExtractor) Enrich(ctx context.Context, pageURL string) EnrichedContent {
	data, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		slog.Debug("Content fetch failed", "url", pageURL, "error", err)
		return EmptyEnrichment()
	}

	content, err := e.Run(data, pageURL)
	if err != nil {
		slog.Debug("Content extraction failed", "url", pageURL, "error", err)
		return EmptyEnrichment()
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"content_length", len(content.FullText),
		"code_blocks", len(content.CodeBlocks),
		"steps", len(content.WorkflowSteps),
		"metrics", len(content.Metrics))

	return content
}

// Run extracts enrichment from raw HTML.
func (e *ContentExtractor) Run(data []byte, pageURL string) (EnrichedContent, error) {
	if len(data) == 0 {
		return EmptyEnrichment(), fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return EmptyEnrichment(), fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	content := EmptyEnrichment()
	content.CodeBlocks = extractCodeBlocks(doc)

	markLineBreaks(doc)

	text := e.primaryText(doc, pageURL)
	content.FullText = truncateRunes(collapseWhitespace(text), maxFullTextChars)
	content.WorkflowSteps = extractSteps(text)
	content.Metrics = extractMetrics(text)

	return content, nil
}

func (e *ContentExtractor) primaryText(doc *goquery.Document, pageURL string) string {
	for _, selector := range contentSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}

	if text := readableText(doc, pageURL); text != "" {
		return text
	}

	return strings.TrimSpace(doc.Find("body").Text())
}

func readableText(doc *goquery.Document, pageURL string) string {
	html, err := doc.Html()
	if err != nil {
		return ""
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return ""
	}

	var textBuf strings.Builder
	if err := article.RenderText(&textBuf); err != nil {
		return ""
	}
	return strings.TrimSpace(textBuf.String())
}

// markLineBreaks keeps block boundaries visible in Text() so line-anchored
// step patterns still match. List items get a bullet or ordinal prefix.
func markLineBreaks(doc *goquery.Document) {
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("ol").Each(func(_ int, list *goquery.Selection) {
		list.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
			li.PrependHtml(fmt.Sprintf("\n%d. ", i+1))
		})
	})
	doc.Find("ul > li").Each(func(_ int, li *goquery.Selection) {
		li.PrependHtml("\n- ")
	})
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, li, tr, blockquote, section").AppendHtml("\n")
}

func extractCodeBlocks(doc *goquery.Document) []CodeBlock {
	blocks := []CodeBlock{}
	doc.Find("pre, code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if goquery.NodeName(s) == "code" && s.ParentsFiltered("pre").Length() > 0 {
			return true
		}

		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}

		blocks = append(blocks, CodeBlock{
			Content:        truncateRunes(raw, maxCodeBlockChars),
			WorkflowConfig: looksLikeWorkflowConfig(raw),
		})
		return len(blocks) < maxCodeBlocks
	})
	return blocks
}

func looksLikeWorkflowConfig(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "{") &&
		(strings.Contains(lower, "nodes") || strings.Contains(lower, "trigger"))
}

func extractSteps(text string) []string {
	steps := []string{}
	seen := make(map[string]bool)

	for _, pattern := range stepPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, maxStepsPerRule) {
			step := collapseWhitespace(m[1])
			if step == "" || seen[step] {
				continue
			}
			seen[step] = true
			steps = append(steps, step)
			if len(steps) == maxSteps {
				return steps
			}
		}
	}

	return steps
}

func extractMetrics(text string) []string {
	metrics := []string{}
	seen := make(map[string]bool)

	for _, pattern := range metricPatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			metric := collapseWhitespace(m)
			key := strings.ToLower(metric)
			if metric == "" || seen[key] {
				continue
			}
			seen[key] = true
			metrics = append(metrics, metric)
			if len(metrics) == maxMetrics {
				return metrics
			}
		}
	}

	return metrics
}

func (e *ContentExtractor) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
