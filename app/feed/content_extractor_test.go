package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const workflowPage = `<!DOCTYPE html>
<html>
<head><title>My n8n setup</title><style>.x{color:red}</style></head>
<body>
  <nav>Home | About</nav>
  <article>
    <h1>How I automated invoicing</h1>
    <p>First, connect the Gmail trigger to the workflow.</p>
    <p>Then parse attachments with a code node.</p>
    <ol>
      <li>Create a webhook in n8n</li>
      <li>Send the payload to Airtable</li>
    </ol>
    <p>Trigger: new email with invoice attached</p>
    <p>This saved 6 hours per week and made billing 40% faster, worth $1,200 a month.</p>
    <pre>{"nodes": [{"name": "Gmail Trigger"}]}</pre>
    <pre>echo hello</pre>
    <script>alert("tracking")</script>
  </article>
</body>
</html>`

func TestContentExtractor_Run_ExtractsSignals(t *testing.T) {
	extractor := NewContentExtractor(nil, "test-agent", time.Second)

	content, err := extractor.Run([]byte(workflowPage), "https://example.com/post")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(content.FullText, "How I automated invoicing") {
		t.Errorf("Expected article text, got %q", content.FullText)
	}
	if strings.Contains(content.FullText, "Home | About") {
		t.Error("Expected nav outside article to be excluded")
	}
	if strings.Contains(content.FullText, "tracking") {
		t.Error("Expected script content to be removed")
	}

	if len(content.CodeBlocks) != 2 {
		t.Fatalf("Expected 2 code blocks, got %d", len(content.CodeBlocks))
	}
	if !content.CodeBlocks[0].WorkflowConfig {
		t.Error("Expected JSON with nodes to be flagged as workflow config")
	}
	if content.CodeBlocks[1].WorkflowConfig {
		t.Error("Expected plain shell block not to be flagged")
	}

	if len(content.WorkflowSteps) == 0 || len(content.WorkflowSteps) > 5 {
		t.Fatalf("Expected 1 to 5 steps, got %d", len(content.WorkflowSteps))
	}
	joined := strings.Join(content.WorkflowSteps, "|")
	for _, expected := range []string{"connect the Gmail trigger", "Create a webhook in n8n"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("Expected steps to contain %q, got %v", expected, content.WorkflowSteps)
		}
	}

	metrics := strings.Join(content.Metrics, "|")
	for _, expected := range []string{"6 hours per week", "40% faster", "$1,200"} {
		if !strings.Contains(metrics, expected) {
			t.Errorf("Expected metrics to contain %q, got %v", expected, content.Metrics)
		}
	}
}

func TestContentExtractor_Run_Limits(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body><main><p>")
	page.WriteString(strings.Repeat("automation ", 1000))
	page.WriteString("</p>")
	for i := 0; i < 5; i++ {
		page.WriteString("<pre>" + strings.Repeat("x", 800) + "</pre>")
	}
	page.WriteString("<ul>")
	for i := 0; i < 8; i++ {
		page.WriteString("<li>bullet step number " + strings.Repeat("i", i+1) + "</li>")
	}
	page.WriteString("</ul></main></body></html>")

	content, err := NewContentExtractor(nil, "", 0).Run([]byte(page.String()), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if n := len([]rune(content.FullText)); n != 5000 {
		t.Errorf("Expected full text truncated to 5000 chars, got %d", n)
	}
	if len(content.CodeBlocks) != 3 {
		t.Errorf("Expected 3 code blocks, got %d", len(content.CodeBlocks))
	}
	for i, block := range content.CodeBlocks {
		if len([]rune(block.Content)) != 500 {
			t.Errorf("Block %d: expected 500 chars, got %d", i, len([]rune(block.Content)))
		}
	}
	if len(content.WorkflowSteps) != 5 {
		t.Errorf("Expected steps capped at 5, got %d", len(content.WorkflowSteps))
	}
}

func TestContentExtractor_Run_CodeInsidePreCountedOnce(t *testing.T) {
	page := `<html><body><pre><code>{"trigger": "cron"}</code></pre><p>inline <code>x</code></p></body></html>`

	content, err := NewContentExtractor(nil, "", 0).Run([]byte(page), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(content.CodeBlocks) != 2 {
		t.Fatalf("Expected 2 code blocks, got %d", len(content.CodeBlocks))
	}
	if !content.CodeBlocks[0].WorkflowConfig {
		t.Error("Expected trigger JSON to be flagged")
	}
}

func TestContentExtractor_Run_FallsBackToBody(t *testing.T) {
	page := `<html><body><div>Just some text without structure</div></body></html>`

	content, err := NewContentExtractor(nil, "", 0).Run([]byte(page), "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !strings.Contains(content.FullText, "Just some text without structure") {
		t.Errorf("Expected body text fallback, got %q", content.FullText)
	}
}

func TestContentExtractor_Run_EmptyData(t *testing.T) {
	content, err := NewContentExtractor(nil, "", 0).Run(nil, "")
	if err == nil {
		t.Error("Expected error for empty data")
	}
	if !content.IsEmpty() {
		t.Error("Expected empty enrichment")
	}
}

func TestContentExtractor_Enrich_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	content := NewContentExtractor(server.Client(), "", time.Second).Enrich(context.Background(), server.URL)

	if content.FullText != "" {
		t.Errorf("Expected empty full text, got %q", content.FullText)
	}
	if content.CodeBlocks == nil || len(content.CodeBlocks) != 0 {
		t.Errorf("Expected empty non-nil code blocks, got %v", content.CodeBlocks)
	}
	if content.Metrics == nil || len(content.Metrics) != 0 {
		t.Errorf("Expected empty non-nil metrics, got %v", content.Metrics)
	}
}

func TestContentExtractor_Enrich_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	content := NewContentExtractor(server.Client(), "", 50*time.Millisecond).Enrich(context.Background(), server.URL)
	if !content.IsEmpty() {
		t.Error("Expected empty enrichment after timeout")
	}
}

func TestContentExtractor_Enrich_Success(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Write([]byte(workflowPage))
	}))
	defer server.Close()

	content := NewContentExtractor(server.Client(), "digest-bot", time.Second).Enrich(context.Background(), server.URL)

	if content.FullText == "" {
		t.Error("Expected full text")
	}
	if userAgent != "digest-bot" {
		t.Errorf("Expected User-Agent digest-bot, got %q", userAgent)
	}
}
