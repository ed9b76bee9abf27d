package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiClientAnalyze(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if r.URL.RawQuery != "" {
			t.Errorf("Expected no query string, got %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"- trend one\n- trend two"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient("secret", WithBaseURL(server.URL), WithModel("gemini-test"))

	text, err := client.Analyze(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if text != "- trend one\n- trend two" {
		t.Errorf("Unexpected text: %q", text)
	}
	if gotPath != "/v1beta/models/gemini-test:generateContent" {
		t.Errorf("Unexpected path: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("Expected key in x-goog-api-key header, got %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Parts[0].Text != "the prompt" {
		t.Errorf("Expected prompt in request body, got %+v", gotBody)
	}
	if gotBody.GenerationConfig.Temperature != 0.3 || gotBody.GenerationConfig.MaxOutputTokens != 2048 {
		t.Errorf("Unexpected generation config: %+v", gotBody.GenerationConfig)
	}
}

func TestAnalysisTextTransportErrorHidesKey(t *testing.T) {
	// A closed server gives a connection error quoting the request URL.
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewGeminiClient("SECRET-KEY-123", WithBaseURL(baseURL))

	text, ok := AnalysisText(context.Background(), client, "p")
	if ok {
		t.Fatal("Expected analysis to fail")
	}
	if !strings.HasPrefix(text, "Error analyzing with Gemini: ") {
		t.Errorf("Expected transport error text, got %q", text)
	}
	if strings.Contains(text, "SECRET-KEY-123") {
		t.Errorf("Expected API key to stay out of report text, got %q", text)
	}
}

func TestGeminiClientMissingKey(t *testing.T) {
	_, err := NewGeminiClient("").Analyze(context.Background(), "p")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}
}

func TestGeminiClientNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"quota"}`))
	}))
	defer server.Close()

	_, err := NewGeminiClient("k", WithBaseURL(server.URL)).Analyze(context.Background(), "p")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 429 || apiErr.Body != `{"error":"quota"}` {
		t.Errorf("Unexpected API error: %+v", apiErr)
	}
}

func TestGeminiClientNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	_, err := NewGeminiClient("k", WithBaseURL(server.URL)).Analyze(context.Background(), "p")
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}
}

type fakeAnalyzer struct {
	text string
	err  error
}

func (f fakeAnalyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

func TestAnalysisText(t *testing.T) {
	tests := []struct {
		name     string
		analyzer Analyzer
		expected string
		ok       bool
	}{
		{"success", fakeAnalyzer{text: "report"}, "report", true},
		{"missing key", fakeAnalyzer{err: ErrMissingAPIKey}, "Error: GEMINI_API_KEY not set", false},
		{"api error", fakeAnalyzer{err: &APIError{StatusCode: 500, Body: "boom"}}, "Error calling Gemini API: 500 - boom", false},
		{"no candidates", fakeAnalyzer{err: ErrNoCandidates}, "No response generated from Gemini", false},
		{"transport", fakeAnalyzer{err: errors.New("dial tcp: refused")}, "Error analyzing with Gemini: dial tcp: refused", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := AnalysisText(context.Background(), tt.analyzer, "p")
			if text != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, text)
			}
			if ok != tt.ok {
				t.Errorf("Expected ok=%v, got %v", tt.ok, ok)
			}
		})
	}
}

func TestAnalysisTextTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	text, ok := AnalysisText(context.Background(), NewGeminiClient("k", WithBaseURL(baseURL)), "p")
	if ok {
		t.Error("Expected failure")
	}
	if !strings.HasPrefix(text, "Error analyzing with Gemini: ") {
		t.Errorf("Expected transport error text, got %q", text)
	}
}
