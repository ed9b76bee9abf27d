package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// AnalysisText runs the analyzer and never fails: errors become the text of
// the report so delivery still happens with the failure visible.
func AnalysisText(ctx context.Context, analyzer Analyzer, prompt string) (string, bool) {
	text, err := analyzer.Analyze(ctx, prompt)
	if err == nil {
		return text, true
	}

	slog.Warn("Analysis failed", "error", err)

	var apiErr *APIError
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return "Error: GEMINI_API_KEY not set", false
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Error calling Gemini API: %d - %s", apiErr.StatusCode, apiErr.Body), false
	case errors.Is(err, ErrNoCandidates):
		return "No response generated from Gemini", false
	default:
		return fmt.Sprintf("Error analyzing with Gemini: %v", err), false
	}
}
