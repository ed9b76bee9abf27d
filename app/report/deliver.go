package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type Report struct {
	GeneratedAt    time.Time
	PostCount      int
	SourceFailures int
	Analysis       string
}

type MailSettings struct {
	User      string
	Password  string
	Recipient string
}

func (m MailSettings) Complete() bool {
	return m.User != "" && m.Password != "" && m.Recipient != ""
}

type Deliverer interface {
	Deliver(ctx context.Context, r Report) error
}

func Subject(r Report) string {
	return fmt.Sprintf("AI Trends Daily Report - %s", r.GeneratedAt.Format("2006-01-02"))
}

// Body is the plain-text report as mailed.
func Body(r Report) string {
	var b strings.Builder
	b.WriteString("AI Trends & Best Practices Report\n")
	fmt.Fprintf(&b, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Posts Analyzed: %d\n", r.PostCount)
	if r.SourceFailures > 0 {
		fmt.Fprintf(&b, "Sources Unavailable: %d\n", r.SourceFailures)
	}
	b.WriteString("\n")
	b.WriteString(r.Analysis)
	b.WriteString("\n\n---\nPowered by Gemini AI Feed Analyzer\n")
	return b.String()
}

// ConsoleDeliverer prints reports. Mail settings are accepted but no mail
// transport exists, so a complete set only changes what gets printed.
type ConsoleDeliverer struct {
	w    io.Writer
	mail MailSettings
}

func NewConsoleDeliverer(w io.Writer, mail MailSettings) *ConsoleDeliverer {
	return &ConsoleDeliverer{w: w, mail: mail}
}

func (d *ConsoleDeliverer) Deliver(ctx context.Context, r Report) error {
	separator := strings.Repeat("=", 50)

	if !d.mail.Complete() {
		_, err := fmt.Fprintf(d.w, "Email credentials not set - printing report instead:\n%s\n%s\n%s\n", separator, r.Analysis, separator)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	slog.Info("Mail delivery unavailable, printing report",
		"from", d.mail.User,
		"to", d.mail.Recipient,
		"subject", Subject(r))

	_, err := fmt.Fprintf(d.w, "To: %s\nSubject: %s\n%s\n%s%s\n", d.mail.Recipient, Subject(r), separator, Body(r), separator)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
