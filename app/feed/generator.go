package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/workflow-digest/app/database"
)

// Generator renders saved digest reports as an RSS 2.0 channel.
type Generator struct {
	selfLink string
	version  string
}

func NewGenerator(selfLink, version string) *Generator {
	return &Generator{selfLink: selfLink, version: version}
}

func (g *Generator) Run(reports []database.Report) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "Workflow Digest", 4)
	g.writeElement(&buf, "link", g.selfLink, 4)
	g.writeElement(&buf, "description", "AI trends and automation workflow reports", 4)

	if g.selfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.selfLink)))
	}

	lastBuildDate := time.Now().UTC()
	if len(reports) > 0 {
		lastBuildDate = reports[0].GeneratedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Workflow-Digest/%s", g.version), 4)

	for _, report := range reports {
		g.writeItem(&buf, report)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, report database.Report) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(report.ID))
	buf.WriteString("</guid>\n")

	title := fmt.Sprintf("Workflow digest %s (%d posts)", report.GeneratedAt.Format("2006-01-02"), report.PostCount)
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "description", firstParagraph(report.Analysis), 6)

	if report.Analysis != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		// "]]>" cannot appear inside a CDATA section.
		buf.WriteString(strings.ReplaceAll(report.Analysis, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", report.GeneratedAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func firstParagraph(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return "No analysis available"
	}
	return truncateRunes(text, 500)
}
