package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// Markdown renders summaries as a Markdown document.
func Markdown(summaries ...*Summary) string {
	var b strings.Builder
	b.WriteString("# Remediation report\n")
	for _, s := range summaries {
		writeMarkdown(&b, s)
	}
	return b.String()
}

func writeMarkdown(b *strings.Builder, s *Summary) {
	fmt.Fprintf(b, "\n## %s\n\n", cell(s.File))
	if s.Fatal != "" {
		fmt.Fprintf(b, "**Stopped:** %s\n\n", cell(s.Fatal))
	}
	b.WriteString("| Detected | Resolved | Superseded | Failed | Remaining | Passes |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(b, "| %d | %d | %d | %d | %d | %d |\n", s.Detected, s.Resolved, s.Superseded, s.Failed, s.Remaining, s.Passes)

	if len(s.Groups) > 0 {
		b.WriteString("\n### Fixed\n\n")
		for _, g := range s.Groups {
			fmt.Fprintf(b, "- %s: %d\n", cell(g.Label), g.Items)
		}
	}
	writeMarkdownFindings(b, "Failed", s.Failures)
	writeMarkdownFindings(b, "Remaining", s.Open)

	if c := s.Conformance; c != nil {
		if c.Compliant {
			fmt.Fprintf(b, "\n%s: no violations.\n", c.Standard)
		} else {
			fmt.Fprintf(b, "\n%s: %d violation(s): %s.\n", c.Standard, len(c.Violations), strings.Join(c.Codes(), ", "))
		}
	}
}

func writeMarkdownFindings(b *strings.Builder, title string, list []Finding) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	b.WriteString("| Severity | Type | Location | Message |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, f := range list {
		msg := f.Message
		if f.Note != "" {
			msg += " (" + f.Note + ")"
		}
		fmt.Fprintf(b, "| %s | `%s` | %s | %s |\n", f.Severity, f.Type, cell(f.Location), cell(msg))
	}
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", " ", "`", "\\`")

func cell(s string) string { return cellEscaper.Replace(s) }

// WriteHTML renders summaries to a standalone HTML page. The Markdown body is
// converted with goldmark and sanitized before it is embedded.
func WriteHTML(w io.Writer, summaries ...*Summary) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(summaries...)), &body); err != nil {
		return fmt.Errorf("report: render markdown: %w", err)
	}
	safe := bluemonday.UGCPolicy().SanitizeBytes(body.Bytes())

	title := "Remediation report"
	if len(summaries) == 1 {
		title += ": " + summaries[0].File
	}
	ew := &errWriter{w: w}
	ew.printf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	ew.printf("<style>table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:2px 6px}</style>\n</head>\n<body>\n")
	if ew.err == nil {
		_, ew.err = w.Write(safe)
	}
	ew.printf("</body>\n</html>\n")
	return ew.err
}
