// Package document assembles tool results into Markdown reports and Jupyter
// notebooks and writes them to disk.
package document

import (
	"fmt"
	"strings"

	papertrail "github.com/eugener/papertrail/internal"
)

// Report is the material for a single-paper Markdown report.
type Report struct {
	Paper       papertrail.Paper
	Translation *papertrail.Translation // nil = no translated abstract
	Citations   []papertrail.Paper
	References  []papertrail.Paper
}

// RenderMarkdown renders r as Markdown.
func (r *Report) RenderMarkdown() string {
	var b strings.Builder
	p := r.Paper

	fmt.Fprintf(&b, "# %s\n\n", orDash(p.Title))
	if names := p.AuthorNames(); len(names) > 0 {
		fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(names, ", "))
	}
	var meta []string
	if p.Year > 0 {
		meta = append(meta, fmt.Sprintf("**Year:** %d", p.Year))
	}
	if p.Venue != "" {
		meta = append(meta, "**Venue:** "+p.Venue)
	}
	meta = append(meta, fmt.Sprintf("**Citations:** %d", p.CitationCount))
	b.WriteString(strings.Join(meta, " | "))
	b.WriteString("\n\n")
	if p.URL != "" {
		fmt.Fprintf(&b, "<%s>\n\n", p.URL)
	}

	if p.Abstract != "" {
		b.WriteString("## Abstract\n\n")
		b.WriteString(p.Abstract)
		b.WriteString("\n\n")
	}
	if r.Translation != nil {
		fmt.Fprintf(&b, "## Abstract (%s)\n\n", r.Translation.TargetLang)
		b.WriteString(r.Translation.Text)
		b.WriteString("\n\n")
	}

	writePaperTable(&b, "Cited by", r.Citations)
	writePaperTable(&b, "References", r.References)
	return b.String()
}

// RenderSearchMarkdown renders a search result page as a Markdown table.
func RenderSearchMarkdown(query string, res *papertrail.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search: %s\n\n", query)
	fmt.Fprintf(&b, "%d results, showing %d from offset %d.\n\n", res.Total, len(res.Papers), res.Offset)
	writePaperTable(&b, "", res.Papers)
	return b.String()
}

func writePaperTable(b *strings.Builder, heading string, papers []papertrail.Paper) {
	if len(papers) == 0 {
		return
	}
	if heading != "" {
		fmt.Fprintf(b, "## %s\n\n", heading)
	}
	b.WriteString("| Title | Year | Citations | ID |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, p := range papers {
		year := "-"
		if p.Year > 0 {
			year = fmt.Sprint(p.Year)
		}
		fmt.Fprintf(b, "| %s | %s | %d | `%s` |\n", escapeCell(orDash(p.Title)), year, p.CitationCount, p.ID)
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
