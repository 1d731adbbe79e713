// Package papertrail defines domain types for the papertrail research tools.
// This package has no project imports -- it is the dependency root.
package papertrail

import (
	"context"
	"time"
)

// --- Papers ---

// Paper is a paper record as returned by the metadata API.
type Paper struct {
	ID             string            `json:"paper_id"`
	Title          string            `json:"title"`
	Abstract       string            `json:"abstract,omitempty"`
	Year           int               `json:"year,omitempty"`
	Venue          string            `json:"venue,omitempty"`
	URL            string            `json:"url,omitempty"`
	Authors        []Author          `json:"authors,omitempty"`
	CitationCount  int               `json:"citation_count"`
	ReferenceCount int               `json:"reference_count"`
	ExternalIDs    map[string]string `json:"external_ids,omitempty"` // e.g. "DOI", "ArXiv"
}

// Author is a paper author.
type Author struct {
	ID   string `json:"author_id,omitempty"`
	Name string `json:"name"`
}

// AuthorNames returns the author names in order.
func (p *Paper) AuthorNames() []string {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	return names
}

// SearchQuery describes a paper search.
type SearchQuery struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Year   string `json:"year,omitempty"` // "2019", "2016-2020", "2010-"
}

// SearchResult is one page of search results.
type SearchResult struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Papers []Paper `json:"papers"`
}

// --- Citation graph ---

// CitationEdge records that From cites To.
type CitationEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// CitationGraph is a breadth-first neighbourhood of a root paper.
type CitationGraph struct {
	Root   string           `json:"root"`
	Depth  int              `json:"depth"`
	Papers map[string]Paper `json:"papers"`
	Edges  []CitationEdge   `json:"edges"`
}

// --- Translation ---

// Translation is an LLM translation of a piece of text.
type Translation struct {
	Source     string    `json:"source"` // original text
	TargetLang string    `json:"target_lang"`
	Text       string    `json:"text"`
	Model      string    `json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}
