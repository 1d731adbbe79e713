package app

import (
	"context"
	"fmt"
	"strings"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
	"github.com/eugener/papertrail/internal/document"
)

const notebookPrompt = "You write teaching notebooks about research papers. " +
	"Given a paper's metadata and abstract, write a short tutorial in Markdown " +
	"that explains its main idea and reproduces a toy version of the method. " +
	"Put runnable Python in fenced ```python blocks. Do not add a title."

// NotebookService generates explanatory Jupyter notebooks for papers.
type NotebookService struct {
	papers  *PaperService
	llm     papertrail.Completer
	fetcher *cache.Fetcher
	ttl     TTLFunc
}

// NewNotebookService returns a NotebookService.
func NewNotebookService(papers *PaperService, llm papertrail.Completer, fetcher *cache.Fetcher, ttl TTLFunc) *NotebookService {
	if ttl == nil {
		ttl = ttlFunc(nil)
	}
	return &NotebookService{papers: papers, llm: llm, fetcher: fetcher, ttl: ttl}
}

// Generate returns a notebook explaining paperID. The returned notebook is
// shared with the cache and must not be modified.
func (s *NotebookService) Generate(ctx context.Context, paperID string) (*document.Notebook, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("notebook: %w: no language model configured", papertrail.ErrUpstream)
	}
	paper, err := s.papers.Paper(ctx, paperID)
	if err != nil {
		return nil, err
	}

	key := cache.MustKey(PrefixNotebook, map[string]any{"id": paper.ID, "model": s.llm.Model()})
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (*document.Notebook, error) {
		body, err := s.llm.Prompt(ctx, notebookPrompt, describePaper(paper))
		if err != nil {
			return nil, fmt.Errorf("notebook: %w", err)
		}
		nb := document.FromMarkdown(paper.Title, body)
		nb.Cells = append([]document.Cell{{Type: document.Markdown, Source: notebookHeader(paper)}}, nb.Cells...)
		return nb, nil
	}, s.ttl(PrefixNotebook))
}

func describePaper(p *papertrail.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if names := p.AuthorNames(); len(names) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(names, ", "))
	}
	if p.Year > 0 {
		fmt.Fprintf(&b, "Year: %d\n", p.Year)
	}
	if p.Abstract != "" {
		fmt.Fprintf(&b, "\nAbstract:\n%s\n", p.Abstract)
	}
	return b.String()
}

func notebookHeader(p *papertrail.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s", p.Title)
	if names := p.AuthorNames(); len(names) > 0 {
		fmt.Fprintf(&b, "\n\n%s", strings.Join(names, ", "))
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "\n\n<%s>", p.URL)
	}
	return b.String()
}
