// Package testutil provides configurable test fakes for papertrail interfaces.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	papertrail "github.com/eugener/papertrail/internal"
)

// FakeSource is a configurable papertrail.PaperSource for testing.
// Papers, CitedBy and Refs back the default behavior; the Fn fields override it.
type FakeSource struct {
	Papers  map[string]papertrail.Paper
	CitedBy map[string][]string // paper ID -> IDs of citing papers
	Refs    map[string][]string // paper ID -> IDs of referenced papers

	SearchFn    func(ctx context.Context, q papertrail.SearchQuery) (*papertrail.SearchResult, error)
	PaperFn     func(ctx context.Context, id string) (*papertrail.Paper, error)
	CitationsFn func(ctx context.Context, id string, limit int) ([]papertrail.Paper, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewFakeSource returns a FakeSource with empty collections.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Papers:  make(map[string]papertrail.Paper),
		CitedBy: make(map[string][]string),
		Refs:    make(map[string][]string),
	}
}

// AddPaper inserts a paper.
func (f *FakeSource) AddPaper(p papertrail.Paper) {
	f.mu.Lock()
	f.Papers[p.ID] = p
	f.mu.Unlock()
}

// AddCitation records that citing cites cited, in both directions.
func (f *FakeSource) AddCitation(citing, cited string) {
	f.mu.Lock()
	f.CitedBy[cited] = append(f.CitedBy[cited], citing)
	f.Refs[citing] = append(f.Refs[citing], cited)
	f.mu.Unlock()
}

// Calls returns how many times op ("search", "paper", "citations",
// "references") was invoked.
func (f *FakeSource) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeSource) count(op string) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
	f.mu.Unlock()
}

// Search delegates to SearchFn or returns every paper whose title contains the query.
func (f *FakeSource) Search(ctx context.Context, q papertrail.SearchQuery) (*papertrail.SearchResult, error) {
	f.count("search")
	if f.SearchFn != nil {
		return f.SearchFn(ctx, q)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	res := &papertrail.SearchResult{Offset: q.Offset}
	for _, p := range f.Papers {
		if q.Query == "" || containsFold(p.Title, q.Query) {
			res.Papers = append(res.Papers, p)
		}
	}
	res.Total = len(res.Papers)
	return res, nil
}

// Paper delegates to PaperFn or looks the paper up in Papers.
func (f *FakeSource) Paper(ctx context.Context, id string) (*papertrail.Paper, error) {
	f.count("paper")
	if f.PaperFn != nil {
		return f.PaperFn(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Papers[id]
	if !ok {
		return nil, fmt.Errorf("paper %q: %w", id, papertrail.ErrNotFound)
	}
	return &p, nil
}

// Citations delegates to CitationsFn or resolves CitedBy.
func (f *FakeSource) Citations(ctx context.Context, id string, limit int) ([]papertrail.Paper, error) {
	f.count("citations")
	if f.CitationsFn != nil {
		return f.CitationsFn(ctx, id, limit)
	}
	return f.resolve(f.CitedBy, id, limit)
}

// References resolves Refs.
func (f *FakeSource) References(_ context.Context, id string, limit int) ([]papertrail.Paper, error) {
	f.count("references")
	return f.resolve(f.Refs, id, limit)
}

func (f *FakeSource) resolve(links map[string][]string, id string, limit int) ([]papertrail.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Papers[id]; !ok {
		return nil, fmt.Errorf("paper %q: %w", id, papertrail.ErrNotFound)
	}
	var out []papertrail.Paper
	for _, linked := range links[id] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if p, ok := f.Papers[linked]; ok {
			out = append(out, p)
		} else {
			out = append(out, papertrail.Paper{ID: linked})
		}
	}
	return out, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
