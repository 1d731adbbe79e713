package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
)

const defaultLimit = 10

// PaperService answers paper lookups from the cache, falling back to the
// paper source on a miss. Returned values are shared with the cache and
// must not be modified.
type PaperService struct {
	source  papertrail.PaperSource
	fetcher *cache.Fetcher
	ttl     TTLFunc
}

// NewPaperService returns a PaperService that memoizes source through fetcher.
func NewPaperService(source papertrail.PaperSource, fetcher *cache.Fetcher, ttl TTLFunc) *PaperService {
	if ttl == nil {
		ttl = ttlFunc(nil)
	}
	return &PaperService{source: source, fetcher: fetcher, ttl: ttl}
}

// Search runs a keyword search. Limit defaults to 10.
func (s *PaperService) Search(ctx context.Context, q papertrail.SearchQuery) (*papertrail.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("search: %w: empty query", papertrail.ErrBadRequest)
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	key := cache.MustKey(PrefixSearch, map[string]any{
		"query":  q.Query,
		"limit":  q.Limit,
		"offset": q.Offset,
		"year":   q.Year,
	})
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (*papertrail.SearchResult, error) {
		return s.source.Search(ctx, q)
	}, s.ttl(PrefixSearch))
}

// Paper returns a single paper by ID.
func (s *PaperService) Paper(ctx context.Context, id string) (*papertrail.Paper, error) {
	if id == "" {
		return nil, fmt.Errorf("paper: %w: empty id", papertrail.ErrBadRequest)
	}
	key := cache.MustKey(PrefixPaper, map[string]any{"id": id})
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (*papertrail.Paper, error) {
		return s.source.Paper(ctx, id)
	}, s.ttl(PrefixPaper))
}

// Citations returns up to limit papers citing id.
func (s *PaperService) Citations(ctx context.Context, id string, limit int) ([]papertrail.Paper, error) {
	return s.links(ctx, PrefixCitations, id, limit, s.source.Citations)
}

// References returns up to limit papers referenced by id.
func (s *PaperService) References(ctx context.Context, id string, limit int) ([]papertrail.Paper, error) {
	return s.links(ctx, PrefixReferences, id, limit, s.source.References)
}

func (s *PaperService) links(ctx context.Context, prefix, id string, limit int,
	lookup func(context.Context, string, int) ([]papertrail.Paper, error),
) ([]papertrail.Paper, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty id", prefix, papertrail.ErrBadRequest)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	key := cache.MustKey(prefix, map[string]any{"id": id, "limit": limit})
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) ([]papertrail.Paper, error) {
		return lookup(ctx, id, limit)
	}, s.ttl(prefix))
}

// Invalidate removes every cached result whose key names paperID as its
// "id" parameter and returns how many entries were removed.
func (s *PaperService) Invalidate(paperID string) (int, error) {
	n, err := s.fetcher.Store().ClearPattern(idPattern(paperID))
	if err != nil {
		return 0, err
	}
	slog.Debug("invalidated paper", "paper_id", paperID, "removed", n)
	return n, nil
}

// idPattern matches the canonical encoding of an "id" key parameter.
func idPattern(paperID string) string {
	encoded, _ := json.Marshal(paperID) // strings always encode
	return `[:&]id=` + regexp.QuoteMeta(string(encoded)) + `(&|$)`
}
