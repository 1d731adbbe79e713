package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
)

const (
	// MaxGraphDepth bounds the breadth-first expansion.
	MaxGraphDepth = 3
	// graphConcurrency bounds in-flight citation lookups per level.
	graphConcurrency = 4
)

// Graph builds the citation neighbourhood of rootID breadth-first: level n+1
// holds up to perNode citing papers of every paper first seen at level n.
// Every node lookup is memoized individually and the finished graph is
// memoized as a whole. Papers the source cannot find are skipped.
func (s *PaperService) Graph(ctx context.Context, rootID string, depth, perNode int) (*papertrail.CitationGraph, error) {
	if rootID == "" {
		return nil, fmt.Errorf("graph: %w: empty id", papertrail.ErrBadRequest)
	}
	if depth < 0 || depth > MaxGraphDepth {
		return nil, fmt.Errorf("graph: %w: depth %d outside [0, %d]", papertrail.ErrBadRequest, depth, MaxGraphDepth)
	}
	if perNode <= 0 {
		perNode = defaultLimit
	}
	key := cache.MustKey(PrefixGraph, map[string]any{"id": rootID, "depth": depth, "per_node": perNode})
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (*papertrail.CitationGraph, error) {
		return s.buildGraph(ctx, rootID, depth, perNode)
	}, s.ttl(PrefixGraph))
}

func (s *PaperService) buildGraph(ctx context.Context, rootID string, depth, perNode int) (*papertrail.CitationGraph, error) {
	root, err := s.Paper(ctx, rootID)
	if err != nil {
		return nil, err
	}
	g := &papertrail.CitationGraph{
		Root:   root.ID,
		Depth:  depth,
		Papers: map[string]papertrail.Paper{root.ID: *root},
		Edges:  []papertrail.CitationEdge{},
	}

	var mu sync.Mutex
	frontier := []string{root.ID}
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(graphConcurrency)
		for _, id := range frontier {
			eg.Go(func() error {
				citing, err := s.Citations(egctx, id, perNode)
				if errors.Is(err, papertrail.ErrNotFound) {
					slog.Debug("graph node not found", "paper_id", id)
					return nil
				}
				if err != nil {
					return fmt.Errorf("citations of %s: %w", id, err)
				}
				mu.Lock()
				defer mu.Unlock()
				for _, p := range citing {
					g.Edges = append(g.Edges, papertrail.CitationEdge{From: p.ID, To: id})
					if _, seen := g.Papers[p.ID]; !seen {
						g.Papers[p.ID] = p
						next = append(next, p.ID)
					}
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		slices.Sort(next)
		frontier = next
	}

	slices.SortFunc(g.Edges, func(a, b papertrail.CitationEdge) int {
		return cmp.Or(cmp.Compare(a.To, b.To), cmp.Compare(a.From, b.From))
	})
	g.Edges = slices.Compact(g.Edges)
	return g, nil
}
