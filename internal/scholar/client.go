// Package scholar implements a client for the Semantic Scholar Graph API.
package scholar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/ratelimit"
	"github.com/eugener/papertrail/internal/upstream"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	serviceName    = "scholar"

	// paperFields is the field list requested for every paper record.
	paperFields = "paperId,title,abstract,year,venue,url,authors,citationCount,referenceCount,externalIds"

	// maxLimit is the API's page size cap for search and citation listings.
	maxLimit = 100
)

// Client is a Semantic Scholar Graph API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
	limiter *ratelimit.Limiter // nil = unlimited
}

// New creates a Client. If baseURL is empty, the public Graph API is used.
// An empty apiKey uses the unauthenticated (shared) rate limit.
func New(baseURL, apiKey string, client *upstream.Client, limiter *ratelimit.Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(serviceName, nil, 0, nil)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    client,
		limiter: limiter,
	}
}

// Search runs a relevance search.
func (c *Client) Search(ctx context.Context, q papertrail.SearchQuery) (*papertrail.SearchResult, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("scholar: %w: empty query", papertrail.ErrBadRequest)
	}
	v := url.Values{}
	v.Set("query", q.Query)
	v.Set("fields", paperFields)
	v.Set("limit", strconv.Itoa(clampLimit(q.Limit)))
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Year != "" {
		v.Set("year", q.Year)
	}

	data, err := c.get(ctx, "/paper/search", v, "search")
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(data)
	out := &papertrail.SearchResult{
		Total:  int(res.Get("total").Int()),
		Offset: int(res.Get("offset").Int()),
	}
	for _, p := range res.Get("data").Array() {
		out.Papers = append(out.Papers, parsePaper(p))
	}
	return out, nil
}

// Paper returns a single paper. id may be a Semantic Scholar ID or a
// prefixed external ID such as "DOI:10.1145/..." or "ARXIV:1706.03762".
func (c *Client) Paper(ctx context.Context, id string) (*papertrail.Paper, error) {
	if id == "" {
		return nil, fmt.Errorf("scholar: %w: empty paper id", papertrail.ErrBadRequest)
	}
	v := url.Values{}
	v.Set("fields", paperFields)

	data, err := c.get(ctx, "/paper/"+escapeID(id), v, "paper")
	if err != nil {
		return nil, err
	}
	p := parsePaper(gjson.ParseBytes(data))
	return &p, nil
}

// Citations returns papers citing id.
func (c *Client) Citations(ctx context.Context, id string, limit int) ([]papertrail.Paper, error) {
	return c.listing(ctx, id, "citations", "citingPaper", limit)
}

// References returns papers cited by id.
func (c *Client) References(ctx context.Context, id string, limit int) ([]papertrail.Paper, error) {
	return c.listing(ctx, id, "references", "citedPaper", limit)
}

func (c *Client) listing(ctx context.Context, id, kind, field string, limit int) ([]papertrail.Paper, error) {
	if id == "" {
		return nil, fmt.Errorf("scholar: %w: empty paper id", papertrail.ErrBadRequest)
	}
	v := url.Values{}
	v.Set("fields", paperFields)
	v.Set("limit", strconv.Itoa(clampLimit(limit)))

	data, err := c.get(ctx, "/paper/"+escapeID(id)+"/"+kind, v, kind)
	if err != nil {
		return nil, err
	}

	var out []papertrail.Paper
	for _, item := range gjson.GetBytes(data, "data").Array() {
		p := item.Get(field)
		// The API returns stub entries with a null paperId for unresolved works.
		if !p.Get("paperId").Exists() || p.Get("paperId").Type == gjson.Null {
			continue
		}
		out = append(out, parsePaper(p))
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, op string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("scholar: rate limit wait: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("scholar: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	return c.http.Do(req, op)
}

// parsePaper maps a Graph API paper object onto the domain type.
func parsePaper(r gjson.Result) papertrail.Paper {
	p := papertrail.Paper{
		ID:             r.Get("paperId").String(),
		Title:          r.Get("title").String(),
		Abstract:       r.Get("abstract").String(),
		Year:           int(r.Get("year").Int()),
		Venue:          r.Get("venue").String(),
		URL:            r.Get("url").String(),
		CitationCount:  int(r.Get("citationCount").Int()),
		ReferenceCount: int(r.Get("referenceCount").Int()),
	}
	for _, a := range r.Get("authors").Array() {
		p.Authors = append(p.Authors, papertrail.Author{
			ID:   a.Get("authorId").String(),
			Name: a.Get("name").String(),
		})
	}
	if ext := r.Get("externalIds"); ext.IsObject() {
		p.ExternalIDs = make(map[string]string)
		ext.ForEach(func(k, v gjson.Result) bool {
			p.ExternalIDs[k.String()] = v.String()
			return true
		})
	}
	return p
}

// escapeID escapes a paper ID for use in a path, keeping the slashes that
// DOI-style IDs contain.
func escapeID(id string) string {
	return strings.ReplaceAll(url.PathEscape(id), "%2F", "/")
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 10
	case n > maxLimit:
		return maxLimit
	default:
		return n
	}
}
