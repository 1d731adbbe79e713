package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/app"
	"github.com/eugener/papertrail/internal/auth"
	"github.com/eugener/papertrail/internal/cache"
	"github.com/eugener/papertrail/internal/config"
	"github.com/eugener/papertrail/internal/telemetry"
	"github.com/eugener/papertrail/internal/testutil"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type testEnv struct {
	handler http.Handler
	app     *app.App
	source  *testutil.FakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	src := testutil.NewFakeSource()
	for _, id := range []string{"p1", "p2", "10.1000/xyz"} {
		src.AddPaper(testutil.Paper(id))
	}
	src.AddCitation("p2", "p1")

	a := app.New(config.Default(), app.Deps{Source: src, LLM: &testutil.FakeCompleter{}})
	return &testEnv{
		handler: New(Deps{App: a}),
		app:     a,
		source:  src,
	}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := newTestEnv(t).do(http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	h := New(Deps{App: env.app, Tracing: true})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/papers/p1", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request ID behind tracing middleware")
	}
}

func TestReadyzFailing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	h := New(Deps{
		App: env.app,
		ReadyCheck: func(context.Context) error {
			return errors.New("upstream down")
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("request id = %q, want caller-id", got)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for range 2 {
		rec := env.do(http.MethodGet, "/v1/papers/search?q=paper+p2&limit=5", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
		}
		res := decode[papertrail.SearchResult](t, rec)
		if res.Total != 1 || res.Papers[0].ID != "p2" {
			t.Errorf("result = %+v", res)
		}
	}
	if n := env.source.Calls("search"); n != 1 {
		t.Errorf("source searches = %d, want 1", n)
	}
}

func TestSearch_BadRequest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name, target string
	}{
		{"missing query", "/v1/papers/search"},
		{"bad limit", "/v1/papers/search?q=x&limit=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := env.do(http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if e := decode[apiError](t, rec); e.Error.Type != "invalid_request_error" {
				t.Errorf("error type = %q", e.Error.Type)
			}
		})
	}
}

func TestPaper(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/papers/p1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if p := decode[papertrail.Paper](t, rec); p.ID != "p1" {
		t.Errorf("id = %q, want p1", p.ID)
	}

	rec = env.do(http.MethodGet, "/v1/papers/10.1000%2Fxyz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("escaped id: status = %d; body = %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/v1/papers/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing paper: status = %d, want 404", rec.Code)
	}
}

func TestCitationsAndReferences(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/papers/p1/citations?limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if res := decode[linksResponse](t, rec); len(res.Papers) != 1 || res.Papers[0].ID != "p2" {
		t.Errorf("citations = %+v", res)
	}

	rec = env.do(http.MethodGet, "/v1/papers/p1/references", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"papers":[]`) {
		t.Errorf("empty references should encode as [], got %s", rec.Body.String())
	}
}

func TestGraph(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/papers/p1/graph?depth=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
	}
	g := decode[papertrail.CitationGraph](t, rec)
	if len(g.Papers) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph = %+v", g)
	}

	rec = env.do(http.MethodGet, "/v1/papers/p1/graph?depth=9", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("deep graph: status = %d, want 400", rec.Code)
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/translate", `{"text":"hello","lang":"de"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if tr := decode[papertrail.Translation](t, rec); tr.Text != "echo: hello" {
		t.Errorf("text = %q", tr.Text)
	}

	rec = env.do(http.MethodPost, "/v1/translate", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}
}

func TestReportAndNotebook(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/papers/p1/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "# Paper p1") {
		t.Errorf("report = %q", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/v1/papers/p1/notebook", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("notebook: status = %d; body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ipynb+json" {
		t.Errorf("content type = %q", ct)
	}
	if nb := decode[map[string]any](t, rec); nb["nbformat"] != float64(4) {
		t.Errorf("nbformat = %v", nb["nbformat"])
	}
}

func TestCacheAdmin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.do(http.MethodGet, "/v1/papers/p1", "")
	env.do(http.MethodGet, "/v1/papers/p2", "")
	env.do(http.MethodGet, "/v1/papers/p1/citations", "")

	rec := env.do(http.MethodGet, "/v1/cache/stats", "")
	st := decode[cache.Stats](t, rec)
	if st.Size != 3 || st.MaxSize != 100 || len(st.Keys) != 3 {
		t.Errorf("stats = %+v", st)
	}

	// Invalid pattern leaves the cache untouched.
	rec = env.do(http.MethodPost, "/v1/cache/clear", `{"pattern":"paper:("}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid pattern: status = %d, want 400", rec.Code)
	}
	if env.app.Store.Len() != 3 {
		t.Errorf("len = %d after invalid pattern, want 3", env.app.Store.Len())
	}

	rec = env.do(http.MethodPost, "/v1/cache/clear", `{"pattern":"^paper:"}`)
	if res := decode[clearResponse](t, rec); res.Removed != 2 {
		t.Errorf("removed = %d, want 2", res.Removed)
	}

	key := cache.MustKey(app.PrefixCitations, map[string]any{"id": "p1", "limit": 10})
	rec = env.do(http.MethodDelete, "/v1/cache/keys/"+escapePath(key), "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204; body = %s", rec.Code, rec.Body.String())
	}
	rec = env.do(http.MethodDelete, "/v1/cache/keys/"+escapePath(key), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}

	env.do(http.MethodGet, "/v1/papers/p1", "")
	rec = env.do(http.MethodPost, "/v1/cache/clear", "")
	if res := decode[clearResponse](t, rec); res.Removed != 1 {
		t.Errorf("clear all removed = %d, want 1", res.Removed)
	}
	if env.app.Store.Len() != 0 {
		t.Error("cache should be empty")
	}
}

func TestCacheAdmin_RequiresToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	h := New(Deps{App: env.app, Admin: auth.NewTokenAuth("s3cret")})

	tests := []struct {
		name, method, target, token string
		want                        int
	}{
		{"stats without token", http.MethodGet, "/v1/cache/stats", "", http.StatusUnauthorized},
		{"stats wrong token", http.MethodGet, "/v1/cache/stats", "nope", http.StatusUnauthorized},
		{"stats with token", http.MethodGet, "/v1/cache/stats", "s3cret", http.StatusOK},
		{"clear without token", http.MethodPost, "/v1/cache/clear", "", http.StatusUnauthorized},
		{"invalidate without token", http.MethodDelete, "/v1/papers/p1/cache", "", http.StatusUnauthorized},
		{"invalidate with token", http.MethodDelete, "/v1/papers/p1/cache", "s3cret", http.StatusOK},
		{"paper is public", http.MethodGet, "/v1/papers/p1", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestInvalidatePaper(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.do(http.MethodGet, "/v1/papers/p1", "")
	env.do(http.MethodGet, "/v1/papers/p1/citations", "")
	env.do(http.MethodGet, "/v1/papers/p2", "")

	rec := env.do(http.MethodDelete, "/v1/papers/p1/cache", "")
	if res := decode[invalidateResponse](t, rec); res.Removed != 2 {
		t.Errorf("removed = %d, want 2", res.Removed)
	}
	if env.app.Store.Len() != 1 {
		t.Errorf("len = %d, want 1", env.app.Store.Len())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	reg := prometheus.NewRegistry()
	h := New(Deps{
		App:            env.app,
		Metrics:        telemetry.NewMetrics(reg),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/papers/p1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("paper: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"papertrail_requests_total", "papertrail_request_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics should contain %s", name)
		}
	}
	if !strings.Contains(body, `path="/v1/papers/{id}`) {
		t.Errorf("request metrics should use the route pattern:\n%s", body)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	s := &server{}
	h := s.recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func escapePath(s string) string {
	return strings.NewReplacer(`"`, "%22", "&", "%26", "/", "%2F").Replace(s)
}
