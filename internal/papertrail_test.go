package papertrail

import (
	"context"
	"slices"
	"testing"
)

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("empty context id = %q, want empty", id)
	}
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if id := RequestIDFromContext(ctx); id != "req-1" {
		t.Errorf("id = %q, want req-1", id)
	}
}

func TestPaper_AuthorNames(t *testing.T) {
	t.Parallel()

	p := Paper{Authors: []Author{{ID: "1", Name: "Ada"}, {Name: "Alan"}}}
	if got, want := p.AuthorNames(), []string{"Ada", "Alan"}; !slices.Equal(got, want) {
		t.Errorf("AuthorNames = %v, want %v", got, want)
	}
	if got := (&Paper{}).AuthorNames(); len(got) != 0 {
		t.Errorf("no authors = %v, want empty", got)
	}
}
