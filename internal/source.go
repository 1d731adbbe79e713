package papertrail

import "context"

// PaperSource looks up papers and their citation links in a scholarly index.
type PaperSource interface {
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
	Paper(ctx context.Context, id string) (*Paper, error)
	Citations(ctx context.Context, id string, limit int) ([]Paper, error)
	References(ctx context.Context, id string, limit int) ([]Paper, error)
}

// Completer produces text with a language model.
type Completer interface {
	// Prompt sends a system + user message pair and returns the reply text.
	Prompt(ctx context.Context, system, user string) (string, error)
	// Model returns the model used for completions.
	Model() string
}
