package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
	"github.com/eugener/papertrail/internal/tokencount"
)

const translatePrompt = "You are a professional translator of scientific text. " +
	"Translate the user's text into %s. Preserve technical terms, formulas and " +
	"citations. Reply with the translation only."

// TranslateService translates text with the LLM. Long texts are split into
// chunks that fit the model's budget; each chunk is memoized by content hash,
// so re-translating an edited document only pays for the changed chunks.
type TranslateService struct {
	llm         papertrail.Completer
	fetcher     *cache.Fetcher
	ttl         TTLFunc
	clock       clock.Clock
	chunkTokens int
}

// NewTranslateService returns a TranslateService. A nil llm makes every call
// fail with ErrUpstream; chunkTokens <= 0 sends each text in one request.
func NewTranslateService(llm papertrail.Completer, fetcher *cache.Fetcher, ttl TTLFunc, clk clock.Clock, chunkTokens int) *TranslateService {
	if ttl == nil {
		ttl = ttlFunc(nil)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &TranslateService{llm: llm, fetcher: fetcher, ttl: ttl, clock: clk, chunkTokens: chunkTokens}
}

// Translate returns text translated into lang.
func (s *TranslateService) Translate(ctx context.Context, text, lang string) (*papertrail.Translation, error) {
	chunks := tokencount.Split(text, s.chunkTokens)
	if len(chunks) == 0 || lang == "" {
		return nil, fmt.Errorf("translate: %w: text and target language are required", papertrail.ErrBadRequest)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("translate: %w: no language model configured", papertrail.ErrUpstream)
	}

	model := s.llm.Model()
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		out, err := s.translateChunk(ctx, chunk, lang, model)
		if err != nil {
			if len(chunks) > 1 {
				return nil, fmt.Errorf("translate: chunk %d/%d: %w", i+1, len(chunks), err)
			}
			return nil, fmt.Errorf("translate: %w", err)
		}
		parts[i] = out
	}
	return &papertrail.Translation{
		Source:     text,
		TargetLang: lang,
		Text:       strings.Join(parts, "\n\n"),
		Model:      model,
		CreatedAt:  s.clock.Now().UTC(),
	}, nil
}

func (s *TranslateService) translateChunk(ctx context.Context, chunk, lang, model string) (string, error) {
	key, err := cache.CreateHashedKey(PrefixTranslate, map[string]any{"text": chunk, "lang": lang, "model": model})
	if err != nil {
		return "", err
	}
	return cache.Fetch(ctx, s.fetcher, key, func(ctx context.Context) (string, error) {
		out, err := s.llm.Prompt(ctx, fmt.Sprintf(translatePrompt, lang), chunk)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(out), nil
	}, s.ttl(PrefixTranslate))
}
