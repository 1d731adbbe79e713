package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/eugener/papertrail/internal/document"
)

// ReportOptions controls report assembly.
type ReportOptions struct {
	Limit int    // citations and references per table; 0 = default
	Lang  string // translate the abstract into Lang when set
}

// ReportService assembles single-paper reports from cached lookups.
type ReportService struct {
	papers       *PaperService
	translations *TranslateService
}

// NewReportService returns a ReportService.
func NewReportService(papers *PaperService, translations *TranslateService) *ReportService {
	return &ReportService{papers: papers, translations: translations}
}

// Build fetches the paper, its citations and references concurrently and,
// when requested, translates the abstract.
func (s *ReportService) Build(ctx context.Context, paperID string, opts ReportOptions) (*document.Report, error) {
	paper, err := s.papers.Paper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	r := &document.Report{Paper: *paper}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r.Citations, err = s.papers.Citations(gctx, paper.ID, opts.Limit)
		return err
	})
	g.Go(func() error {
		var err error
		r.References, err = s.papers.References(gctx, paper.ID, opts.Limit)
		return err
	})
	if opts.Lang != "" && paper.Abstract != "" {
		g.Go(func() error {
			var err error
			r.Translation, err = s.translations.Translate(gctx, paper.Abstract, opts.Lang)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
