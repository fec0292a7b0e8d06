package stages

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/llmcall"
	"github.com/jackzampolin/papercheck/internal/providers"
	"github.com/jackzampolin/papercheck/internal/record"
)

// MistakesConfig configures the mistakes stage.
type MistakesConfig struct {
	Detector  providers.MistakeDetector
	FS        afero.Fs
	Artifacts ArtifactWriter
	Workers   int // Concurrent pages (default 1)
	Logger    *slog.Logger
}

// Mistakes lists graded mistakes page by page. A page that fails is logged,
// kept as an error artifact and recorded in FailedPages; the other pages
// still count.
type Mistakes struct {
	detector  providers.MistakeDetector
	fs        afero.Fs
	artifacts ArtifactWriter
	workers   int
	logger    *slog.Logger
}

// NewMistakes creates the mistakes stage.
func NewMistakes(cfg MistakesConfig) *Mistakes {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mistakes{
		detector:  cfg.Detector,
		fs:        cfg.FS,
		artifacts: cfg.Artifacts,
		workers:   cfg.Workers,
		logger:    cfg.Logger.With("stage", NameMistakes),
	}
}

func (s *Mistakes) Name() string           { return NameMistakes }
func (s *Mistakes) Dependencies() []string { return nil }

type pageResult struct {
	mistakes []record.Mistake
	err      error
}

// Apply sets rec.Mistakes and rec.FailedPages. Results are collected by
// page index, so the order is page order whatever the completion order.
// Cancellation aborts the whole stage.
func (s *Mistakes) Apply(ctx context.Context, rec *record.Record, in document.Input) error {
	n := in.PageCount()
	results := make([]pageResult, n)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := 0; i < n && ctx.Err() == nil; i++ {
		g.Go(func() error {
			results[i] = s.page(ctx, in, i)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return stageError(NameMistakes, err)
	}

	mistakes := []record.Mistake{}
	failed := []int{}
	for i, r := range results {
		if r.err != nil {
			failed = append(failed, i+1)
			continue
		}
		mistakes = append(mistakes, r.mistakes...)
	}

	rec.SetMistakes(mistakes, failed)
	s.logger.Debug("detected mistakes", "path", in.SourcePath(), "pages", n, "mistakes", len(mistakes), "failed_pages", failed)
	return nil
}

// page processes one 0-based page index.
func (s *Mistakes) page(ctx context.Context, in document.Input, index int) pageResult {
	number := index + 1

	page, err := document.LoadPage(s.fs, in, index)
	if err != nil {
		return s.isolate(in.SourcePath(), number, nil, "", err)
	}

	found, err := s.detector.DetectMistakes(llmcall.WithPage(ctx, number), providers.Image{Data: page.Data, MIME: page.MIME})
	if err != nil {
		if ctx.Err() != nil {
			return pageResult{err: ctx.Err()}
		}
		return s.isolate(in.SourcePath(), number, page.Data, page.MIME, err)
	}

	out := make([]record.Mistake, len(found))
	for i, m := range found {
		m.Page = number
		out[i] = m
	}
	return pageResult{mistakes: out}
}

// isolate logs a page failure and keeps the page bytes when there are any.
func (s *Mistakes) isolate(doc string, number int, data []byte, mime string, cause error) pageResult {
	perr := &PageError{Page: number, Err: cause}
	logger := s.logger.With("path", doc, "page", number)

	if data != nil && s.artifacts != nil {
		artifact, err := s.artifacts.WritePage(doc, number, data, mime)
		if err != nil {
			logger.Error("failed to write error artifact", "error", err)
		} else {
			logger = logger.With("artifact", artifact)
		}
	}
	logger.Warn("page failed, continuing", "error", perr)
	return pageResult{err: perr}
}
