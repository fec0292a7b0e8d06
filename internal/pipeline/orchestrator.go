// Package pipeline discovers unprocessed papers and runs each one through
// normalization, the enrichment chain and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/llmcall"
	"github.com/jackzampolin/papercheck/internal/record"
	"github.com/jackzampolin/papercheck/internal/stages"
)

// Normalizer turns a document path into a stage input.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (document.Input, error)
}

// Config configures an Orchestrator.
type Config struct {
	FS           afero.Fs
	InputDir     string
	Excludes     []string // Directory globs; DefaultExcludes when nil
	ArtifactsDir string   // Never walked
	Workers      int      // Concurrent documents (default 1)
	Normalizer   Normalizer
	Stages       []stages.Stage
	Store        *record.Store
	Logger       *slog.Logger
}

// Orchestrator runs batches over an input directory.
type Orchestrator struct {
	fs           afero.Fs
	inputDir     string
	excludes     []string
	artifactsDir string // Absolute
	workers      int
	normalizer   Normalizer
	stages       []stages.Stage
	store        *record.Store
	logger       *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.FS == nil {
		return nil, errors.New("filesystem is required")
	}
	if cfg.InputDir == "" {
		return nil, errors.New("input dir is required")
	}
	if cfg.Normalizer == nil {
		return nil, errors.New("normalizer is required")
	}
	if cfg.Store == nil {
		cfg.Store = record.NewStore(cfg.FS)
	}
	if cfg.Excludes == nil {
		cfg.Excludes = DefaultExcludes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		fs:           cfg.FS,
		inputDir:     cfg.InputDir,
		excludes:     cfg.Excludes,
		artifactsDir: absPath(cfg.ArtifactsDir),
		workers:      cfg.Workers,
		normalizer:   cfg.Normalizer,
		stages:       cfg.Stages,
		store:        cfg.Store,
		logger:       cfg.Logger.With("component", "pipeline"),
	}, nil
}

// Run discovers once and processes every discovered document. A failing
// document never stops the batch. The returned error is non-nil only when
// discovery fails or ctx is canceled; the report is returned either way
// once discovery succeeded.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		InputDir:  o.inputDir,
		StartedAt: time.Now(),
	}
	logger := o.logger.With("run_id", report.RunID)
	ctx = llmcall.WithRun(ctx, report.RunID)

	docs, err := o.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	logger.Info("batch started", "input_dir", o.inputDir, "documents", len(docs), "workers", o.workers)

	report.Outcomes = make([]Outcome, len(docs))
	for i, doc := range docs {
		report.Outcomes[i] = Outcome{Path: doc, State: StateCanceled}
	}

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report.Outcomes[i] = o.process(ctx, logger, doc)
			return nil
		})
	}
	_ = g.Wait()

	report.tally()
	report.Seconds = time.Since(report.StartedAt).Seconds()
	logger.Info("batch finished",
		"persisted", report.Persisted,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"canceled", report.Canceled,
		"seconds", report.Seconds,
	)
	return report, ctx.Err()
}

// process takes one document from Discovered to Persisted or Failed.
func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, doc string) Outcome {
	start := time.Now()
	ctx = llmcall.WithDocument(ctx, doc)
	logger = logger.With("path", doc)
	out := Outcome{Path: doc}
	finish := func(state State, failedAt string, err error) Outcome {
		out.State = state
		out.FailedAt = failedAt
		out.Err = err
		if err != nil {
			out.Error = err.Error()
		}
		if state != StatePersisted && errors.Is(err, context.Canceled) {
			out.State = StateCanceled
		}
		out.Seconds = time.Since(start).Seconds()
		return out
	}

	in, err := o.normalizer.Normalize(ctx, doc)
	if err != nil {
		if errors.Is(err, document.ErrUnsupportedFormat) {
			logger.Warn("skipping unsupported document", "error", err)
			return finish(StateSkipped, "", err)
		}
		logger.Error("document failed", "stage", FailedAtNormalize, "error", err)
		return finish(StateFailed, FailedAtNormalize, err)
	}

	rec := &record.Record{}
	for _, s := range o.stages {
		if err := s.Apply(ctx, rec, in); err != nil {
			var se *stages.StageError
			if !errors.As(err, &se) {
				err = &stages.StageError{Stage: s.Name(), Err: err}
			}
			logger.Error("document failed", "stage", s.Name(), "error", err)
			return finish(StateFailed, s.Name(), err)
		}
	}

	if err := o.store.Persist(rec, doc); err != nil {
		logger.Error("document failed", "stage", FailedAtPersist, "error", err)
		return finish(StateFailed, FailedAtPersist, err)
	}

	out.Subject = rec.Subject
	out.Mistakes = rec.MistakesCount()
	out.FailedPages = rec.FailedPages
	logger.Info("document persisted",
		"sidecar", record.SidecarPath(doc),
		"subject", rec.Subject,
		"mistakes", rec.MistakesCount(),
		"failed_pages", rec.FailedPages,
	)
	return finish(StatePersisted, "", nil)
}
