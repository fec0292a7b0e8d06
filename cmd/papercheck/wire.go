package main

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/llmcall"
	"github.com/jackzampolin/papercheck/internal/pipeline"
	"github.com/jackzampolin/papercheck/internal/providers"
	"github.com/jackzampolin/papercheck/internal/raster"
	"github.com/jackzampolin/papercheck/internal/stages"
	"github.com/jackzampolin/papercheck/internal/svcctx"
)

// errNoEndpoint is returned when a reasoning stage is configured without an endpoint.
var errNoEndpoint = errors.New("reasoning.base_url is not set (set LLM_BASE_URL or PAPERCHECK_REASONING_BASE_URL)")

// buildPipeline wires the configured collaborators, stages and store into
// an orchestrator.
func buildPipeline(cfg *config.Config, s *svcctx.Services) (*pipeline.Orchestrator, error) {
	chain, err := buildStages(cfg, s)
	if err != nil {
		return nil, err
	}

	rasterizer := raster.NewPdftoppm(raster.PdftoppmConfig{
		Command: cfg.Raster.Command,
		Workers: cfg.Raster.Workers,
		Logger:  s.Logger,
	})
	if err := rasterizer.Available(); err != nil {
		s.Logger.Warn("PDF input will fail", "error", err)
	}

	return pipeline.New(pipeline.Config{
		FS:           s.FS,
		InputDir:     cfg.InputDir,
		Excludes:     cfg.Exclude,
		ArtifactsDir: cfg.ErrorsDir,
		Workers:      cfg.Workers,
		Normalizer: document.NewNormalizer(document.NormalizerConfig{
			FS:         s.FS,
			Rasterizer: rasterizer,
			DPI:        cfg.Raster.DPI,
			Logger:     s.Logger,
		}),
		Stages: chain,
		Store:  s.Store,
		Logger: s.Logger,
	})
}

// buildDiscoverer wires an orchestrator that can only discover.
func buildDiscoverer(cfg *config.Config, s *svcctx.Services) (*pipeline.Orchestrator, error) {
	return pipeline.New(pipeline.Config{
		FS:           s.FS,
		InputDir:     cfg.InputDir,
		Excludes:     cfg.Exclude,
		ArtifactsDir: cfg.ErrorsDir,
		Normalizer:   document.NewNormalizer(document.NormalizerConfig{FS: s.FS, Logger: s.Logger}),
		Store:        s.Store,
		Logger:       s.Logger,
	})
}

// buildStages registers the configured stages and returns them as a
// validated chain in configured order.
func buildStages(cfg *config.Config, s *svcctx.Services) ([]stages.Stage, error) {
	var reasoner *providers.Reasoner
	if cfg.NeedsReasoning() {
		if cfg.Reasoning.BaseURL == "" {
			return nil, errNoEndpoint
		}
		var err error
		reasoner, err = providers.NewReasoner(providers.ReasonerConfig{
			BaseURL:        cfg.Reasoning.BaseURL,
			APIKey:         cfg.Reasoning.APIKey,
			ClassifyModel:  cfg.Classify.Model,
			MistakesModel:  cfg.Mistakes.Model,
			ResponseFormat: cfg.Reasoning.ResponseFormat,
			Timeout:        cfg.Reasoning.Timeout,
			MaxRetries:     cfg.Reasoning.MaxRetries,
			RetryDelay:     cfg.Reasoning.RetryDelay,
			RateLimit:      cfg.Reasoning.RateLimit,
			Prompts:        s.Prompts,
			Recorder:       callRecorder(cfg, s),
			Logger:         s.Logger,
		})
		if err != nil {
			return nil, err
		}
	}

	registry := pipeline.NewRegistry()
	for _, name := range cfg.Stages {
		var (
			stage stages.Stage
			err   error
		)
		switch name {
		case stages.NameExtract:
			ocr := providers.NewTesseract(providers.TesseractConfig{Languages: cfg.OCR.Languages})
			stage = stages.NewExtract(ocr, s.FS, s.Logger)
		case stages.NameClassify:
			stage, err = stages.NewClassify(stages.ClassifyConfig{
				Classifier:   reasoner,
				FS:           s.FS,
				Mode:         cfg.Classify.Mode,
				ContextLines: cfg.Classify.ContextLines,
				Logger:       s.Logger,
			})
		case stages.NameMistakes:
			stage = stages.NewMistakes(stages.MistakesConfig{
				Detector:  reasoner,
				FS:        s.FS,
				Artifacts: stages.NewDirArtifacts(s.FS, cfg.ErrorsDir),
				Workers:   cfg.PageWorkers,
				Logger:    s.Logger,
			})
		default:
			err = fmt.Errorf("%w: %s", pipeline.ErrStageNotFound, name)
		}
		if err != nil {
			return nil, err
		}
		if err := registry.Register(stage); err != nil {
			return nil, err
		}
	}

	return registry.Chain(cfg.Stages)
}

// callRecorder returns the reasoning call recorder, or nil when tracing is off.
func callRecorder(cfg *config.Config, s *svcctx.Services) *llmcall.Recorder {
	if !cfg.Reasoning.Trace {
		return nil
	}
	return llmcall.NewRecorder(s.FS, s.Home.CallsPath(), s.Logger)
}
