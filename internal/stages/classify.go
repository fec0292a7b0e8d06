package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/providers"
	"github.com/jackzampolin/papercheck/internal/record"
)

// Classification modes.
const (
	ModeText   = "text"
	ModeVision = "vision"
)

// DefaultContextLines is how many leading OCR lines text mode sends.
const DefaultContextLines = 30

// ClassifyConfig configures the classify stage.
type ClassifyConfig struct {
	Classifier   providers.Classifier
	FS           afero.Fs
	Mode         string // "text" (default) or "vision"
	ContextLines int    // Default 30
	Logger       *slog.Logger
}

// Classify decides the subject and title of the paper.
type Classify struct {
	classifier   providers.Classifier
	fs           afero.Fs
	mode         string
	contextLines int
	logger       *slog.Logger
}

// NewClassify creates the classify stage.
func NewClassify(cfg ClassifyConfig) (*Classify, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeText
	}
	if cfg.Mode != ModeText && cfg.Mode != ModeVision {
		return nil, fmt.Errorf("unknown classify mode %q", cfg.Mode)
	}
	if cfg.ContextLines <= 0 {
		cfg.ContextLines = DefaultContextLines
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Classify{
		classifier:   cfg.Classifier,
		fs:           cfg.FS,
		mode:         cfg.Mode,
		contextLines: cfg.ContextLines,
		logger:       cfg.Logger.With("stage", NameClassify),
	}, nil
}

func (s *Classify) Name() string { return NameClassify }

// Dependencies is extract in text mode and nothing in vision mode.
func (s *Classify) Dependencies() []string {
	if s.mode == ModeText {
		return []string{NameExtract}
	}
	return nil
}

// Apply sets rec.Subject and rec.Title.
func (s *Classify) Apply(ctx context.Context, rec *record.Record, in document.Input) error {
	var input providers.ClassifyInput
	switch s.mode {
	case ModeText:
		if !rec.HasTexts() {
			return stageError(NameClassify, fmt.Errorf("%w: no extracted texts", ErrPrecondition))
		}
		n := min(s.contextLines, len(rec.Texts))
		input.Texts = rec.Texts[:n]
	case ModeVision:
		page, err := document.LoadPage(s.fs, in, 0)
		if err != nil {
			return stageError(NameClassify, err)
		}
		input.Image = &providers.Image{Data: page.Data, MIME: page.MIME}
	}

	res, err := s.classifier.Classify(ctx, input)
	if err != nil {
		return stageError(NameClassify, err)
	}

	subject := strings.TrimSpace(res.Subject)
	if !record.ValidSubject(subject) {
		return stageError(NameClassify, fmt.Errorf("%w: %q", ErrInvalidSubject, res.Subject))
	}

	rec.Subject = subject
	rec.Title = strings.TrimSpace(res.Title)
	s.logger.Debug("classified paper", "path", in.SourcePath(), "subject", rec.Subject, "title", rec.Title)
	return nil
}
