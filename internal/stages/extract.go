package stages

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/providers"
	"github.com/jackzampolin/papercheck/internal/record"
)

// Extract runs OCR on the first page and stores texts with their boxes.
// Later pages of a PDF are not examined.
type Extract struct {
	ocr    providers.OCR
	fs     afero.Fs
	logger *slog.Logger
}

// NewExtract creates the extract stage.
func NewExtract(ocr providers.OCR, fs afero.Fs, logger *slog.Logger) *Extract {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extract{ocr: ocr, fs: fs, logger: logger.With("stage", NameExtract)}
}

func (s *Extract) Name() string           { return NameExtract }
func (s *Extract) Dependencies() []string { return nil }

// Apply sets rec.Texts and rec.Boxes.
func (s *Extract) Apply(ctx context.Context, rec *record.Record, in document.Input) error {
	page, err := document.LoadPage(s.fs, in, 0)
	if err != nil {
		return stageError(NameExtract, err)
	}

	res, err := s.ocr.Extract(ctx, page.Data)
	if err != nil {
		return stageError(NameExtract, err)
	}
	if !res.Aligned() {
		return stageError(NameExtract, fmt.Errorf("%w: %d texts, %d boxes", ErrMisaligned, len(res.Texts), len(res.Boxes)))
	}

	rec.SetExtraction(res.Texts, res.Boxes)
	s.logger.Debug("extracted text", "path", in.SourcePath(), "lines", len(res.Texts))
	return nil
}
