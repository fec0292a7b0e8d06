// Package document detects paper file kinds and normalizes them into page
// inputs for the enrichment stages.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/raster"
)

// ErrNoPages is returned for a PDF that declares zero pages.
var ErrNoPages = errors.New("PDF has no pages")

// NormalizerConfig configures a Normalizer.
type NormalizerConfig struct {
	FS         afero.Fs
	Rasterizer raster.Rasterizer
	DPI        int // Default 200
	Logger     *slog.Logger
}

// Normalizer turns a file path into an Input.
type Normalizer struct {
	fs         afero.Fs
	rasterizer raster.Rasterizer
	dpi        int
	logger     *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.DPI <= 0 {
		cfg.DPI = raster.DefaultDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Normalizer{
		fs:         cfg.FS,
		rasterizer: cfg.Rasterizer,
		dpi:        cfg.DPI,
		logger:     cfg.Logger.With("component", "normalizer"),
	}
}

// Normalize detects the kind of path. Images pass through untouched; PDFs
// are rasterized page by page in source order. Anything else returns an
// UnsupportedFormatError.
func (n *Normalizer) Normalize(ctx context.Context, path string) (Input, error) {
	kind, mime, err := Detect(n.fs, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindImage:
		return PassThrough{Path: path, MIME: mime}, nil

	case KindPDF:
		if n.rasterizer == nil {
			return nil, errors.New("no rasterizer configured for PDF input")
		}
		data, err := afero.ReadFile(n.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		declared, err := raster.PageCount(data)
		if err != nil {
			return nil, err
		}
		if declared == 0 {
			return nil, ErrNoPages
		}

		images, err := n.rasterizer.RenderPages(ctx, data, n.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize %s: %w", path, err)
		}
		if len(images) != declared {
			return nil, fmt.Errorf("%w: rendered %d, declared %d", raster.ErrPageCountMismatch, len(images), declared)
		}

		pages := make([]Page, len(images))
		for i, img := range images {
			pages[i] = Page{Index: i, Image: raster.Canonical(img)}
		}
		n.logger.Debug("rasterized document", "path", path, "pages", len(pages), "dpi", n.dpi)
		return Pages{Path: path, Pages: pages}, nil

	default:
		return nil, &UnsupportedFormatError{Path: path, MIME: mime}
	}
}
