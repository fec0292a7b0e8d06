package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"
)

// DefaultCommand is the poppler-utils page renderer.
const DefaultCommand = "pdftoppm"

// PdftoppmConfig configures the pdftoppm rasterizer.
type PdftoppmConfig struct {
	Command  string // Binary name or path (default "pdftoppm")
	Workers  int    // Concurrent page renders (default 1)
	Attempts uint   // Tries per page (default 2)
	Logger   *slog.Logger
}

// Pdftoppm renders pages by running pdftoppm once per page.
type Pdftoppm struct {
	command  string
	workers  int
	attempts uint
	logger   *slog.Logger
}

var _ Rasterizer = (*Pdftoppm)(nil)

// NewPdftoppm creates a pdftoppm rasterizer.
func NewPdftoppm(cfg PdftoppmConfig) *Pdftoppm {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pdftoppm{
		command:  cfg.Command,
		workers:  cfg.Workers,
		attempts: cfg.Attempts,
		logger:   cfg.Logger.With("component", "raster"),
	}
}

// Available reports whether the renderer binary can be found.
func (p *Pdftoppm) Available() error {
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("%s not found (install poppler-utils): %w", p.command, err)
	}
	return nil
}

// RenderPages renders every page of pdf at dpi and returns them as NRGBA
// images in page order.
func (p *Pdftoppm) RenderPages(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	pageCount, err := PageCount(pdf)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "papercheck-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage PDF: %w", err)
	}

	start := time.Now()
	pages := make([]image.Image, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range pages {
		page := i + 1
		g.Go(func() error {
			img, err := p.renderPage(gctx, pdfPath, tmpDir, page, dpi)
			if err != nil {
				return fmt.Errorf("failed to render page %d: %w", page, err)
			}
			pages[page-1] = Canonical(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, img := range pages {
		if img == nil {
			return nil, fmt.Errorf("%w: page %d missing of %d", ErrPageCountMismatch, i+1, pageCount)
		}
	}

	p.logger.Debug("rendered PDF", "pages", pageCount, "dpi", dpi, "duration", time.Since(start))
	return pages, nil
}

// renderPage renders one 1-based page to PNG and decodes it.
func (p *Pdftoppm) renderPage(ctx context.Context, pdfPath, tmpDir string, page, dpi int) (image.Image, error) {
	pageStr := strconv.Itoa(page)
	prefix := filepath.Join(tmpDir, "page-"+pageStr)

	return retry.DoWithData(
		func() (image.Image, error) {
			// -singlefile: no page number suffix, output is <prefix>.png
			cmd := exec.CommandContext(ctx, p.command,
				"-png",
				"-f", pageStr,
				"-l", pageStr,
				"-r", strconv.Itoa(dpi),
				"-singlefile",
				pdfPath,
				prefix,
			)
			if output, err := cmd.CombinedOutput(); err != nil {
				return nil, fmt.Errorf("%s failed: %w (output: %s)", p.command, err, string(output))
			}

			f, err := os.Open(prefix + ".png")
			if err != nil {
				return nil, fmt.Errorf("%s did not create expected output: %w", p.command, err)
			}
			defer f.Close()

			img, err := png.Decode(f)
			if err != nil {
				return nil, fmt.Errorf("failed to decode rendered page: %w", err)
			}
			return img, nil
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && !errors.Is(err, exec.ErrNotFound)
		}),
	)
}
