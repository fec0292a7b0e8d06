// Package raster renders PDF pages to images.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/draw"
)

// DefaultDPI is the rendering resolution for scanned papers.
const DefaultDPI = 200

// ErrPageCountMismatch is returned when the renderer produced a different
// number of pages than the PDF declares.
var ErrPageCountMismatch = errors.New("rendered page count does not match PDF")

// Rasterizer renders every page of a PDF, in source order.
type Rasterizer interface {
	RenderPages(ctx context.Context, pdf []byte, dpi int) ([]image.Image, error)
}

// PageCount returns the number of pages the PDF declares.
func PageCount(pdf []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Canonical converts img to non-premultiplied RGBA with a zero origin.
// Images already in that form are returned as is.
func Canonical(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}
