package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/jackzampolin/papercheck/internal/record"
)

// DefaultOCRLanguages covers printed Chinese and English papers.
var DefaultOCRLanguages = []string{"chi_sim", "eng"}

// TesseractConfig holds configuration for the Tesseract OCR client.
type TesseractConfig struct {
	Languages []string
}

// tesseractClient is the part of gosseract.Client that Extract uses.
type tesseractClient interface {
	SetLanguage(langs ...string) error
	SetImageFromBytes(data []byte) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Tesseract implements OCR with gosseract, one text line per entry.
type Tesseract struct {
	languages []string
	newClient func() tesseractClient
}

// NewTesseract creates a Tesseract OCR client.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = DefaultOCRLanguages
	}
	return &Tesseract{
		languages: langs,
		newClient: func() tesseractClient { return gosseract.NewClient() },
	}
}

// Extract recognizes the text lines of image. Each line's rectangle is
// returned as a four-corner box, clockwise from the top-left. Blank lines
// are dropped together with their boxes.
func (t *Tesseract) Extract(ctx context.Context, image []byte) (*OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := t.newClient()
	defer c.Close()

	if err := c.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	lines, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}

	result := &OCRResult{
		Texts: make([]string, 0, len(lines)),
		Boxes: make([]record.Box, 0, len(lines)),
	}
	for _, line := range lines {
		text := strings.TrimSpace(line.Word)
		if text == "" {
			continue
		}
		r := line.Box
		result.Texts = append(result.Texts, text)
		result.Boxes = append(result.Boxes, record.RectBox(
			float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y),
		))
	}
	return result, nil
}
