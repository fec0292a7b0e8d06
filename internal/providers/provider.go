package providers

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jackzampolin/papercheck/internal/record"
)

// OCR extracts text lines and their positions from a single page image.
type OCR interface {
	// Extract returns index-aligned texts and boxes for the image.
	Extract(ctx context.Context, image []byte) (*OCRResult, error)
}

// Classifier decides the subject and title of an exam paper.
type Classifier interface {
	Classify(ctx context.Context, in ClassifyInput) (*Classification, error)
}

// MistakeDetector reads the grading marks on one page image.
type MistakeDetector interface {
	// DetectMistakes returns the mistakes annotated on the page, in the
	// order the collaborator reports them.
	DetectMistakes(ctx context.Context, img Image) ([]record.Mistake, error)
}

// OCRResult is the output of an OCR call.
type OCRResult struct {
	Texts []string
	Boxes []record.Box
}

// Aligned reports whether every text has exactly one box.
func (r *OCRResult) Aligned() bool {
	return len(r.Texts) == len(r.Boxes)
}

// Image is an encoded page image handed to a reasoning model.
type Image struct {
	Data []byte
	MIME string // "image/png" or "image/jpeg"
}

// DataURI encodes the image as a base64 data URI.
func (i Image) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIME, base64.StdEncoding.EncodeToString(i.Data))
}

// ClassifyInput carries either the leading OCR lines (text mode) or a page
// image (vision mode). Exactly one is set.
type ClassifyInput struct {
	Texts []string
	Image *Image
}

// Classification is the subject/title pair produced by a Classifier.
type Classification struct {
	Subject string `json:"subject"`
	Title   string `json:"title"`
}
