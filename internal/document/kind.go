package document

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// Kind is the detected file kind of a document.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// MIME types accepted as page images.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
	MIMEPDF  = "application/pdf"
)

// ErrUnsupportedFormat matches every UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError is returned for files that are neither a PNG/JPEG
// image nor a PDF.
type UnsupportedFormatError struct {
	Path string
	MIME string
}

func (e *UnsupportedFormatError) Error() string {
	if e.MIME == "" {
		return fmt.Sprintf("%s: unsupported format", e.Path)
	}
	return fmt.Sprintf("%s: unsupported format %s", e.Path, e.MIME)
}

// Is reports whether target is ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// Detect classifies the file at path by its content, not its extension.
// It returns the kind and the detected MIME type.
func Detect(fs afero.Fs, path string) (Kind, string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return KindUnknown, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return KindUnknown, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return kindOf(path, mt)
}

// DetectData classifies in-memory data; path is only used in errors.
func DetectData(path string, data []byte) (Kind, string, error) {
	return kindOf(path, mimetype.Detect(data))
}

func kindOf(path string, mt *mimetype.MIME) (Kind, string, error) {
	switch {
	case mt.Is(MIMEPNG):
		return KindImage, MIMEPNG, nil
	case mt.Is(MIMEJPEG):
		return KindImage, MIMEJPEG, nil
	case mt.Is(MIMEPDF):
		return KindPDF, MIMEPDF, nil
	default:
		return KindUnknown, mt.String(), &UnsupportedFormatError{Path: path, MIME: mt.String()}
	}
}
