package document

import (
	"fmt"
	"image"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/raster"
)

// Input is a normalized document: either PassThrough or Pages.
// The set of variants is closed; consumers switch on the concrete type and
// treat anything else as an error.
type Input interface {
	// PageCount returns how many pages the input holds.
	PageCount() int
	// SourcePath returns the path of the document the input came from.
	SourcePath() string
	sealed()
}

// PassThrough is a single-image document handed on by path.
type PassThrough struct {
	Path string
	MIME string
}

// Pages is a rasterized PDF in source order.
type Pages struct {
	Path  string
	Pages []Page
}

// Page is one rasterized page.
type Page struct {
	Index int // 0-based position in the source PDF
	Image *image.NRGBA
}

func (PassThrough) PageCount() int       { return 1 }
func (p PassThrough) SourcePath() string { return p.Path }
func (PassThrough) sealed()              {}

func (p Pages) PageCount() int     { return len(p.Pages) }
func (p Pages) SourcePath() string { return p.Path }
func (Pages) sealed()              {}

// EncodedPage is a page ready to hand to a collaborator.
type EncodedPage struct {
	Index int // 0-based
	Data  []byte
	MIME  string
}

// LoadPage returns the encoded bytes of page index. Raster pages are
// encoded as PNG. A pass-through file is read from fs and must be PNG or
// JPEG.
func LoadPage(fs afero.Fs, in Input, index int) (*EncodedPage, error) {
	switch v := in.(type) {
	case PassThrough:
		if index != 0 {
			return nil, fmt.Errorf("page %d out of range for single image", index)
		}
		data, err := afero.ReadFile(fs, v.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", v.Path, err)
		}
		kind, mime, err := DetectData(v.Path, data)
		if err != nil {
			return nil, err
		}
		if kind != KindImage {
			return nil, &UnsupportedFormatError{Path: v.Path, MIME: mime}
		}
		return &EncodedPage{Index: 0, Data: data, MIME: mime}, nil

	case Pages:
		if index < 0 || index >= len(v.Pages) {
			return nil, fmt.Errorf("page %d out of range (%d pages)", index, len(v.Pages))
		}
		data, err := raster.EncodePNG(v.Pages[index].Image)
		if err != nil {
			return nil, err
		}
		return &EncodedPage{Index: index, Data: data, MIME: MIMEPNG}, nil

	default:
		return nil, fmt.Errorf("unknown input variant %T", in)
	}
}
