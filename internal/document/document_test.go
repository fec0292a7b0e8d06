package document

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/papercheck/internal/raster"
	"github.com/jackzampolin/papercheck/internal/testutil"
)

// fakeRasterizer renders page i as an RGBA image 10+i pixels wide.
type fakeRasterizer struct {
	pages int
	err   error
	calls int
	dpi   int
}

func (f *fakeRasterizer) RenderPages(_ context.Context, _ []byte, dpi int) ([]image.Image, error) {
	f.calls++
	f.dpi = dpi
	if f.err != nil {
		return nil, f.err
	}
	out := make([]image.Image, f.pages)
	for i := range out {
		img := image.NewRGBA(image.Rect(0, 0, 10+i, 5))
		img.Set(0, 0, color.RGBA{R: 255, A: 255})
		out[i] = img
	}
	return out, nil
}

func newFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/papers/a.png", testutil.PNG(t, 4, 4))
	testutil.WriteFile(t, fs, "/papers/b.jpg", testutil.JPEG(t, 4, 4))
	testutil.WriteFile(t, fs, "/papers/c.pdf", testutil.MinimalPDF(3))
	testutil.WriteFile(t, fs, "/papers/d.png", []byte("just some text pretending to be an image"))
	testutil.WriteFile(t, fs, "/papers/e.pdf", testutil.MinimalPDF(0))
	return fs
}

func TestDetect(t *testing.T) {
	fs := newFS(t)

	tests := []struct {
		path string
		kind Kind
		mime string
	}{
		{"/papers/a.png", KindImage, MIMEPNG},
		{"/papers/b.jpg", KindImage, MIMEJPEG},
		{"/papers/c.pdf", KindPDF, MIMEPDF},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, mime, err := Detect(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.mime, mime)
		})
	}

	t.Run("content wins over extension", func(t *testing.T) {
		kind, _, err := Detect(fs, "/papers/d.png")
		assert.Equal(t, KindUnknown, kind)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)

		var ufe *UnsupportedFormatError
		require.ErrorAs(t, err, &ufe)
		assert.Equal(t, "/papers/d.png", ufe.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := Detect(fs, "/papers/missing.png")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()

	t.Run("image passes through", func(t *testing.T) {
		r := &fakeRasterizer{pages: 3}
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: r, Logger: testutil.Logger()})

		in, err := n.Normalize(ctx, "/papers/b.jpg")
		require.NoError(t, err)
		assert.Equal(t, PassThrough{Path: "/papers/b.jpg", MIME: MIMEJPEG}, in)
		assert.Equal(t, 1, in.PageCount())
		assert.Zero(t, r.calls, "images must not be rasterized")
	})

	t.Run("pdf becomes ordered pages", func(t *testing.T) {
		r := &fakeRasterizer{pages: 3}
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: r, Logger: testutil.Logger()})

		in, err := n.Normalize(ctx, "/papers/c.pdf")
		require.NoError(t, err)
		pages, ok := in.(Pages)
		require.True(t, ok, "got %T", in)
		require.Len(t, pages.Pages, 3)
		assert.Equal(t, "/papers/c.pdf", in.SourcePath())
		assert.Equal(t, raster.DefaultDPI, r.dpi)

		for i, p := range pages.Pages {
			assert.Equal(t, i, p.Index)
			assert.Equal(t, 10+i, p.Image.Bounds().Dx(), "page %d out of order", i)
			assert.Equal(t, color.NRGBA{R: 255, A: 255}, p.Image.NRGBAAt(0, 0))
		}
	})

	t.Run("configured dpi", func(t *testing.T) {
		r := &fakeRasterizer{pages: 3}
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: r, DPI: 300, Logger: testutil.Logger()})
		_, err := n.Normalize(ctx, "/papers/c.pdf")
		require.NoError(t, err)
		assert.Equal(t, 300, r.dpi)
	})

	t.Run("page count mismatch", func(t *testing.T) {
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: &fakeRasterizer{pages: 2}, Logger: testutil.Logger()})
		_, err := n.Normalize(ctx, "/papers/c.pdf")
		assert.ErrorIs(t, err, raster.ErrPageCountMismatch)
	})

	t.Run("empty pdf", func(t *testing.T) {
		r := &fakeRasterizer{}
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: r, Logger: testutil.Logger()})
		_, err := n.Normalize(ctx, "/papers/e.pdf")
		assert.Error(t, err)
		assert.Zero(t, r.calls)
	})

	t.Run("rasterizer failure", func(t *testing.T) {
		boom := errors.New("boom")
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Rasterizer: &fakeRasterizer{err: boom}, Logger: testutil.Logger()})
		_, err := n.Normalize(ctx, "/papers/c.pdf")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unsupported", func(t *testing.T) {
		n := NewNormalizer(NormalizerConfig{FS: newFS(t), Logger: testutil.Logger()})
		_, err := n.Normalize(ctx, "/papers/d.png")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestLoadPage(t *testing.T) {
	fs := newFS(t)

	t.Run("pass-through reads original bytes", func(t *testing.T) {
		page, err := LoadPage(fs, PassThrough{Path: "/papers/a.png", MIME: MIMEPNG}, 0)
		require.NoError(t, err)
		want, _ := afero.ReadFile(fs, "/papers/a.png")
		assert.Equal(t, want, page.Data)
		assert.Equal(t, MIMEPNG, page.MIME)

		_, err = LoadPage(fs, PassThrough{Path: "/papers/a.png"}, 1)
		assert.Error(t, err)
	})

	t.Run("pass-through must be an image", func(t *testing.T) {
		_, err := LoadPage(fs, PassThrough{Path: "/papers/c.pdf"}, 0)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("raster pages encode as png", func(t *testing.T) {
		in := Pages{Pages: []Page{
			{Index: 0, Image: testutil.Solid(3, 3, color.White)},
			{Index: 1, Image: testutil.Solid(7, 3, color.Black)},
		}}
		page, err := LoadPage(fs, in, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Index)
		assert.Equal(t, MIMEPNG, page.MIME)

		kind, _, err := DetectData("page", page.Data)
		require.NoError(t, err)
		assert.Equal(t, KindImage, kind)

		_, err = LoadPage(fs, in, 2)
		assert.Error(t, err)
	})

	t.Run("nil input", func(t *testing.T) {
		_, err := LoadPage(fs, nil, 0)
		assert.Error(t, err)
	})
}
