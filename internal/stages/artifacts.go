package stages

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/document"
)

// ArtifactWriter keeps the raw bytes of a page that failed processing.
type ArtifactWriter interface {
	// WritePage stores data for 1-based page of doc and returns where it went.
	WritePage(doc string, page int, data []byte, mime string) (string, error)
}

// DirArtifacts writes error artifacts into a single directory. Names are
// <doc base>_<timestamp>_p<page><ext>, unique per document, instant and page.
type DirArtifacts struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewDirArtifacts creates an artifact writer rooted at dir.
func NewDirArtifacts(fs afero.Fs, dir string) *DirArtifacts {
	return &DirArtifacts{fs: fs, dir: dir, now: time.Now}
}

// Dir returns the artifact directory.
func (a *DirArtifacts) Dir() string { return a.dir }

// WritePage implements ArtifactWriter.
func (a *DirArtifacts) WritePage(doc string, page int, data []byte, mime string) (string, error) {
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(doc), filepath.Ext(doc))
	stamp := a.now().UTC().Format("20060102T150405.000000000")
	name := fmt.Sprintf("%s_%s_p%03d%s", base, stamp, page, extensionFor(mime))
	path := filepath.Join(a.dir, name)

	if err := afero.WriteFile(a.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return path, nil
}

func extensionFor(mime string) string {
	switch mime {
	case document.MIMEJPEG:
		return ".jpg"
	case document.MIMEPNG:
		return ".png"
	default:
		return ".bin"
	}
}
