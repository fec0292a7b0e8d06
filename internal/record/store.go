package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// SidecarExt is the extension of the sidecar written next to each document.
const SidecarExt = ".json"

// PersistenceError reports a sidecar that could not be written or read.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sidecar %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SidecarPath returns the sidecar path for a document: same directory,
// same base name, SidecarExt.
func SidecarPath(docPath string) string {
	ext := filepath.Ext(docPath)
	return strings.TrimSuffix(docPath, ext) + SidecarExt
}

// Store reads and writes sidecars. The existence of a sidecar marks its
// document as processed.
type Store struct {
	fs afero.Fs
}

// NewStore creates a Store over the given filesystem.
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Exists reports whether the document already has a sidecar.
func (s *Store) Exists(docPath string) bool {
	ok, err := afero.Exists(s.fs, SidecarPath(docPath))
	return err == nil && ok
}

// Persist serializes rec to the document's sidecar, overwriting any
// previous content.
func (s *Store) Persist(rec *Record, docPath string) error {
	path := SidecarPath(docPath)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return &PersistenceError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}

	if err := afero.WriteFile(s.fs, path, buf.Bytes(), 0o644); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}

// Load reads the sidecar of a document.
func (s *Store) Load(docPath string) (*Record, error) {
	path := SidecarPath(docPath)

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Err: err}
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &PersistenceError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return &rec, nil
}
