package llmcall

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileExt is the extension of call log files.
const FileExt = ".jsonl"

// Recorder appends calls to one JSONL file per day under dir.
// A nil Recorder records nothing.
type Recorder struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRecorder creates a new call recorder.
func NewRecorder(fs afero.Fs, dir string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{fs: fs, dir: dir, logger: logger}
}

// Dir returns the directory call logs are written to.
func (r *Recorder) Dir() string {
	return r.dir
}

// Record captures a call. Failures are logged, never returned: tracing must
// not fail a document.
func (r *Recorder) Record(call *Call) {
	if r == nil || call == nil {
		return
	}
	if err := r.append(call); err != nil {
		r.logger.Warn("failed to record reasoning call", "id", call.ID, "error", err)
	}
}

func (r *Recorder) append(call *Call) error {
	line, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.dir, call.Timestamp.UTC().Format("2006-01-02")+FileExt)
	f, err := r.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
