package llmcall

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Store reads the call logs written by a Recorder.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a new call log store.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	RunID     string
	Document  string
	PromptKey string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int // Most recent N after filtering; 0 means all
}

func (f QueryFilter) match(c *Call) bool {
	switch {
	case f.RunID != "" && c.RunID != f.RunID:
		return false
	case f.Document != "" && c.Document != f.Document:
		return false
	case f.PromptKey != "" && c.PromptKey != f.PromptKey:
		return false
	case f.Model != "" && c.Model != f.Model:
		return false
	case f.After != nil && !c.Timestamp.After(*f.After):
		return false
	case f.Before != nil && !c.Timestamp.Before(*f.Before):
		return false
	case f.Success != nil && c.Success != *f.Success:
		return false
	}
	return true
}

// List returns matching calls in recording order.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Call{}, nil
		}
		return nil, fmt.Errorf("failed to read call logs: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), FileExt) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	calls := []Call{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := s.readFile(filepath.Join(s.dir, name), filter)
		if err != nil {
			return nil, err
		}
		calls = append(calls, found...)
	}

	if filter.Limit > 0 && len(calls) > filter.Limit {
		calls = calls[len(calls)-filter.Limit:]
	}
	return calls, nil
}

// Get retrieves a single call by ID.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	calls, err := s.List(ctx, QueryFilter{})
	if err != nil {
		return nil, err
	}
	for i := range calls {
		if calls[i].ID == id {
			return &calls[i], nil
		}
	}
	return nil, fmt.Errorf("call not found: %s", id)
}

func (s *Store) readFile(path string, filter QueryFilter) ([]Call, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if filter.match(&c) {
			calls = append(calls, c)
		}
	}
	return calls, scanner.Err()
}
