package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// OverrideExt is the extension of prompt override files.
const OverrideExt = ".tmpl"

// Resolver resolves prompts with file overrides.
// Resolution order: override file > embedded default.
type Resolver struct {
	fs       afero.Fs
	dir      string
	embedded map[string]EmbeddedPrompt
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a resolver reading overrides from dir on fs.
// An empty dir disables overrides.
func NewResolver(fs afero.Fs, dir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fs:       fs,
		dir:      dir,
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// OverridePath returns where an override for key would live.
func (r *Resolver) OverridePath(key string) string {
	if r.dir == "" {
		return ""
	}
	return filepath.Join(r.dir, key+OverrideExt)
}

// Resolve returns the override for key if one exists, otherwise the
// embedded default.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	embedded, ok := r.embedded[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("prompt not found: %s", key)
	}

	if path := r.OverridePath(key); path != "" {
		data, err := afero.ReadFile(r.fs, path)
		switch {
		case err == nil:
			text := string(data)
			return &ResolvedPrompt{
				Key:        key,
				Text:       text,
				Variables:  ExtractVariables(text),
				IsOverride: true,
				Source:     path,
				Hash:       HashText(text),
			}, nil
		case !os.IsNotExist(err):
			// Unreadable override; fall through to the embedded default.
			r.logger.Warn("failed to read prompt override", "key", key, "path", path, "error", err)
		}
	}

	return &ResolvedPrompt{
		Key:       key,
		Text:      embedded.Text,
		Variables: embedded.Variables,
		Source:    "embedded",
		Hash:      embedded.Hash,
	}, nil
}

// Keys returns the registered prompt keys in sorted order.
func (r *Resolver) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.embedded))
	for k := range r.embedded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
