package config

import (
	"errors"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// Entry is one documented configuration key and its default value.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// DefaultEntries returns the default configuration entries. They seed
// viper's defaults and the file written by WriteDefault.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Batch
		// ===================
		{
			Key:         "input_dir",
			Value:       "./papers",
			Description: "Root directory scanned for paper images and PDFs",
		},
		{
			Key:         "errors_dir",
			Value:       "./errors",
			Description: "Directory that receives pages whose mistake detection failed",
		},
		{
			Key:         "workers",
			Value:       1,
			Description: "Documents processed concurrently",
		},
		{
			Key:         "page_workers",
			Value:       1,
			Description: "Pages of one document checked for mistakes concurrently",
		},
		{
			Key:         "stages",
			Value:       []string{"extract", "classify", "mistakes"},
			Description: "Enrichment stages in execution order",
		},
		{
			Key:         "exclude",
			Value:       []string{".*"},
			Description: "Glob patterns of directories never walked (relative path or base name)",
		},
		{
			Key:         "prompts_dir",
			Value:       "",
			Description: "Directory of <key>.tmpl prompt overrides (default {home}/prompts)",
		},

		// ===================
		// Rasterization
		// ===================
		{
			Key:         "raster.dpi",
			Value:       200,
			Description: "Resolution PDF pages are rendered at",
		},
		{
			Key:         "raster.command",
			Value:       "pdftoppm",
			Description: "pdftoppm binary used to render PDF pages",
		},
		{
			Key:         "raster.workers",
			Value:       4,
			Description: "Concurrent pdftoppm processes per PDF",
		},

		// ===================
		// OCR
		// ===================
		{
			Key:         "ocr.languages",
			Value:       []string{"chi_sim", "eng"},
			Description: "Tesseract language packs",
		},

		// ===================
		// Reasoning
		// ===================
		{
			Key:         "reasoning.base_url",
			Value:       "${LLM_BASE_URL}",
			Description: "OpenAI-compatible endpoint (uses environment variable)",
		},
		{
			Key:         "reasoning.api_key",
			Value:       "${LLM_API_KEY}",
			Description: "Endpoint API key (uses environment variable)",
		},
		{
			Key:         "reasoning.timeout",
			Value:       "120s",
			Description: "Timeout of a single reasoning call",
		},
		{
			Key:         "reasoning.max_retries",
			Value:       3,
			Description: "Retries of a failed reasoning call",
		},
		{
			Key:         "reasoning.retry_delay",
			Value:       "2s",
			Description: "Base delay of the exponential retry backoff",
		},
		{
			Key:         "reasoning.rate_limit",
			Value:       60,
			Description: "Reasoning requests per minute (0 uses the limiter default)",
		},
		{
			Key:         "reasoning.response_format",
			Value:       "json_schema",
			Description: "json_schema, json_object or prompt, depending on what the endpoint supports",
		},
		{
			Key:         "reasoning.trace",
			Value:       false,
			Description: "Record every reasoning call (prompt hash, reply, usage) under {home}/calls",
		},

		// ===================
		// Stages
		// ===================
		{
			Key:         "classify.mode",
			Value:       "text",
			Description: "Classify from OCR text (text) or from the first page image (vision)",
		},
		{
			Key:         "classify.model",
			Value:       "qwen-max",
			Description: "Model used for subject and title classification",
		},
		{
			Key:         "classify.context_lines",
			Value:       30,
			Description: "Leading OCR lines sent to the classifier",
		},
		{
			Key:         "mistakes.model",
			Value:       "qwen-vl-max-latest",
			Description: "Vision model used for mistake detection",
		},

		// ===================
		// Watch
		// ===================
		{
			Key:         "watch.debounce",
			Value:       "2s",
			Description: "Quiet period after the last new file before a batch starts",
		},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

func applyDefaults(v *viper.Viper) {
	for _, entry := range DefaultEntries() {
		v.SetDefault(entry.Key, entry.Value)
	}
}

// defaultTree nests the dotted default keys into a document for YAML output.
func defaultTree() map[string]any {
	tree := make(map[string]any)
	for _, entry := range DefaultEntries() {
		parts := strings.Split(entry.Key, ".")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = entry.Value
	}
	return tree
}

// Keys returns every documented key, sorted.
func Keys() []string {
	entries := DefaultEntries()
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	sort.Strings(keys)
	return keys
}
