package config

import "time"

// Config holds papercheck configuration.
// Stored at: {home}/config.yaml or ./config.yaml
type Config struct {
	InputDir    string   `mapstructure:"input_dir" yaml:"input_dir" json:"input_dir" validate:"required"`
	ErrorsDir   string   `mapstructure:"errors_dir" yaml:"errors_dir" json:"errors_dir" validate:"required"`
	Workers     int      `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1,max=64"`
	PageWorkers int      `mapstructure:"page_workers" yaml:"page_workers" json:"page_workers" validate:"min=1,max=64"`
	Stages      []string `mapstructure:"stages" yaml:"stages" json:"stages" validate:"min=1,dive,oneof=extract classify mistakes"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	PromptsDir  string   `mapstructure:"prompts_dir" yaml:"prompts_dir" json:"prompts_dir"`

	Raster    RasterCfg    `mapstructure:"raster" yaml:"raster" json:"raster"`
	OCR       OCRCfg       `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Reasoning ReasoningCfg `mapstructure:"reasoning" yaml:"reasoning" json:"reasoning"`
	Classify  ClassifyCfg  `mapstructure:"classify" yaml:"classify" json:"classify"`
	Mistakes  MistakesCfg  `mapstructure:"mistakes" yaml:"mistakes" json:"mistakes"`
	Watch     WatchCfg     `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// RasterCfg configures PDF rasterization.
type RasterCfg struct {
	DPI     int    `mapstructure:"dpi" yaml:"dpi" json:"dpi" validate:"min=36,max=1200"`
	Command string `mapstructure:"command" yaml:"command" json:"command" validate:"required"` // pdftoppm binary
	Workers int    `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1,max=64"`
}

// OCRCfg configures the tesseract engine.
type OCRCfg struct {
	Languages []string `mapstructure:"languages" yaml:"languages" json:"languages" validate:"min=1"`
}

// ReasoningCfg configures the OpenAI-compatible reasoning endpoint.
type ReasoningCfg struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url" json:"base_url" validate:"omitempty,url"` // supports ${ENV_VAR}
	APIKey         string        `mapstructure:"api_key" yaml:"api_key" json:"-"`                                   // supports ${ENV_VAR}
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"min=0"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries" validate:"min=0,max=20"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay" validate:"min=0"`
	RateLimit      int           `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"min=0"` // Requests per minute
	ResponseFormat string        `mapstructure:"response_format" yaml:"response_format" json:"response_format" validate:"oneof=json_schema json_object prompt"`
	Trace          bool          `mapstructure:"trace" yaml:"trace" json:"trace"` // Append every call to {home}/calls
}

// ClassifyCfg configures subject/title classification.
type ClassifyCfg struct {
	Mode         string `mapstructure:"mode" yaml:"mode" json:"mode" validate:"oneof=text vision"`
	Model        string `mapstructure:"model" yaml:"model" json:"model" validate:"required"`
	ContextLines int    `mapstructure:"context_lines" yaml:"context_lines" json:"context_lines" validate:"min=1"`
}

// MistakesCfg configures per-page mistake detection.
type MistakesCfg struct {
	Model string `mapstructure:"model" yaml:"model" json:"model" validate:"required"`
}

// WatchCfg configures watch mode.
type WatchCfg struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce" validate:"min=0"`
}

// NeedsReasoning reports whether any configured stage calls the reasoning
// endpoint.
func (c *Config) NeedsReasoning() bool {
	for _, s := range c.Stages {
		if s == "classify" || s == "mistakes" {
			return true
		}
	}
	return false
}

// NeedsOCR reports whether the extract stage is configured.
func (c *Config) NeedsOCR() bool {
	for _, s := range c.Stages {
		if s == "extract" {
			return true
		}
	}
	return false
}
