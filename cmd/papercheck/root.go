package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/home"
	"github.com/jackzampolin/papercheck/internal/output"
	"github.com/jackzampolin/papercheck/internal/prompts"
	classifyprompts "github.com/jackzampolin/papercheck/internal/prompts/classify"
	mistakeprompts "github.com/jackzampolin/papercheck/internal/prompts/mistakes"
	"github.com/jackzampolin/papercheck/internal/record"
	"github.com/jackzampolin/papercheck/internal/svcctx"
	"github.com/jackzampolin/papercheck/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	logFormat    string
)

// skipConfigAnnotation marks commands that must work without a loadable config.
const skipConfigAnnotation = "papercheck/skip-config"

var rootCmd = &cobra.Command{
	Use:   "papercheck",
	Short: "Extract text, subject and graded mistakes from scanned exam papers",
	Long: `papercheck enriches scanned exam papers with OCR text, a subject/title
classification and the mistakes marked by the grader.

Every image or PDF under the input directory that has no sidecar yet is
processed once; the result is written next to it as <name>.json. The
sidecar doubles as the processed marker, so re-running is safe.

Stages:
  - extract   OCR of the first page (text lines and boxes)
  - classify  subject (语文/英语/数学) and title
  - mistakes  per-page mistake detection; failed pages are saved to errors_dir`,
	Version:           version.GitRelease,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.papercheck/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "papercheck home directory (default: ~/.papercheck)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", logFormatText, "log format: text, json or pretty",
	)

	rootCmd.AddCommand(versionCmd)
}

// setup builds the services every command reads from its context.
func setup(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	output.SetFormat(format)

	logger, err := newLogger(os.Stderr, logLevel, logFormat)
	if err != nil {
		return err
	}

	h, err := home.New(homeDir)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	services := &svcctx.Services{
		Home:   h,
		Logger: logger,
		FS:     fs,
		Store:  record.NewStore(fs),
	}

	if cmd.Annotations[skipConfigAnnotation] != "true" {
		mgr, err := config.NewManager(config.Options{
			ConfigFile:  cfgFile,
			SearchPaths: []string{h.Path()},
			EnvFiles:    []string{".env", h.EnvPath()},
		})
		if err != nil {
			return err
		}
		if used := mgr.ConfigFileUsed(); used != "" {
			logger.Debug("loaded config", "path", used)
		}
		services.Config = mgr
		services.Prompts = newPromptResolver(fs, promptsDir(mgr.Get(), h), logger)
	}

	cmd.SetContext(svcctx.WithServices(cmd.Context(), services))
	return nil
}

func promptsDir(cfg *config.Config, h *home.Dir) string {
	if cfg.PromptsDir != "" {
		return cfg.PromptsDir
	}
	return h.PromptsPath()
}

func newPromptResolver(fs afero.Fs, dir string, logger *slog.Logger) *prompts.Resolver {
	r := prompts.NewResolver(fs, filepath.Clean(dir), logger)
	classifyprompts.RegisterPrompts(r)
	mistakeprompts.RegisterPrompts(r)
	return r
}

// services returns the services built by setup.
func services(cmd *cobra.Command) (*svcctx.Services, error) {
	s := svcctx.ServicesFrom(cmd.Context())
	if s == nil || s.Config == nil {
		return nil, fmt.Errorf("%s: services not initialized", cmd.CommandPath())
	}
	return s, nil
}
