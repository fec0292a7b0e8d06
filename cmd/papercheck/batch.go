package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/home"
	"github.com/jackzampolin/papercheck/internal/pipeline"
)

// batchFlags are shared by the commands that walk the input directory.
type batchFlags struct {
	inputDir string
	workers  int
	stages   []string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.inputDir, "input-dir", "i", "", "input directory (overrides input_dir)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "documents processed concurrently (overrides workers)")
	cmd.Flags().StringSliceVar(&f.stages, "stages", nil, "stages to run in order (overrides stages)")
}

// apply writes the flags that were set over the loaded config.
func (f *batchFlags) apply(cmd *cobra.Command, mgr *config.Manager) error {
	if cmd.Flags().Changed("input-dir") {
		if err := mgr.Set("input_dir", f.inputDir); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("workers") {
		if err := mgr.Set("workers", f.workers); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("stages") {
		if err := mgr.Set("stages", f.stages); err != nil {
			return err
		}
	}
	return nil
}

// saveReport writes the batch report under the home reports directory.
func saveReport(fs afero.Fs, h *home.Dir, report *pipeline.Report) (string, error) {
	if err := fs.MkdirAll(h.ReportsPath(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	path := h.ReportPath(report.RunID)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
