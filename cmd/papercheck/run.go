package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/output"
)

var runFlags batchFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every unprocessed paper once",
	Long: `Discover every paper under the input directory that has no sidecar,
run the configured stages over each one and write <name>.json next to it.

A document that fails is logged and left without a sidecar, so the next
run retries it. The batch report is printed and saved under the home
reports directory.

Examples:
  papercheck run
  papercheck run --input-dir ./scans --workers 4
  papercheck run --stages extract,classify -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		if err := runFlags.apply(cmd, s.Config); err != nil {
			return err
		}

		orch, err := buildPipeline(s.Config.Get(), s)
		if err != nil {
			return err
		}

		report, runErr := orch.Run(cmd.Context())
		if report == nil {
			return runErr
		}
		if path, err := saveReport(s.FS, s.Home, report); err != nil {
			s.Logger.Warn("failed to save report", "error", err)
		} else {
			s.Logger.Debug("saved report", "path", path)
		}
		if err := output.Print(report); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	runFlags.register(runCmd)
	rootCmd.AddCommand(runCmd)
}
