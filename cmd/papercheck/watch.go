package main

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/output"
	"github.com/jackzampolin/papercheck/internal/pipeline"
)

var (
	watchFlags    batchFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process papers as they arrive in the input directory",
	Long: `Run a batch at start, then watch the input directory and run another
batch whenever new papers land in it. Bursts of files (a scanner emptying
its feeder) are debounced into a single batch.

Edits to the config file are picked up between batches.

Examples:
  papercheck watch
  papercheck watch --input-dir ./scans --debounce 5s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		if err := watchFlags.apply(cmd, s.Config); err != nil {
			return err
		}
		mgr := s.Config
		logger := s.Logger

		// Validate the wiring up front so a bad config fails fast.
		initial, err := buildPipeline(mgr.Get(), s)
		if err != nil {
			return err
		}

		var (
			mu      sync.Mutex
			current = initial
			dirty   bool
		)
		mgr.OnChange(func(*config.Config) {
			mu.Lock()
			dirty = true
			mu.Unlock()
			logger.Info("config changed, applying on the next batch")
		})
		mgr.OnError(func(err error) {
			logger.Error("config reload failed, keeping previous config", "error", err)
		})
		if mgr.ConfigFileUsed() != "" {
			mgr.WatchConfig()
		}

		cfg := mgr.Get()
		debounce := cfg.Watch.Debounce
		if cmd.Flags().Changed("debounce") {
			debounce = watchDebounce
		}

		batch := func(ctx context.Context) {
			mu.Lock()
			if dirty {
				next, err := buildPipeline(mgr.Get(), s)
				if err != nil {
					logger.Error("new config cannot be wired, keeping previous pipeline", "error", err)
				} else {
					current = next
				}
				dirty = false
			}
			orch := current
			mu.Unlock()

			report, err := orch.Run(ctx)
			if report == nil {
				if ctx.Err() == nil {
					logger.Error("batch failed", "error", err)
				}
				return
			}
			if report.Discovered == 0 {
				return
			}
			if _, err := saveReport(s.FS, s.Home, report); err != nil {
				logger.Warn("failed to save report", "error", err)
			}
			if err := output.Print(report); err != nil {
				logger.Warn("failed to print report", "error", err)
			}
		}

		w := pipeline.NewWatcher(cfg.InputDir, cfg.Exclude, cfg.ErrorsDir, debounce, logger)
		return w.Run(cmd.Context(), batch)
	},
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", pipeline.DefaultDebounce, "quiet period before a batch starts")
	rootCmd.AddCommand(watchCmd)
}
