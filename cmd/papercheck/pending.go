package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/output"
)

// PendingList is the output of the pending command.
type PendingList struct {
	InputDir string   `json:"input_dir" yaml:"input_dir"`
	Count    int      `json:"count" yaml:"count"`
	Pending  []string `json:"pending" yaml:"pending"`
}

var pendingFlags batchFlags

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List the papers the next run would process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		if err := pendingFlags.apply(cmd, s.Config); err != nil {
			return err
		}
		cfg := s.Config.Get()

		orch, err := buildDiscoverer(cfg, s)
		if err != nil {
			return err
		}
		docs, err := orch.Discover(cmd.Context())
		if err != nil {
			return err
		}
		if docs == nil {
			docs = []string{}
		}
		return output.Print(PendingList{InputDir: cfg.InputDir, Count: len(docs), Pending: docs})
	},
}

func init() {
	pendingFlags.register(pendingCmd)
	rootCmd.AddCommand(pendingCmd)
}
