package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/llmcall"
	"github.com/jackzampolin/papercheck/internal/output"
)

var (
	callsFilter   llmcall.QueryFilter
	callsFailed   bool
	callsSince    time.Duration
	callsResponse bool
	callsSummary  bool
)

var callsCmd = &cobra.Command{
	Use:   "calls [id]",
	Short: "Inspect recorded reasoning calls",
	Long: `List reasoning calls recorded while reasoning.trace is enabled, or print
one call in full by ID.

Examples:
  papercheck calls --failed --since 24h
  papercheck calls --document papers/exam.pdf --response
  papercheck calls --summary --run 1b9d6bcd-...
  papercheck calls 5f0c1e7a-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		store := llmcall.NewStore(s.FS, s.Home.CallsPath())

		if len(args) == 1 {
			call, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return output.Print(call)
		}

		filter := callsFilter
		if cmd.Flags().Changed("failed") {
			success := !callsFailed
			filter.Success = &success
		}
		if callsSince > 0 {
			after := time.Now().Add(-callsSince)
			filter.After = &after
		}
		if callsSummary {
			summary, err := store.Summarize(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return output.Print(summary)
		}

		calls, err := store.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if !callsResponse {
			for i := range calls {
				calls[i].Response = ""
			}
		}
		return output.Print(calls)
	},
}

func init() {
	callsCmd.Flags().StringVar(&callsFilter.RunID, "run", "", "only calls of this run ID")
	callsCmd.Flags().StringVar(&callsFilter.Document, "document", "", "only calls for this document path")
	callsCmd.Flags().StringVar(&callsFilter.PromptKey, "prompt", "", "only calls using this prompt key")
	callsCmd.Flags().StringVar(&callsFilter.Model, "model", "", "only calls to this model")
	callsCmd.Flags().IntVarP(&callsFilter.Limit, "limit", "n", 50, "most recent N calls (0 for all)")
	callsCmd.Flags().BoolVar(&callsFailed, "failed", false, "only failed calls")
	callsCmd.Flags().DurationVar(&callsSince, "since", 0, "only calls newer than this")
	callsCmd.Flags().BoolVar(&callsResponse, "response", false, "include model replies")
	callsCmd.Flags().BoolVar(&callsSummary, "summary", false, "print latency, token and retry stats instead of calls")
	rootCmd.AddCommand(callsCmd)
}
