package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/output"
	"github.com/jackzampolin/papercheck/version"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("output") {
			return output.Print(version.Get())
		}
		fmt.Printf("papercheck %s\n", version.GitRelease)
		fmt.Printf("  Go:     %s\n", version.GoInfo)
		fmt.Printf("  Commit: %s\n", version.GitCommit)
		fmt.Printf("  Date:   %s\n", version.GitCommitDate)
		return nil
	},
}
