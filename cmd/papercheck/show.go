package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/output"
	"github.com/jackzampolin/papercheck/internal/record"
)

// RecordView is how show prints a sidecar.
type RecordView struct {
	Document      string           `json:"document" yaml:"document"`
	Sidecar       string           `json:"sidecar" yaml:"sidecar"`
	Subject       string           `json:"subject,omitempty" yaml:"subject,omitempty"`
	Title         string           `json:"title,omitempty" yaml:"title,omitempty"`
	Lines         int              `json:"lines" yaml:"lines"`
	Texts         []string         `json:"texts,omitempty" yaml:"texts,omitempty"`
	MistakesCount int              `json:"mistakes_count" yaml:"mistakes_count"`
	Mistakes      []record.Mistake `json:"mistakes,omitempty" yaml:"mistakes,omitempty"`
	FailedPages   []int            `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`
}

func newRecordView(doc string, rec *record.Record, withTexts bool) RecordView {
	v := RecordView{
		Document:      doc,
		Sidecar:       record.SidecarPath(doc),
		Subject:       rec.Subject,
		Title:         rec.Title,
		Lines:         len(rec.Texts),
		MistakesCount: rec.MistakesCount(),
		Mistakes:      rec.Mistakes,
		FailedPages:   rec.FailedPages,
	}
	if withTexts {
		v.Texts = rec.Texts
	}
	return v
}

var showTexts bool

var showCmd = &cobra.Command{
	Use:   "show <document>",
	Short: "Print the enrichment result of a processed paper",
	Long: `Print the sidecar of a processed paper. Either the paper or its .json
sidecar may be given.

Examples:
  papercheck show papers/math-midterm.pdf
  papercheck show papers/math-midterm.json --texts -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		rec, err := s.Store.Load(args[0])
		if err != nil {
			return err
		}
		return output.Print(newRecordView(args[0], rec, showTexts))
	},
}

func init() {
	showCmd.Flags().BoolVar(&showTexts, "texts", false, "include the OCR text lines")
	rootCmd.AddCommand(showCmd)
}
