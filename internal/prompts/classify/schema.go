package classify

import "github.com/jackzampolin/papercheck/internal/record"

// SchemaName names the classification response schema.
const SchemaName = "paper_classification"

// Schema is the JSON schema for the classification reply.
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"subject": map[string]any{
			"type":        "string",
			"enum":        record.Subjects,
			"description": "Subject of the paper",
		},
		"title": map[string]any{
			"type":        "string",
			"description": "Title printed on the paper",
		},
	},
	"required":             []string{"subject", "title"},
	"additionalProperties": false,
}
