package mistakes

// SchemaName names the mistake detection response schema.
const SchemaName = "page_mistakes"

// Schema is the JSON schema for the mistake detection reply.
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"mistakes_count": map[string]any{
			"type":    "integer",
			"minimum": 0,
		},
		"mistakes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{
						"type":        "string",
						"description": "Question text only, without the answer",
					},
					"reason": map[string]any{
						"type":        "string",
						"description": "Likely cause of the mistake",
					},
				},
				"required":             []string{"question", "reason"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"mistakes_count", "mistakes"},
	"additionalProperties": false,
}

// Mistake is one entry of the reply.
type Mistake struct {
	Question string `json:"question"`
	Reason   string `json:"reason"`
}

// Result is the parsed reply. MistakesCount is what the model claimed and
// is not trusted.
type Result struct {
	MistakesCount int       `json:"mistakes_count"`
	Mistakes      []Mistake `json:"mistakes"`
}
