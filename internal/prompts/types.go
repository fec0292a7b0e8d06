// Package prompts manages the reasoning-model prompts.
//
// Embedded .tmpl files are the defaults. An operator may override any prompt
// by placing a file named after its key (for example
// "classify.system.tmpl") in the configured prompts directory.
package prompts

// EmbeddedPrompt is a prompt compiled into the binary.
type EmbeddedPrompt struct {
	Key         string   // Hierarchical key: classify.system
	Text        string   // The prompt text (Go template)
	Description string   // Human-readable description
	Variables   []string // Extracted template variables
	Hash        string   // SHA256 of Text
}

// ResolvedPrompt is the text that will actually be sent for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key"`
	Text       string   `json:"text"`
	Variables  []string `json:"variables,omitempty"`
	IsOverride bool     `json:"is_override"`
	Source     string   `json:"source"` // "embedded" or the override file path
	Hash       string   `json:"hash"`
}
