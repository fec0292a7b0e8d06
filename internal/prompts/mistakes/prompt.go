// Package mistakes holds the graded-mistake detection prompts.
package mistakes

import (
	_ "embed"

	"github.com/jackzampolin/papercheck/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

const (
	SystemKey = "mistakes.system"
	UserKey   = "mistakes.user"
)

// RegisterPrompts registers the mistake detection prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Grading rule: check is correct, X or red correction is a mistake, grade words are not",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Per-page mistake listing request",
	})
}
