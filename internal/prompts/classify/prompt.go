// Package classify holds the paper classification prompts.
package classify

import (
	_ "embed"

	"github.com/jackzampolin/papercheck/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user_text.tmpl
var userTextPrompt string

//go:embed user_image.tmpl
var userImagePrompt string

const (
	SystemKey    = "classify.system"
	UserTextKey  = "classify.user_text"
	UserImageKey = "classify.user_image"
)

// TextData is the template data for the text-mode user prompt.
type TextData struct {
	Count int
	Texts []string
}

// RegisterPrompts registers the classification prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Subject and title classification system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserTextKey,
		Text:        userTextPrompt,
		Description: "Classification from the leading OCR lines",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserImageKey,
		Text:        userImagePrompt,
		Description: "Classification from the first page image",
	})
}
