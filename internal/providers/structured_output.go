package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedResponse marks a model reply that could not be parsed or did
// not match its response schema.
var ErrMalformedResponse = errors.New("malformed model response")

// responseSchema is a named JSON schema for one kind of model reply, compiled
// once for local validation.
type responseSchema struct {
	name     string
	document map[string]any
	compiled *jsonschema.Schema
}

func compileResponseSchema(name string, document map[string]any) (*responseSchema, error) {
	raw, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s schema: %w", name, err)
	}

	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
	}
	return &responseSchema{name: name, document: document, compiled: compiled}, nil
}

// decode parses content, validates it and unmarshals it into out.
func (s *responseSchema) decode(content string, out any) error {
	parsed, err := parseStructuredJSON(content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := s.compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s does not match schema: %v", ErrMalformedResponse, s.name, err)
	}

	if err := json.Unmarshal(parsed, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// parseStructuredJSON parses JSON from model output, recovering from markdown
// code fences and surrounding prose.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONObject(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return json.RawMessage(candidate), nil
		}
	}
	return nil, fmt.Errorf("no JSON object in reply")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Opening fence, possibly with a language tag.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

// schemaInstruction is appended to the system prompt when the endpoint is
// not asked to enforce the schema itself.
func schemaInstruction(s *responseSchema) string {
	raw, _ := json.MarshalIndent(s.document, "", "  ")
	return fmt.Sprintf("\n\nReturn ONLY valid JSON (no markdown, no commentary) that conforms to this schema:\n%s", raw)
}
