package prompts

import (
	"testing"

	"github.com/spf13/afero"
)

func TestResolver(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewResolver(fs, "/prompts", nil)
	r.Register(EmbeddedPrompt{Key: "demo.system", Text: "Hello {{.Name}}"})

	t.Run("embedded default", func(t *testing.T) {
		got, err := r.Resolve("demo.system")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if got.IsOverride || got.Source != "embedded" {
			t.Errorf("expected embedded prompt, got %+v", got)
		}
		if len(got.Variables) != 1 || got.Variables[0] != "Name" {
			t.Errorf("Variables = %v, want [Name]", got.Variables)
		}
		if got.Hash != HashText("Hello {{.Name}}") {
			t.Error("hash should be computed on register")
		}
	})

	t.Run("file override wins", func(t *testing.T) {
		if err := afero.WriteFile(fs, "/prompts/demo.system.tmpl", []byte("Hi {{.Other}}"), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := r.Resolve("demo.system")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !got.IsOverride || got.Text != "Hi {{.Other}}" || got.Source != "/prompts/demo.system.tmpl" {
			t.Errorf("expected override, got %+v", got)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		if _, err := r.Resolve("missing"); err == nil {
			t.Fatal("expected error for unknown key")
		}
	})

	t.Run("keys sorted", func(t *testing.T) {
		r.Register(EmbeddedPrompt{Key: "a.first", Text: "x"})
		keys := r.Keys()
		if len(keys) != 2 || keys[0] != "a.first" {
			t.Errorf("Keys() = %v", keys)
		}
	})
}

func TestResolverWithoutOverrideDir(t *testing.T) {
	r := NewResolver(nil, "", nil)
	r.Register(EmbeddedPrompt{Key: "k", Text: "t"})
	if r.OverridePath("k") != "" {
		t.Error("OverridePath should be empty without a directory")
	}
	got, err := r.Resolve("k")
	if err != nil || got.Text != "t" {
		t.Fatalf("Resolve() = %+v, %v", got, err)
	}
}

func TestRender(t *testing.T) {
	got, err := Render("t", "前 {{.Count}} 行：\n{{range .Texts}}{{.}}\n{{end}}", struct {
		Count int
		Texts []string
	}{2, []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if want := "前 2 行：\na\nb"; got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}

	if _, err := Render("bad", "{{.Missing", nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestExtractVariables(t *testing.T) {
	got := ExtractVariables("{{ .B }} {{.A}} {{.B}}")
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("ExtractVariables() = %v", got)
	}
}
