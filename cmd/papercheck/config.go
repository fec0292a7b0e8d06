package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/output"
	"github.com/jackzampolin/papercheck/internal/svcctx"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write the default config file",
	Long:        `Write the default config to path (default: ~/.papercheck/config.yaml).`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		h := svcctx.HomeFrom(cmd.Context())
		path := h.ConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		svcctx.LoggerFrom(cmd.Context()).Info("wrote default config", "path", path)
		return nil
	},
}

// ConfigView is the output of config show.
type ConfigView struct {
	File   string         `json:"file,omitempty" yaml:"file,omitempty"`
	Config *config.Config `json:"config" yaml:"config"`
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		cfg := *s.Config.Get()
		if cfg.Reasoning.APIKey != "" {
			cfg.Reasoning.APIKey = "<redacted>"
		}
		return output.Print(ConfigView{File: s.Config.ConfigFileUsed(), Config: &cfg})
	},
}

var configKeysCmd = &cobra.Command{
	Use:         "keys [key]",
	Short:       "List configuration keys with their defaults",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfigAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			entry := config.GetDefault(args[0])
			if entry == nil {
				return fmt.Errorf("%w for key %q", config.ErrNoDefault, args[0])
			}
			return output.Print(entry)
		}
		entries := config.DefaultEntries()
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return output.Print(entries)
	},
}

// PromptView describes one prompt key for config prompts.
type PromptView struct {
	Key        string   `json:"key" yaml:"key"`
	Source     string   `json:"source" yaml:"source"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Hash       string   `json:"hash" yaml:"hash"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
}

var promptsShowText bool

var configPromptsCmd = &cobra.Command{
	Use:   "prompts [key]",
	Short: "List prompt keys and where their text comes from",
	Long: `List every prompt key with its source. A file named <key>.tmpl in
prompts_dir (default ~/.papercheck/prompts) overrides the built-in prompt.

Examples:
  papercheck config prompts
  papercheck config prompts classify.system --text`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := services(cmd)
		if err != nil {
			return err
		}
		keys := s.Prompts.Keys()
		if len(args) == 1 {
			keys = args
		}
		views := make([]PromptView, 0, len(keys))
		for _, key := range keys {
			p, err := s.Prompts.Resolve(key)
			if err != nil {
				return err
			}
			v := PromptView{
				Key:        p.Key,
				Source:     p.Source,
				IsOverride: p.IsOverride,
				Hash:       p.Hash,
				Variables:  p.Variables,
			}
			if promptsShowText || len(args) == 1 {
				v.Text = p.Text
			}
			views = append(views, v)
		}
		return output.Print(views)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing file")
	configPromptsCmd.Flags().BoolVar(&promptsShowText, "text", false, "include prompt text")

	configCmd.AddCommand(configInitCmd, configShowCmd, configKeysCmd, configPromptsCmd)
	rootCmd.AddCommand(configCmd)
}
