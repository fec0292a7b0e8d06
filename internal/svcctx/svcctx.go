// Package svcctx provides service context for dependency injection via context.
// Commands receive the services built by the root command through cmd.Context().
package svcctx

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/config"
	"github.com/jackzampolin/papercheck/internal/home"
	"github.com/jackzampolin/papercheck/internal/prompts"
	"github.com/jackzampolin/papercheck/internal/record"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config  *config.Manager
	Home    *home.Dir
	Logger  *slog.Logger
	FS      afero.Fs
	Store   *record.Store
	Prompts *prompts.Resolver
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// LoggerFrom extracts the logger from context.
// Falls back to slog.Default() so callers never get nil.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// FSFrom extracts the filesystem from context.
// Falls back to the OS filesystem.
func FSFrom(ctx context.Context) afero.Fs {
	if s := ServicesFrom(ctx); s != nil && s.FS != nil {
		return s.FS
	}
	return afero.NewOsFs()
}

// StoreFrom extracts the sidecar store from context.
func StoreFrom(ctx context.Context) *record.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// PromptsFrom extracts the prompt resolver from context.
func PromptsFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}
