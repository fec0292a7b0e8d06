package svcctx

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"

	"github.com/jackzampolin/papercheck/internal/home"
	"github.com/jackzampolin/papercheck/internal/prompts"
	"github.com/jackzampolin/papercheck/internal/record"
)

func TestServicesRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	h, _ := home.New("/tmp/papercheck")
	s := &Services{
		Home:    h,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		FS:      fs,
		Store:   record.NewStore(fs),
		Prompts: prompts.NewResolver(fs, "", nil),
	}
	ctx := WithServices(context.Background(), s)

	if ServicesFrom(ctx) != s {
		t.Fatal("ServicesFrom() did not return the attached services")
	}
	if HomeFrom(ctx) != h {
		t.Error("HomeFrom() mismatch")
	}
	if LoggerFrom(ctx) != s.Logger {
		t.Error("LoggerFrom() mismatch")
	}
	if FSFrom(ctx) != fs {
		t.Error("FSFrom() mismatch")
	}
	if StoreFrom(ctx) != s.Store {
		t.Error("StoreFrom() mismatch")
	}
	if PromptsFrom(ctx) != s.Prompts {
		t.Error("PromptsFrom() mismatch")
	}
}

func TestServicesMissing(t *testing.T) {
	ctx := context.Background()

	if ServicesFrom(ctx) != nil {
		t.Error("expected nil services")
	}
	if ConfigFrom(ctx) != nil || HomeFrom(ctx) != nil || StoreFrom(ctx) != nil || PromptsFrom(ctx) != nil {
		t.Error("expected nil extractors without services")
	}
	if LoggerFrom(ctx) == nil {
		t.Error("LoggerFrom() should fall back to the default logger")
	}
	if _, ok := FSFrom(ctx).(*afero.OsFs); !ok {
		t.Error("FSFrom() should fall back to the OS filesystem")
	}
}
