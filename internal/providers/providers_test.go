package providers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/papercheck/internal/record"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows initial burst", func(t *testing.T) {
		limiter := NewRateLimiter(600)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("defaults non-positive rate", func(t *testing.T) {
		limiter := NewRateLimiter(0)
		if got := limiter.Status().RequestsPerMinute; got != defaultRequestsPerMinute {
			t.Errorf("RequestsPerMinute = %d, want %d", got, defaultRequestsPerMinute)
		}
	})

	t.Run("record 429 drains tokens", func(t *testing.T) {
		limiter := NewRateLimiter(60)
		limiter.Record429(0)

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if status.TokensAvailable != 0 {
			t.Errorf("TokensAvailable = %d, want 0", status.TokensAvailable)
		}
	})

	t.Run("retry-after holds callers", func(t *testing.T) {
		limiter := NewRateLimiter(6000)
		limiter.Record429(150 * time.Millisecond)

		start := time.Now()
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
			t.Errorf("Wait returned after %v, want at least the retry-after window", elapsed)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(6000)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if got := limiter.Status().TotalConsumed; got != 10 {
			t.Errorf("TotalConsumed = %d, want 10", got)
		}
	})
}

func TestImageDataURI(t *testing.T) {
	img := Image{Data: []byte("abc"), MIME: "image/png"}
	if got, want := img.DataURI(), "data:image/png;base64,YWJj"; got != want {
		t.Errorf("DataURI() = %q, want %q", got, want)
	}
}

func TestOCRResultAligned(t *testing.T) {
	ok := &OCRResult{Texts: []string{"a"}, Boxes: []record.Box{record.RectBox(0, 0, 1, 1)}}
	if !ok.Aligned() {
		t.Error("expected aligned result")
	}
	bad := &OCRResult{Texts: []string{"a", "b"}, Boxes: []record.Box{record.RectBox(0, 0, 1, 1)}}
	if bad.Aligned() {
		t.Error("expected misaligned result")
	}
}

func TestMocks(t *testing.T) {
	t.Run("ocr counts calls", func(t *testing.T) {
		m := &MockOCR{}
		res, err := m.Extract(context.Background(), nil)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if res.Texts == nil || res.Boxes == nil {
			t.Error("default result should carry empty, non-nil slices")
		}
		if m.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", m.Calls())
		}
	})

	t.Run("classifier records inputs", func(t *testing.T) {
		m := &MockClassifier{}
		_, _ = m.Classify(context.Background(), ClassifyInput{Texts: []string{"x"}})
		if got := m.Inputs(); len(got) != 1 || got[0].Texts[0] != "x" {
			t.Errorf("Inputs() = %#v", got)
		}
	})

	t.Run("mistake detector honors cancellation", func(t *testing.T) {
		m := &MockMistakeDetector{Delay: func(int) time.Duration { return time.Second }}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := m.DetectMistakes(ctx, Image{}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
