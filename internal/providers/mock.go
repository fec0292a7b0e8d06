package providers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/papercheck/internal/record"
)

// MockOCR is an OCR for testing.
type MockOCR struct {
	Latency time.Duration
	Result  *OCRResult
	Err     error

	// ExtractFunc overrides Result/Err when set.
	ExtractFunc func(ctx context.Context, image []byte) (*OCRResult, error)

	calls atomic.Int64
}

// Extract returns the configured result.
func (m *MockOCR) Extract(ctx context.Context, image []byte) (*OCRResult, error) {
	m.calls.Add(1)
	if err := sleep(ctx, m.Latency); err != nil {
		return nil, err
	}
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, image)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &OCRResult{Texts: []string{}, Boxes: []record.Box{}}, nil
	}
	return m.Result, nil
}

// Calls returns how many times Extract was called.
func (m *MockOCR) Calls() int64 {
	return m.calls.Load()
}

// MockClassifier is a Classifier for testing.
type MockClassifier struct {
	Result *Classification
	Err    error

	// ClassifyFunc overrides Result/Err when set.
	ClassifyFunc func(ctx context.Context, in ClassifyInput) (*Classification, error)

	mu     sync.Mutex
	inputs []ClassifyInput
}

// Classify returns the configured classification.
func (m *MockClassifier) Classify(ctx context.Context, in ClassifyInput) (*Classification, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, in)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &Classification{Subject: record.SubjectMath, Title: "mock"}, nil
	}
	return m.Result, nil
}

// Inputs returns a copy of every input Classify received.
func (m *MockClassifier) Inputs() []ClassifyInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ClassifyInput(nil), m.inputs...)
}

// Calls returns how many times Classify was called.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// MockMistakeDetector is a MistakeDetector for testing. Pages are counted
// in call order starting at 1.
type MockMistakeDetector struct {
	// Mistakes returns the mistakes for the nth call.
	Mistakes func(call int, img Image) ([]record.Mistake, error)
	// Delay returns how long the nth call should take.
	Delay func(call int) time.Duration

	calls atomic.Int64
}

// DetectMistakes returns the configured mistakes.
func (m *MockMistakeDetector) DetectMistakes(ctx context.Context, img Image) ([]record.Mistake, error) {
	call := int(m.calls.Add(1))
	if m.Delay != nil {
		if err := sleep(ctx, m.Delay(call)); err != nil {
			return nil, err
		}
	}
	if m.Mistakes == nil {
		return nil, nil
	}
	return m.Mistakes(call, img)
}

// Calls returns how many times DetectMistakes was called.
func (m *MockMistakeDetector) Calls() int64 {
	return m.calls.Load()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
