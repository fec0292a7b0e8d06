package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/papercheck/internal/document"
	"github.com/jackzampolin/papercheck/internal/providers"
	"github.com/jackzampolin/papercheck/internal/raster"
	"github.com/jackzampolin/papercheck/internal/record"
	"github.com/jackzampolin/papercheck/internal/stages"
	"github.com/jackzampolin/papercheck/internal/testutil"
)

type fakeRasterizer struct{}

func (fakeRasterizer) RenderPages(_ context.Context, pdf []byte, _ int) ([]image.Image, error) {
	n, err := raster.PageCount(pdf)
	if err != nil {
		return nil, err
	}
	out := make([]image.Image, n)
	for i := range out {
		out[i] = testutil.Solid(i+1, 2, color.White)
	}
	return out, nil
}

// harness wires real normalizer, stages and store to mock collaborators.
type harness struct {
	fs         afero.Fs
	ocr        *providers.MockOCR
	classifier *providers.MockClassifier
	detector   *providers.MockMistakeDetector
	store      *record.Store
	workers    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		fs: afero.NewMemMapFs(),
		ocr: &providers.MockOCR{Result: &providers.OCRResult{
			Texts: []string{"三年级数学期中测试", "一、口算"},
			Boxes: []record.Box{record.RectBox(10, 10, 200, 30), record.RectBox(10, 40, 80, 60)},
		}},
		classifier: &providers.MockClassifier{Result: &providers.Classification{Subject: "数学", Title: "三年级数学期中测试"}},
		detector: &providers.MockMistakeDetector{Mistakes: func(int, providers.Image) ([]record.Mistake, error) {
			return []record.Mistake{{Question: "7×8=", Reason: "计算错误"}}, nil
		}},
		workers: 1,
	}
}

func (h *harness) orchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := testutil.Logger()
	h.store = record.NewStore(h.fs)

	classify, err := stages.NewClassify(stages.ClassifyConfig{Classifier: h.classifier, FS: h.fs, Logger: logger})
	require.NoError(t, err)

	o, err := New(Config{
		FS:           h.fs,
		InputDir:     "/papers",
		Excludes:     []string{".*", "errors"},
		ArtifactsDir: "/papers/errors",
		Workers:      h.workers,
		Normalizer: document.NewNormalizer(document.NormalizerConfig{
			FS:         h.fs,
			Rasterizer: fakeRasterizer{},
			Logger:     logger,
		}),
		Stages: []stages.Stage{
			stages.NewExtract(h.ocr, h.fs, logger),
			classify,
			stages.NewMistakes(stages.MistakesConfig{
				Detector:  h.detector,
				FS:        h.fs,
				Artifacts: stages.NewDirArtifacts(h.fs, "/papers/errors"),
				Logger:    logger,
			}),
		},
		Store:  h.store,
		Logger: logger,
	})
	require.NoError(t, err)
	return o
}

func outcomeFor(t *testing.T, r *Report, path string) Outcome {
	t.Helper()
	for _, o := range r.Outcomes {
		if o.Path == path {
			return o
		}
	}
	t.Fatalf("no outcome for %s", path)
	return Outcome{}
}

func TestRun_SingleJPEG(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/a.jpg", testutil.JPEG(t, 16, 16))

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Discovered)
	assert.Equal(t, 1, report.Persisted)

	rec, err := h.store.Load("/papers/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"三年级数学期中测试", "一、口算"}, rec.Texts)
	assert.Len(t, rec.Boxes, 2)
	assert.Equal(t, "数学", rec.Subject)
	assert.Equal(t, "三年级数学期中测试", rec.Title)
	require.Len(t, rec.Mistakes, 1)
	assert.Equal(t, record.Mistake{Question: "7×8=", Reason: "计算错误", Page: 1}, rec.Mistakes[0])
	assert.Empty(t, rec.FailedPages)

	raw, err := afero.ReadFile(h.fs, "/papers/a.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mistakes_count": 1`)
	assert.Contains(t, string(raw), "数学")
}

func TestRun_MultiPagePDF(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/exam.pdf", testutil.MinimalPDF(3))

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Persisted)

	rec, err := h.store.Load("/papers/exam.pdf")
	require.NoError(t, err)
	require.Len(t, rec.Mistakes, 3)
	for i, m := range rec.Mistakes {
		assert.Equal(t, i+1, m.Page)
	}
	assert.Equal(t, int64(1), h.ocr.Calls(), "only the first page is OCRed")
	assert.Equal(t, int64(3), h.detector.Calls())
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/a.jpg", testutil.JPEG(t, 8, 8))
	testutil.WriteFile(t, h.fs, "/papers/b.png", testutil.PNG(t, 8, 8))

	o := h.orchestrator(t)
	first, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Persisted)

	ocrCalls := h.ocr.Calls()
	classifyCalls := h.classifier.Calls()
	detectCalls := h.detector.Calls()

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Discovered)
	assert.Empty(t, second.Outcomes)
	assert.Equal(t, ocrCalls, h.ocr.Calls())
	assert.Equal(t, classifyCalls, h.classifier.Calls())
	assert.Equal(t, detectCalls, h.detector.Calls())
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/a.jpg", testutil.JPEG(t, 8, 8))
	testutil.WriteFile(t, h.fs, "/papers/b.jpg", testutil.JPEG(t, 9, 9))
	testutil.WriteFile(t, h.fs, "/papers/c.jpg", testutil.JPEG(t, 10, 10))

	var mu sync.Mutex
	failB := true
	h.ocr.ExtractFunc = func(_ context.Context, img []byte) (*providers.OCRResult, error) {
		mu.Lock()
		defer mu.Unlock()
		cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
		if err == nil && cfg.Width == 9 && failB {
			return nil, errors.New("ocr engine crashed")
		}
		return &providers.OCRResult{Texts: []string{"x"}, Boxes: []record.Box{record.RectBox(0, 0, 1, 1)}}, nil
	}

	o := h.orchestrator(t)
	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Persisted)
	assert.Equal(t, 1, report.Failed)

	b := outcomeFor(t, report, "/papers/b.jpg")
	assert.Equal(t, StateFailed, b.State)
	assert.Equal(t, stages.NameExtract, b.FailedAt)
	var se *stages.StageError
	assert.ErrorAs(t, b.Err, &se)

	assert.True(t, h.store.Exists("/papers/a.jpg"))
	assert.False(t, h.store.Exists("/papers/b.jpg"))
	assert.True(t, h.store.Exists("/papers/c.jpg"))

	// The next run retries only the failed document.
	mu.Lock()
	failB = false
	mu.Unlock()
	retry, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, retry.Outcomes, 1)
	assert.Equal(t, "/papers/b.jpg", retry.Outcomes[0].Path)
	assert.Equal(t, StatePersisted, retry.Outcomes[0].State)
}

func TestRun_PageFailureStillPersists(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/exam.pdf", testutil.MinimalPDF(3))
	h.detector.Mistakes = func(call int, _ providers.Image) ([]record.Mistake, error) {
		if call == 2 {
			return nil, errors.New("model refused")
		}
		return []record.Mistake{{Question: "q", Reason: "r"}}, nil
	}

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Persisted)
	assert.Equal(t, []int{2}, report.Outcomes[0].FailedPages)

	rec, err := h.store.Load("/papers/exam.pdf")
	require.NoError(t, err)
	assert.Len(t, rec.Mistakes, 2)
	assert.Equal(t, []int{2}, rec.FailedPages)

	artifacts, err := afero.ReadDir(h.fs, "/papers/errors")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.True(t, strings.HasPrefix(artifacts[0].Name(), "exam_"))
	assert.True(t, strings.HasSuffix(artifacts[0].Name(), "_p002.png"))
}

func TestRun_UnsupportedFormatSkipped(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/fake.png", []byte("this is not an image"))
	testutil.WriteFile(t, h.fs, "/papers/real.png", testutil.PNG(t, 8, 8))

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Persisted)

	fake := outcomeFor(t, report, "/papers/fake.png")
	assert.Equal(t, StateSkipped, fake.State)
	assert.ErrorIs(t, fake.Err, document.ErrUnsupportedFormat)
	assert.False(t, h.store.Exists("/papers/fake.png"))
}

func TestRun_NormalizeFailure(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/broken.pdf", []byte("%PDF-1.4\ngarbage"))

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	out := outcomeFor(t, report, "/papers/broken.pdf")
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, FailedAtNormalize, out.FailedAt)
	assert.Zero(t, h.ocr.Calls())
}

// readOnlySidecars refuses to create .json files.
type readOnlySidecars struct {
	afero.Fs
}

func (f readOnlySidecars) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.HasSuffix(name, ".json") && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, os.ErrPermission
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestRun_PersistFailure(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/a.jpg", testutil.JPEG(t, 8, 8))
	h.fs = readOnlySidecars{Fs: h.fs}

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)

	out := outcomeFor(t, report, "/papers/a.jpg")
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, FailedAtPersist, out.FailedAt)
	var pe *record.PersistenceError
	assert.ErrorAs(t, out.Err, &pe)
	assert.ErrorIs(t, out.Err, os.ErrPermission)
}

func TestRun_WorkersKeepDiscoveryOrder(t *testing.T) {
	h := newHarness(t)
	h.workers = 4
	names := []string{"a", "b", "c", "d", "e", "f"}
	for i, n := range names {
		testutil.WriteFile(t, h.fs, "/papers/"+n+".png", testutil.PNG(t, 10+i, 4))
	}
	h.ocr.Latency = 10 * time.Millisecond

	report, err := h.orchestrator(t).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, len(names))
	for i, n := range names {
		assert.Equal(t, "/papers/"+n+".png", report.Outcomes[i].Path)
		assert.Equal(t, StatePersisted, report.Outcomes[i].State)
	}
}

func TestRun_StageOrderAndWrapping(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.WriteFile(t, fs, "/papers/a.png", testutil.PNG(t, 4, 4))

	var order []string
	first := newMockStage("first")
	first.apply = func(context.Context, *record.Record, document.Input) error {
		order = append(order, "first")
		return nil
	}
	second := newMockStage("second")
	second.apply = func(context.Context, *record.Record, document.Input) error {
		order = append(order, "second")
		return errors.New("plain error")
	}
	third := newMockStage("third")

	o, err := New(Config{
		FS:         fs,
		InputDir:   "/papers",
		Normalizer: document.NewNormalizer(document.NormalizerConfig{FS: fs, Logger: testutil.Logger()}),
		Stages:     []stages.Stage{first, second, third},
		Logger:     testutil.Logger(),
	})
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Zero(t, third.calls, "later stages do not run after a failure")

	out := report.Outcomes[0]
	assert.Equal(t, "second", out.FailedAt)
	var se *stages.StageError
	require.ErrorAs(t, out.Err, &se)
	assert.Equal(t, "second", se.Stage)
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.fs, "/papers/a.jpg", testutil.JPEG(t, 8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.orchestrator(t).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.store.Exists("/papers/a.jpg"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{FS: afero.NewMemMapFs()})
	assert.Error(t, err)

	_, err = New(Config{FS: afero.NewMemMapFs(), InputDir: "/papers"})
	assert.Error(t, err)
}
