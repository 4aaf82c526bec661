package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/parser"
	"github.com/dgallion1/patentalloy/internal/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type extractorFunc func(ctx context.Context, text string, opts extract.Options) (string, error)

func (f extractorFunc) Extract(ctx context.Context, text string, opts extract.Options) (string, error) {
	return f(ctx, text, opts)
}

func newRunner(ex pipeline.Extractor) *pipeline.Orchestrator {
	w := pipeline.NewWorker(ex, nil, discard, parser.Options{}, extract.Options{ChunkSize: 2000})
	return pipeline.NewOrchestrator(pipeline.Options{Workers: 1, MaxQueue: 1}, w, nil, discard)
}

func TestAccepts(t *testing.T) {
	for path, want := range map[string]bool{
		"/in/US123.pdf":        true,
		"/in/claims.txt":       true,
		"/in/draft.docx":       true,
		"/in/US123.alloys.txt": false,
		"/in/.US123.pdf.swp":   false,
		"/in/spreadsheet.xlsx": false,
		"/in/README":           false,
	} {
		assert.Equal(t, want, Accepts(path), path)
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/out", "US123.alloys.txt"), OutputPath("/out", "/in/US123.pdf"))
	assert.Equal(t, filepath.Join("/out", "notes.alloys.txt"), OutputPath("/out", "notes"))
}

func TestProcessor_WritesResult(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "claims.txt")
	require.NoError(t, os.WriteFile(src, []byte("A nickel alloy with 350 HB hardness."), 0o644))

	var seen string
	runner := newRunner(extractorFunc(func(_ context.Context, text string, _ extract.Options) (string, error) {
		seen = text
		return "Hardness: 350 HB", nil
	}))

	require.NoError(t, Processor(runner, out)(context.Background(), src))
	assert.Equal(t, "A nickel alloy with 350 HB hardness.", seen)

	got, err := os.ReadFile(filepath.Join(out, "claims.alloys.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hardness: 350 HB\n", string(got))
}

func TestProcessor_EmptyResult(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "plain.txt")
	require.NoError(t, os.WriteFile(src, []byte("nothing metallic here"), 0o644))

	runner := newRunner(extractorFunc(func(context.Context, string, extract.Options) (string, error) {
		return "", nil
	}))

	require.NoError(t, Processor(runner, out)(context.Background(), src))
	got, err := os.ReadFile(filepath.Join(out, "plain.alloys.txt"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcessor_FailureWritesNothing(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	src := filepath.Join(in, "claims.txt")
	require.NoError(t, os.WriteFile(src, []byte("text"), 0o644))

	runner := newRunner(extractorFunc(func(context.Context, string, extract.Options) (string, error) {
		return "", &extract.InferenceError{Op: extract.OpMerge, Err: errors.New("crash")}
	}))

	err := Processor(runner, out)(context.Background(), src)
	require.Error(t, err)
	var infErr *extract.InferenceError
	assert.ErrorAs(t, err, &infErr)
	assert.NoFileExists(t, filepath.Join(out, "claims.alloys.txt"))
}

func TestProcessor_MissingFile(t *testing.T) {
	runner := newRunner(extractorFunc(func(context.Context, string, extract.Options) (string, error) {
		return "x", nil
	}))
	err := Processor(runner, t.TempDir())(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	assert.Error(t, err)
}

func TestWatcher_HandlesNewFiles(t *testing.T) {
	dir := t.TempDir()
	handled := make(chan string, 4)
	var calls atomic.Int32

	w, err := New(dir, func(_ context.Context, path string) error {
		calls.Add(1)
		handled <- filepath.Base(path)
		return nil
	}, discard, 2)
	require.NoError(t, err)
	defer w.Close()
	w.settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "US1.txt"), []byte("steel"), 0o644))

	select {
	case name := <-handled:
		assert.Equal(t, "US1.txt", name)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), nil, discard, 1)
	assert.Error(t, err)
}
