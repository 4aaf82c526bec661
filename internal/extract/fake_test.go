package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeEngine is a deterministic stand-in for a local inference engine.
type fakeEngine struct {
	loadCalls  int
	loaded     []LoadParams
	failTiers  map[string]error
	respond    func(prompt string, p GenerateParams) (string, error)
	prompts    []string
	params     []GenerateParams
	closeCalls int
}

func (e *fakeEngine) Load(_ context.Context, p LoadParams) (Model, error) {
	e.loadCalls++
	e.loaded = append(e.loaded, p)
	if err, ok := e.failTiers[p.Tier.Name]; ok {
		return nil, err
	}
	return &fakeModel{engine: e}, nil
}

type fakeModel struct {
	engine *fakeEngine
}

func (m *fakeModel) Generate(_ context.Context, prompt string, p GenerateParams) (string, error) {
	m.engine.prompts = append(m.engine.prompts, prompt)
	m.engine.params = append(m.engine.params, p)
	if m.engine.respond == nil {
		return "", nil
	}
	return m.engine.respond(prompt, p)
}

func (m *fakeModel) Close() error {
	m.engine.closeCalls++
	return nil
}

func (e *fakeEngine) mergeCalls() int {
	n := 0
	for _, p := range e.prompts {
		if strings.HasPrefix(p, MergePromptTemplate) {
			n++
		}
	}
	return n
}

func (e *fakeEngine) chunkCalls() int {
	n := 0
	for _, p := range e.prompts {
		if strings.HasPrefix(p, ChunkPromptTemplate) {
			n++
		}
	}
	return n
}

func backendErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrBackend, msg)
}

var errEngineCrashed = errors.New("engine crashed")

// writeModel creates an empty model file and returns its path.
func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultModelFile)
	if err := os.WriteFile(path, []byte("gguf"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

// recordingReporter captures the order of reporter events.
type recordingReporter struct {
	events []string
}

func (r *recordingReporter) add(e string) { r.events = append(r.events, e) }

func (r *recordingReporter) LoadStart(string) { r.add("load_start") }
func (r *recordingReporter) TierFailed(t Tier, _ error) {
	r.add("tier_failed:" + t.Name)
}
func (r *recordingReporter) LoadEnd(t Tier, _ time.Duration, err error) {
	if err != nil {
		r.add("load_failed")
		return
	}
	r.add("load_end:" + t.Name)
}
func (r *recordingReporter) ChunkStart(i, _, _ int) { r.add(fmt.Sprintf("chunk_start:%d", i)) }
func (r *recordingReporter) ChunkEnd(i, _ int, _ time.Duration, _ string, _ error) {
	r.add(fmt.Sprintf("chunk_end:%d", i))
}
func (r *recordingReporter) MergeStart(n int) { r.add(fmt.Sprintf("merge_start:%d", n)) }
func (r *recordingReporter) MergeEnd(time.Duration, string, error) {
	r.add("merge_end")
}
func (r *recordingReporter) RunEnd(_ time.Duration, err error) {
	if err != nil {
		r.add("run_failed")
		return
	}
	r.add("run_end")
}
