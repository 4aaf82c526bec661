package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/patentalloy/internal/extract"
)

func TestReporter_CountsRunActivity(t *testing.T) {
	r := New()

	r.LoadStart("/m.gguf")
	r.TierFailed(extract.TierFull, errors.New("oom"))
	r.LoadEnd(extract.TierPartial, 3*time.Second, nil)
	r.ChunkEnd(0, 3, time.Second, "Hardness: 350 HB", nil)
	r.ChunkEnd(1, 3, time.Second, "No alloy information", nil)
	r.ChunkEnd(2, 3, time.Second, "", errors.New("crash"))
	r.MergeEnd(2*time.Second, "Hardness: 350 HB", nil)
	r.RunEnd(10*time.Second, nil)
	r.RunEnd(time.Second, errors.New("crash"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.tierFailures.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tierSelected.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.chunks.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.chunks.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.chunks.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.genDuration), "chunk and merge series")
}

func TestReporter_LoadFailures(t *testing.T) {
	r := New()

	// A missing server binary fails before any tier is tried.
	r.LoadEnd(extract.TierFull, time.Millisecond, fmt.Errorf("load model: %w", errors.New("exec: not found")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.tierFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.loadFailures.WithLabelValues("error")))

	exhausted := &extract.InferenceError{Op: "load", Err: &extract.FallbackError{Tier: extract.TierCPU, Err: extract.ErrBackend}}
	r.LoadEnd(extract.TierCPU, time.Second, exhausted)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tierFailures.WithLabelValues("cpu")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.tierFailures.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.loadFailures.WithLabelValues("tiers_exhausted")))
	assert.Zero(t, testutil.CollectAndCount(r.tierSelected))
}

func TestReporter_JobGauges(t *testing.T) {
	r := New()
	r.JobStarted()
	r.JobStarted()
	r.JobFinished()
	r.SetQueued(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobsInFlight))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.queuedJobs))
}

func TestReporter_Handler(t *testing.T) {
	r := New()
	r.RunEnd(time.Second, nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `patentalloy_runs_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
