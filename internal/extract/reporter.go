package extract

import (
	"log/slog"
	"time"

	"github.com/dgallion1/patentalloy/internal/chunker"
)

// Reporter observes a pipeline run. Implementations must not affect the
// outcome of the run and must be safe to call from the run's goroutine only.
type Reporter interface {
	LoadStart(path string)
	TierFailed(tier Tier, err error)
	LoadEnd(tier Tier, elapsed time.Duration, err error)
	ChunkStart(index, total, size int)
	ChunkEnd(index, total int, elapsed time.Duration, output string, err error)
	MergeStart(entries int)
	MergeEnd(elapsed time.Duration, output string, err error)
	RunEnd(elapsed time.Duration, err error)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) LoadStart(string)                                {}
func (NopReporter) TierFailed(Tier, error)                          {}
func (NopReporter) LoadEnd(Tier, time.Duration, error)              {}
func (NopReporter) ChunkStart(int, int, int)                        {}
func (NopReporter) ChunkEnd(int, int, time.Duration, string, error) {}
func (NopReporter) MergeStart(int)                                  {}
func (NopReporter) MergeEnd(time.Duration, string, error)           {}
func (NopReporter) RunEnd(time.Duration, error)                     {}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) LoadStart(path string) {
	for _, r := range m {
		r.LoadStart(path)
	}
}

func (m MultiReporter) TierFailed(tier Tier, err error) {
	for _, r := range m {
		r.TierFailed(tier, err)
	}
}

func (m MultiReporter) LoadEnd(tier Tier, elapsed time.Duration, err error) {
	for _, r := range m {
		r.LoadEnd(tier, elapsed, err)
	}
}

func (m MultiReporter) ChunkStart(index, total, size int) {
	for _, r := range m {
		r.ChunkStart(index, total, size)
	}
}

func (m MultiReporter) ChunkEnd(index, total int, elapsed time.Duration, output string, err error) {
	for _, r := range m {
		r.ChunkEnd(index, total, elapsed, output, err)
	}
}

func (m MultiReporter) MergeStart(entries int) {
	for _, r := range m {
		r.MergeStart(entries)
	}
}

func (m MultiReporter) MergeEnd(elapsed time.Duration, output string, err error) {
	for _, r := range m {
		r.MergeEnd(elapsed, output, err)
	}
}

func (m MultiReporter) RunEnd(elapsed time.Duration, err error) {
	for _, r := range m {
		r.RunEnd(elapsed, err)
	}
}

// LogReporter writes run progress to a structured logger.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) LoadStart(path string) {
	r.Log.Info("loading model", "path", path)
}

func (r LogReporter) TierFailed(tier Tier, err error) {
	r.Log.Warn("acceleration tier unavailable, trying next", "tier", tier.Name, "gpu_layers", tier.GPULayers, "error", err)
}

func (r LogReporter) LoadEnd(tier Tier, elapsed time.Duration, err error) {
	if err != nil {
		r.Log.Error("model load failed", "duration_ms", elapsed.Milliseconds(), "error", err)
		return
	}
	r.Log.Info("model loaded", "tier", tier.Name, "gpu_layers", tier.GPULayers, "duration_ms", elapsed.Milliseconds())
}

func (r LogReporter) ChunkStart(index, total, size int) {
	r.Log.Info("processing chunk", "chunk", index+1, "total", total, "chars", size)
}

func (r LogReporter) ChunkEnd(index, total int, elapsed time.Duration, output string, err error) {
	if err != nil {
		r.Log.Error("chunk failed", "chunk", index+1, "total", total, "error", err)
		return
	}
	if output == "" {
		r.Log.Info("chunk produced no output", "chunk", index+1, "total", total, "duration_ms", elapsed.Milliseconds())
		return
	}
	r.Log.Info("chunk processed",
		"chunk", index+1,
		"total", total,
		"duration_ms", elapsed.Milliseconds(),
		"approx_tokens", chunker.EstimateTokens(output),
	)
	r.Log.Debug("chunk output", "chunk", index+1, "output", output)
}

func (r LogReporter) MergeStart(entries int) {
	r.Log.Info("merging chunk results", "entries", entries)
}

func (r LogReporter) MergeEnd(elapsed time.Duration, output string, err error) {
	if err != nil {
		r.Log.Error("merge failed", "error", err)
		return
	}
	r.Log.Info("merge complete", "duration_ms", elapsed.Milliseconds(), "lines", countLines(output))
}

func (r LogReporter) RunEnd(elapsed time.Duration, err error) {
	if err != nil {
		r.Log.Error("extraction failed", "duration_ms", elapsed.Milliseconds(), "error", err)
		return
	}
	r.Log.Info("extraction finished", "duration_ms", elapsed.Milliseconds())
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
