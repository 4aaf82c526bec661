package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Empty(t, cfg.Server.APIKey)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Model.Path)
	assert.Equal(t, "llama-server", cfg.Model.ServerBin)
	assert.Equal(t, runtime.NumCPU(), cfg.Model.Threads)
	assert.Equal(t, 2*time.Minute, cfg.Model.LoadTimeout)
	assert.Equal(t, 2000, cfg.Extract.ChunkSize)
	assert.Zero(t, cfg.Extract.Overlap)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.Equal(t, 20, cfg.Pipeline.MaxQueue)
	assert.Equal(t, time.Hour, cfg.Pipeline.JobTTL)
	assert.True(t, cfg.PDF.FallbackPdftotext)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patentalloy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
model:
  path: /models/mistral.gguf
  threads: 4
extract:
  chunk_size: 1500
  overlap: 100
log:
  format: text
`), 0o644))

	t.Setenv("PATENTALLOY_MODEL_THREADS", "12")
	t.Setenv("PATENTALLOY_PIPELINE_JOB_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "/models/mistral.gguf", cfg.Model.Path)
	assert.Equal(t, 12, cfg.Model.Threads, "env overrides file")
	assert.Equal(t, 1500, cfg.Extract.ChunkSize)
	assert.Equal(t, 100, cfg.Extract.Overlap)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.JobTTL)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidOverlap(t *testing.T) {
	t.Setenv("PATENTALLOY_EXTRACT_CHUNK_SIZE", "100")
	t.Setenv("PATENTALLOY_EXTRACT_OVERLAP", "100")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.overlap")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "loud", Format: "xml"}}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "model.threads", "extract.chunk_size", "log.level", "log.format"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "job_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"job_id":"abc"`)

	buf.Reset()
	NewLogger(LogConfig{Level: "debug", Format: "text"}, &buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
