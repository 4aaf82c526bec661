package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/patentalloy/internal/chunker"
)

// DefaultModelFile is the model shipped next to the binary.
const DefaultModelFile = "mistral-7b-instruct-v0.2.Q4_K_M.gguf"

// DefaultModelPath resolves the bundled model location, models/ beside the
// running executable.
func DefaultModelPath() string {
	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}
	return filepath.Join(dir, "models", DefaultModelFile)
}

// Options configures a single extraction run.
type Options struct {
	ModelPath string // Empty selects the pipeline default.
	ChunkSize int
	Overlap   int
	Reporter  Reporter
}

// DefaultOptions returns 2000-character windows without overlap.
func DefaultOptions() Options {
	cfg := chunker.DefaultConfig()
	return Options{ChunkSize: cfg.ChunkSize, Overlap: cfg.Overlap}
}

// Pipeline extracts alloy properties from document text with a map-reduce
// pass over a locally loaded model. Every call to Extract loads its own model
// and releases it before returning; a Pipeline holds no model between runs.
type Pipeline struct {
	engine       Engine
	tiers        []Tier
	threads      int
	defaultModel string
}

// NewPipeline creates a pipeline. An empty defaultModel uses DefaultModelPath.
func NewPipeline(engine Engine, threads int, defaultModel string) *Pipeline {
	if defaultModel == "" {
		defaultModel = DefaultModelPath()
	}
	return &Pipeline{
		engine:       engine,
		tiers:        DefaultTiers(),
		threads:      threads,
		defaultModel: defaultModel,
	}
}

// WithTiers overrides the acceleration tiers tried at load time.
func (p *Pipeline) WithTiers(tiers ...Tier) *Pipeline {
	p.tiers = tiers
	return p
}

// Extract returns newline-separated "Property: value" lines found in text, or
// "" when the text is blank or yields no alloy data. Any inference failure
// aborts the run; there is no partial result.
func (p *Pipeline) Extract(ctx context.Context, text string, opts Options) (result string, err error) {
	rep := opts.Reporter
	if rep == nil {
		rep = NopReporter{}
	}

	modelPath := opts.ModelPath
	if modelPath == "" {
		modelPath = p.defaultModel
	}
	if err := CheckModelPath(modelPath); err != nil {
		return "", err
	}

	chunkCfg := chunker.Config{ChunkSize: opts.ChunkSize, Overlap: opts.Overlap}
	if err := chunkCfg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	start := time.Now()
	defer func() { rep.RunEnd(time.Since(start), err) }()

	loader := &Loader{Engine: p.engine, Tiers: p.tiers, Threads: p.threads}
	model, _, err := loader.Load(ctx, modelPath, rep)
	if err != nil {
		return "", err
	}
	defer func() { _ = model.Close() }()

	chunks, err := chunker.Split(text, chunkCfg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if len(chunks) == 0 {
		return "", nil
	}

	var results []string
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		rep.ChunkStart(i, len(chunks), len([]rune(chunk)))
		chunkStart := time.Now()
		out, err := ExtractChunk(ctx, model, chunk)
		rep.ChunkEnd(i, len(chunks), time.Since(chunkStart), out, err)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if out != "" {
			results = append(results, out)
		}
	}

	usable := UsableResults(results)
	if len(usable) == 0 {
		return "", nil
	}

	rep.MergeStart(len(usable))
	mergeStart := time.Now()
	merged, err := Merge(ctx, model, usable)
	rep.MergeEnd(time.Since(mergeStart), merged, err)
	if err != nil {
		return "", err
	}
	return merged, nil
}
