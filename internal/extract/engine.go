package extract

import "context"

// Engine loads a local model at a given acceleration tier.
type Engine interface {
	// Load returns a handle bound to exactly one tier. Failure to bring the
	// model up on that tier must wrap ErrBackend.
	Load(ctx context.Context, p LoadParams) (Model, error)
}

// Model is a loaded inference engine owned by a single pipeline run.
type Model interface {
	Generate(ctx context.Context, prompt string, p GenerateParams) (string, error)
	Close() error
}

// LoadParams describes one attempt to bring up a model.
type LoadParams struct {
	Path        string
	Tier        Tier
	ContextSize int
	BatchSize   int
	Threads     int
	UseMMap     bool
	UseMLock    bool
}

// GenerateParams controls decoding for a single generation call.
type GenerateParams struct {
	Temperature   float64
	TopP          float64
	TopK          int
	MaxTokens     int
	RepeatPenalty float64
	Stop          []string
}

// Tier is a hardware-offload configuration.
type Tier struct {
	Name      string
	GPULayers int
}

// Acceleration tiers, most to least aggressive. The last entry is the
// CPU-only floor.
var (
	TierFull    = Tier{Name: "full", GPULayers: 32}
	TierPartial = Tier{Name: "partial", GPULayers: 16}
	TierCPU     = Tier{Name: "cpu", GPULayers: 0}
)

// DefaultTiers is the order the loader tries.
func DefaultTiers() []Tier {
	return []Tier{TierFull, TierPartial, TierCPU}
}

const (
	ContextSize = 4096
	BatchSize   = 1024
)
