package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Loader brings up a model by trying acceleration tiers in order.
type Loader struct {
	Engine  Engine
	Tiers   []Tier
	Threads int
}

// CheckModelPath returns a *ConfigError unless path names an existing file.
func CheckModelPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &ConfigError{Path: path, Err: errors.New("is a directory")}
	}
	return nil
}

// Load returns a model bound to the first tier that initializes. Tier
// failures wrapping ErrBackend advance to the next tier; any other error is
// returned as is. Failure of the last tier is an *InferenceError.
func (l *Loader) Load(ctx context.Context, path string, rep Reporter) (Model, Tier, error) {
	if rep == nil {
		rep = NopReporter{}
	}
	if err := CheckModelPath(path); err != nil {
		return nil, Tier{}, err
	}
	tiers := l.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}

	start := time.Now()
	rep.LoadStart(path)
	for i, tier := range tiers {
		m, err := l.Engine.Load(ctx, LoadParams{
			Path:        path,
			Tier:        tier,
			ContextSize: ContextSize,
			BatchSize:   BatchSize,
			Threads:     l.Threads,
			UseMMap:     true,
			UseMLock:    false,
		})
		if err == nil {
			rep.LoadEnd(tier, time.Since(start), nil)
			return m, tier, nil
		}
		if !errors.Is(err, ErrBackend) {
			rep.LoadEnd(tier, time.Since(start), err)
			return nil, Tier{}, fmt.Errorf("load model: %w", err)
		}
		fallback := &FallbackError{Tier: tier, Err: err}
		if i == len(tiers)-1 {
			ierr := &InferenceError{Op: "load", Err: fallback}
			rep.LoadEnd(tier, time.Since(start), ierr)
			return nil, Tier{}, ierr
		}
		rep.TierFailed(tier, fallback)
	}
	// Unreachable: tiers is non-empty.
	return nil, Tier{}, &InferenceError{Op: "load", Err: errors.New("no acceleration tiers")}
}
