package extract

import (
	"errors"
	"fmt"
)

// ErrBackend marks an engine failure to initialize a model at a given
// acceleration tier. Engine implementations wrap load failures with it; it is
// the only error class the loader treats as a signal to try the next tier.
var ErrBackend = errors.New("inference backend error")

// ErrInvalidOptions is returned for chunk settings that cannot be honored.
var ErrInvalidOptions = errors.New("invalid extraction options")

// ConfigError reports a model path that does not reference a file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("model not found at %q: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FallbackError records one acceleration tier that failed to initialize.
type FallbackError struct {
	Tier Tier
	Err  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("tier %s failed: %v", e.Tier.Name, e.Err)
}

func (e *FallbackError) Unwrap() error { return e.Err }

// InferenceError is fatal to a run: a generation call failed, or the final
// acceleration tier could not be loaded.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
