package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when the window size and overlap cannot
// produce a terminating split.
var ErrInvalidConfig = errors.New("invalid chunk config")

// Config controls chunking behavior. Sizes are counted in characters
// (Unicode code points), not bytes.
type Config struct {
	ChunkSize int // Maximum window length.
	Overlap   int // Characters shared between consecutive windows.
}

// DefaultConfig returns the window settings used by the extraction pipeline.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 2000,
		Overlap:   0,
	}
}

// Validate rejects configurations where the window start would not advance.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.Overlap)
	}
	return nil
}

// Split breaks text into ordered fixed-size windows.
//
// Blank input yields no windows. Text that fits in one window is returned
// whole. Otherwise windows of ChunkSize characters are taken starting at 0 and
// advancing by ChunkSize-Overlap; windows made only of whitespace are dropped
// but their span is still consumed.
func Split(text string, cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= cfg.ChunkSize {
		return []string{text}, nil
	}

	step := cfg.ChunkSize - cfg.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+cfg.ChunkSize, len(runes))
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		if end >= len(runes) {
			break
		}
	}
	return chunks, nil
}
