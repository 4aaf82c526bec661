package extract

import (
	"context"
	"strings"
)

// ExtractChunk runs one extraction call over a chunk and returns the trimmed
// model output. Blank chunks are skipped without calling the model.
func ExtractChunk(ctx context.Context, m Model, chunk string) (string, error) {
	if strings.TrimSpace(chunk) == "" {
		return "", nil
	}
	out, err := m.Generate(ctx, BuildChunkPrompt(chunk), ChunkParams)
	if err != nil {
		return "", &InferenceError{Op: "extract chunk", Err: err}
	}
	return strings.TrimSpace(out), nil
}
