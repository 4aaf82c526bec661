package extract

import (
	"context"
	"strings"
)

var sentinelLower = strings.ToLower(Sentinel)

// UsableResults trims chunk results and drops blank entries and entries
// carrying the no-alloy sentinel, in any letter case.
func UsableResults(results []string) []string {
	var out []string
	for _, r := range results {
		r = strings.TrimSpace(r)
		if r == "" || strings.Contains(strings.ToLower(r), sentinelLower) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Merge consolidates chunk results into one deduplicated property list. When
// no result is usable it returns "" without calling the model.
func Merge(ctx context.Context, m Model, results []string) (string, error) {
	usable := UsableResults(results)
	if len(usable) == 0 {
		return "", nil
	}
	out, err := m.Generate(ctx, BuildMergePrompt(usable), MergeParams)
	if err != nil {
		return "", &InferenceError{Op: "merge", Err: err}
	}
	return strings.TrimSpace(out), nil
}
