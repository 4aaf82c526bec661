package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/patentalloy/internal/pipeline"
)

// Runner runs a job to completion.
type Runner interface {
	Run(ctx context.Context, job *pipeline.Job)
}

// Processor returns a Handler that runs each file through runner and writes
// the alloy properties to outbox. A document without alloy information
// produces an empty result file.
func Processor(runner Runner, outbox string) Handler {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		job := pipeline.NewJob(filepath.Base(path), "", "", data)
		runner.Run(ctx, job)
		if err := job.Err(); err != nil {
			return fmt.Errorf("job %s: %w", job.ID, err)
		}

		snap := job.Snapshot()
		out := OutputPath(outbox, path)
		body := snap.AlloyInfo
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		return nil
	}
}

// OutputPath is the result file for an inbox document.
func OutputPath(outbox, path string) string {
	base := filepath.Base(path)
	return filepath.Join(outbox, strings.TrimSuffix(base, filepath.Ext(base))+ResultSuffix)
}
