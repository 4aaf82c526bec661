package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/parser"
	"github.com/dgallion1/patentalloy/internal/pathstore"
)

// Extractor runs one map-reduce extraction over document text.
type Extractor interface {
	Extract(ctx context.Context, text string, opts extract.Options) (string, error)
}

// Publisher stores results and finds earlier results for identical text.
type Publisher interface {
	PublishResult(ctx context.Context, r pathstore.Result) error
	LookupByHash(ctx context.Context, contentHash string) (*pathstore.Result, error)
}

// Worker processes a single document job.
type Worker struct {
	extractor Extractor
	publisher Publisher
	reporters []extract.Reporter
	log       *slog.Logger
	parseOpts parser.Options
	opts      extract.Options
}

// NewWorker builds a worker. publisher may be nil to disable dedup and
// publishing. reporters observe every run in addition to the per-job log and
// progress tracking.
func NewWorker(ex Extractor, publisher Publisher, log *slog.Logger, parseOpts parser.Options, opts extract.Options, reporters ...extract.Reporter) *Worker {
	return &Worker{
		extractor: ex,
		publisher: publisher,
		reporters: reporters,
		log:       log,
		parseOpts: parseOpts,
		opts:      opts,
	}
}

// Process parses the job's document, extracts alloy properties and records
// the outcome on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	tree, err := parser.ParseBytes(job.FileData(), job.Filename, w.parseOpts)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.Fail("parsing", err)
		return
	}
	text := tree.Text()
	hash := ContentHashHex([]byte(text))
	job.SetText(text)
	job.SetDocument(tree.Title, tree.PageCount, hash)
	log.Info("parsed document", "pages", tree.PageCount, "chars", len(text))

	// Phase 1.5: Dedup check
	if w.publisher != nil && text != "" {
		prev, err := w.publisher.LookupByHash(ctx, hash)
		switch {
		case err != nil:
			log.Warn("dedup check failed, proceeding", "error", err)
		case prev != nil:
			log.Info("identical document already extracted", "existing_doc_id", prev.DocID)
			job.Finish(StatusDuplicate, prev.AlloyInfo)
			return
		}
	}

	// Phase 2: Load, extract, merge
	opts := w.opts
	reps := append([]extract.Reporter{extract.LogReporter{Log: log}, &progressReporter{job: job}}, w.reporters...)
	opts.Reporter = extract.MultiReporter(reps)

	result, err := w.extractor.Extract(ctx, text, opts)
	if err != nil {
		log.Error("extraction failed", "error", err)
		phase := string(job.Snapshot().Status)
		if phase == string(StatusParsing) {
			phase = "extracting"
		}
		job.Fail(phase, err)
		return
	}
	if result == "" {
		log.Info("no alloy properties found")
		job.Finish(StatusEmpty, "")
		return
	}

	// Phase 3: Publish
	if w.publisher != nil {
		snap := job.Snapshot()
		err := w.publisher.PublishResult(ctx, pathstore.Result{
			DocID:       job.DocID,
			Filename:    job.Filename,
			Title:       snap.Title,
			Pages:       snap.Pages,
			ContentHash: hash,
			AlloyInfo:   result,
			ExtractedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Error("publish failed", "error", err)
			job.AddError("publish: " + err.Error())
		}
	}

	job.Finish(StatusCompleted, result)
	log.Info("extraction complete", "chars", len(result))
}

// progressReporter mirrors run events onto a job's status and progress.
type progressReporter struct {
	extract.NopReporter
	job *Job
}

func (p *progressReporter) LoadStart(string) {
	p.job.SetStatus(StatusLoading, "loading model")
}

func (p *progressReporter) LoadEnd(tier extract.Tier, _ time.Duration, err error) {
	if err == nil {
		p.job.SetTier(tier.Name)
	}
}

func (p *progressReporter) ChunkStart(index, total, _ int) {
	if index == 0 {
		p.job.SetTotalChunks(total)
		p.job.SetStatus(StatusExtracting, "extracting")
	}
}

func (p *progressReporter) ChunkEnd(_, _ int, _ time.Duration, output string, err error) {
	if err != nil {
		return
	}
	p.job.ChunkDone(len(extract.UsableResults([]string{output})) > 0)
}

func (p *progressReporter) MergeStart(int) {
	p.job.SetStatus(StatusMerging, "merging")
}
