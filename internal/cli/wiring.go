package cli

import (
	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/llama"
	"github.com/dgallion1/patentalloy/internal/parser"
	"github.com/dgallion1/patentalloy/internal/pathstore"
	"github.com/dgallion1/patentalloy/internal/pipeline"
)

func (a *app) newPipeline() *extract.Pipeline {
	engine := llama.NewEngine(a.cfg.Model.ServerBin, a.cfg.Model.LoadTimeout, a.log)
	return extract.NewPipeline(engine, a.cfg.Model.Threads, a.cfg.Model.Path)
}

func (a *app) parseOptions() parser.Options {
	return parser.Options{FallbackPdftotext: a.cfg.PDF.FallbackPdftotext}
}

func (a *app) extractOptions() extract.Options {
	return extract.Options{ChunkSize: a.cfg.Extract.ChunkSize, Overlap: a.cfg.Extract.Overlap}
}

// newPathstore returns nil when publishing is disabled.
func (a *app) newPathstore() *pathstore.Client {
	if a.cfg.Pathstore.URL == "" {
		return nil
	}
	return pathstore.NewClient(a.cfg.Pathstore.URL, a.cfg.Pathstore.APIKey)
}

// newOrchestrator wires a worker around ex. ps may be nil.
func (a *app) newOrchestrator(ex pipeline.Extractor, ps *pathstore.Client, obs pipeline.JobObserver, reporters ...extract.Reporter) *pipeline.Orchestrator {
	var pub pipeline.Publisher
	if ps != nil {
		pub = ps
	}
	w := pipeline.NewWorker(ex, pub, a.log, a.parseOptions(), a.extractOptions(), reporters...)
	return pipeline.NewOrchestrator(pipeline.Options{
		Workers:  a.cfg.Pipeline.Workers,
		MaxQueue: a.cfg.Pipeline.MaxQueue,
		JobTTL:   a.cfg.Pipeline.JobTTL,
	}, w, obs, a.log)
}
