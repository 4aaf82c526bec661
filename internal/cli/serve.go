package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/patentalloy/internal/api"
	"github.com/dgallion1/patentalloy/internal/extract"
	"github.com/dgallion1/patentalloy/internal/metrics"
	"github.com/dgallion1/patentalloy/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and extraction workers",
		Long: "Serve POST /patent and the async /api/ingest endpoints. When watch.inbox is set\n" +
			"the inbox watcher runs alongside the server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, log := a.cfg, a.log

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats := extract.NewLLMStats(time.Hour)
	reg := metrics.New()
	ps := a.newPathstore()
	if ps != nil {
		defer ps.Close()
	}

	orch := a.newOrchestrator(a.newPipeline(), ps, reg, reg, extract.StatsReporter{Stats: stats})
	orch.Start(ctx)
	defer orch.Stop()

	opts := []api.Option{api.WithStats(stats), api.WithMetrics(reg.Handler())}
	if ps != nil {
		opts = append(opts, api.WithResults(ps))
	}
	modelName := cfg.Model.Path
	if modelName == "" {
		modelName = extract.DefaultModelFile
	}
	srv := api.NewServer(orch, log, api.Config{
		APIKey:         cfg.Server.APIKey,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ModelName:      filepath.Base(modelName),
	}, opts...)

	if cfg.Watch.Inbox != "" {
		w, err := a.newWatcher(orch)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() {
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("inbox watcher stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		// POST /patent holds the connection for a whole extraction run.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting patentalloy", "port", cfg.Server.Port, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (a *app) newWatcher(runner watcher.Runner) (*watcher.Watcher, error) {
	outbox := a.cfg.Watch.Outbox
	if outbox == "" {
		outbox = a.cfg.Watch.Inbox
	}
	return watcher.New(a.cfg.Watch.Inbox, watcher.Processor(runner, outbox), a.log, a.cfg.Watch.Concurrency)
}
