package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var inbox, outbox string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Extract alloy properties from documents dropped into an inbox directory",
		Long: "Each supported document created in the inbox is processed and its properties\n" +
			"written to <outbox>/<name>.alloys.txt. The outbox defaults to the inbox.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inbox != "" {
				a.cfg.Watch.Inbox = inbox
			}
			if outbox != "" {
				a.cfg.Watch.Outbox = outbox
			}
			if a.cfg.Watch.Inbox == "" {
				return errors.New("watch: inbox is required (--inbox or watch.inbox)")
			}
			if a.cfg.Watch.Outbox != "" {
				if err := os.MkdirAll(a.cfg.Watch.Outbox, 0o755); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ps := a.newPathstore()
			if ps != nil {
				defer ps.Close()
			}
			orch := a.newOrchestrator(a.newPipeline(), ps, nil)
			orch.Start(ctx)
			defer orch.Stop()

			w, err := a.newWatcher(orch)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inbox, "inbox", "", "directory to watch (overrides watch.inbox)")
	cmd.Flags().StringVar(&outbox, "outbox", "", "directory for result files (overrides watch.outbox)")
	return cmd
}
