package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
	"github.com/kantharos-net/LinkedinAutoPost/internal/stream"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live job log stream",
	Long: `Follow the live job log stream.

Every event is mirrored into the local job history and echoed to the
terminal. The connection is re-established automatically when it drops;
press Ctrl-C to stop. Requires enableLiveLogs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobFilter, _ := cmd.Flags().GetString("job")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.settings.Settings().EnableLiveLogs {
			printWarning("Live logs are disabled; enable with: lap settings set enableLiveLogs true")
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		bridge := stream.New(
			func(dialCtx context.Context) (stream.EventSource, error) {
				return a.client.OpenLogStream(dialCtx)
			},
			a.jobs,
			func() bool { return a.settings.Settings().EnableLiveLogs },
		)
		bridge.OnEvent = func(e jobs.LogEntry) {
			if jobFilter != "" && e.JobID != jobFilter {
				return
			}
			printLogEntry(e)
		}

		printStep("Watching job logs (Ctrl-C to stop)...")
		if err := bridge.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().String("job", "", "only show events for this job id")
}
