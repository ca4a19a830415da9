package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kantharos-net/LinkedinAutoPost/internal/mockapi"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a local mock publishing backend",
	Long: `Run a local mock publishing backend.

It answers the content-generation and publish endpoints with canned
responses and emits synthetic job log events on the live stream, so the
console can be exercised end to end without credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		token, _ := cmd.Flags().GetString("token")
		interval, _ := cmd.Flags().GetDuration("emit-interval")

		var opts []mockapi.Option
		if token != "" {
			opts = append(opts, mockapi.WithToken(token))
		}
		server := mockapi.NewServer(opts...)

		addr := fmt.Sprintf("127.0.0.1:%d", port)
		srv := &http.Server{
			Addr:    addr,
			Handler: server.Handler(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			printStep("Mock backend listening on http://%s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if interval > 0 {
			g.Go(func() error {
				emitSyntheticLogs(gCtx, server, interval)
				return nil
			})
		}

		err := g.Wait()
		printStep("Mock backend stopped")
		return err
	},
}

// emitSyntheticLogs broadcasts a rolling stream of fake job activity so a
// connected watcher always has something to show.
func emitSyntheticLogs(ctx context.Context, server *mockapi.Server, interval time.Duration) {
	messages := []struct {
		level string
		text  string
	}{
		{"info", "Rendering post preview"},
		{"info", "Post queued for delivery"},
		{"warn", "Upstream responding slowly"},
		{"info", "Delivery confirmed"},
		{"error", "Rate limit hit, backing off"},
	}

	jobIDs := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if server.Subscribers() == 0 {
				continue
			}
			m := messages[rand.Intn(len(messages))]
			server.Emit(jobIDs[rand.Intn(len(jobIDs))], m.level, m.text)
		}
	}
}

func init() {
	mockCmd.Flags().Int("port", 8080, "port to listen on")
	mockCmd.Flags().String("token", "", "require this bearer token on API endpoints")
	mockCmd.Flags().Duration("emit-interval", 2*time.Second, "synthetic log emit interval (0 disables)")
}
