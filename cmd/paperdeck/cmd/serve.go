package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paperdeck/paperdeck/internal/api"
	"github.com/paperdeck/paperdeck/internal/consume"
	"github.com/paperdeck/paperdeck/internal/events"
	"github.com/paperdeck/paperdeck/internal/store"
	"github.com/paperdeck/paperdeck/internal/views"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run paperdeck as a daemon with scheduled consumption",
	Long: `Run paperdeck as a long-running daemon.

The daemon runs in the foreground and performs:
  - HTTP API server on the configured port (default: 8484)
  - Scheduled scans of the consume directory

Configure the consume schedule in config.toml:

  [consume]
  dir = "~/.paperdeck/consume"
  schedule = "*/5 * * * *"   # every 5 minutes (cron format)

Cron format: minute hour day-of-month month day-of-week
  Examples:
    */5 * * * *  = every 5 minutes
    0 2 * * *    = 2:00 AM daily
    0 8,18 * * * = 8 AM and 6 PM daily

Use Ctrl+C to stop the daemon gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := store.Open(cfg.Data.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()

	if err := s.InitSchema(); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	consumed := events.NewSignal()
	consumer := consume.New(cfg.Consume.Dir, s, consumed, logger)
	if err := consumer.Start(cfg.Consume.Schedule); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	viewSvc := views.NewService(s, logger)
	apiServer := api.NewServer(cfg, s, viewSvc, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		fmt.Println("\nShutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	fmt.Printf("paperdeck daemon started\n")
	fmt.Printf("  API server: http://%s\n", net.JoinHostPort(cfg.Server.BindAddr, strconv.Itoa(cfg.Server.APIPort)))
	fmt.Printf("  Consume directory: %s\n", cfg.Consume.Dir)
	if cfg.Consume.Schedule != "" {
		fmt.Printf("  Consume schedule: %s\n", cfg.Consume.Schedule)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	err = g.Wait()
	if err != nil {
		logger.Error("API server error", "error", err)
		fmt.Printf("API server error: %v\n", err)
	}

	fmt.Println("Waiting for running scans to complete...")
	select {
	case <-consumer.Stop().Done():
		fmt.Println("Shutdown complete.")
	case <-time.After(30 * time.Second):
		fmt.Println("Shutdown timed out after 30 seconds.")
	}

	return err
}
