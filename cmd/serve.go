package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"testprobe/internal/config"
	"testprobe/internal/httpapi"
	"testprobe/internal/objectstore"
	"testprobe/internal/queuecontroller"
	"testprobe/internal/vault"
	"testprobe/pkg/logging"
)

// serveAddr is the HTTP front door's listen address.
var serveAddr string

// serveShutdownTimeout bounds how long serve waits for in-flight HTTP
// requests to drain after a shutdown signal. Lifecycle controllers are
// cancelled by qc.Shutdown, which does not wait for them.
const serveShutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the queue controller's HTTP front door",
	Long: `Starts testprobe's queue controller and exposes InitializeTest, StartTest,
Status, QueueStatus and Cancel over HTTP (spec.md §4.2).

Each accepted test spawns its own lifecycle controller, which stages its
Gherkin features and topic directive from object storage, resolves
credentials through the configured vault provider, starts Kafka producer
and consumer streams, and runs the scenarios to completion.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "HTTP listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	provider, err := objectstore.New(ctx, cfg.Storage.Provider)
	if err != nil {
		return fmt.Errorf("constructing storage provider: %w", err)
	}

	pipeline, err := vault.NewPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("constructing vault pipeline: %w", err)
	}

	reg := prometheus.NewRegistry()
	qc := queuecontroller.New(ctx, cfg, provider, pipeline.FetchSecurity, reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", httpapi.NewRouter(qc))

	srv := &http.Server{Addr: serveAddr, Handler: mux}

	serveErr := make(chan error, 1)
	go func() {
		logging.Info("Serve", "listening on %s", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logging.Info("Serve", "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()

	qc.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
