package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/c360studio/speclint/server"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve validation over HTTP and NATS",
		Long: `Run the validation service: an HTTP API (POST /api/validate/{kind},
POST /api/trace, POST /api/ears, GET /health, GET /metrics) and the
same operations over NATS request/reply. Documents travel in the
request payload; the service never touches the filesystem.

Connects to the configured NATS server, or starts an embedded one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			return runServe(cmd.Context(), opts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default: configured server.addr)")

	return cmd
}

func runServe(ctx context.Context, opts *globalOptions, addr string) error {
	log := slog.Default()

	// NATS: external when configured, embedded otherwise.
	var clientURL string
	if opts.cfg.NATS.URL != "" && !opts.cfg.NATS.Embedded {
		clientURL = opts.cfg.NATS.URL
		log.Info("Connecting to NATS", slog.String("url", clientURL))
	} else {
		ns, err := server.StartEmbeddedNATS()
		if err != nil {
			return err
		}
		defer func() {
			ns.Shutdown()
			ns.WaitForShutdown()
		}()
		clientURL = ns.ClientURL()
		log.Info("Embedded NATS server started", slog.String("url", clientURL))
	}

	nc, err := nats.Connect(clientURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	handler := server.NewNATSHandler(nc, log)
	if err := handler.Start(); err != nil {
		return fmt.Errorf("start NATS handler: %w", err)
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewServer(log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-signalCtx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}

	// Stop subscriptions before draining; a drained connection rejects
	// unsubscribes.
	handler.Stop()
	if err := nc.Drain(); err != nil {
		log.Warn("NATS drain failed", slog.String("error", err.Error()))
	}

	log.Info("Shutdown complete")
	return nil
}
