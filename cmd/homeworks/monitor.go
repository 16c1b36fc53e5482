package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pior/homeworks"
	"github.com/pior/homeworks/internal/httpapi"
	"github.com/pior/homeworks/internal/promexporter"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print controller events as they arrive",
	Long: `Connects to the controller, subscribes to keypad, scene, dimmer and LED
reports and prints one line per event. The connection is re-established
whenever it is lost.

With --http, /status, /metrics and POST /dimmers/{address}/level are served.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("http") {
			cfg.HTTP.Listen, _ = cmd.Flags().GetString("http")
		}

		clientConfig := cfg.ClientConfig(logger)

		// Assigned before Run, the breaker only changes state while dialing
		var metrics *promexporter.ClientMetrics
		if clientConfig.CircuitBreakerSettings != nil {
			clientConfig.CircuitBreakerSettings.OnStateChange = func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "address", name, "from", from.String(), "to", to.String())
				metrics.RecordCircuitBreakerTransition(name, from, to)
			}
		}

		client, err := homeworks.NewClient(clientConfig)
		if err != nil {
			return err
		}
		defer client.Close()

		exporter := promexporter.NewExporter(client)
		metrics = exporter.ClientMetrics()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runErr := make(chan error, 1)
		go func() {
			runErr <- client.Run(ctx)
		}()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		var srv *http.Server
		if cfg.HTTP.Listen != "" {
			srv = &http.Server{
				Addr:              cfg.HTTP.Listen,
				Handler:           httpapi.NewHandler(client, exporter.Handler(), logger),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Info("serving http", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErrors <- err
					stop()
				}
			}()
		}

		logger.Info("monitoring", "address", client.Endpoint().String())

		out := cmd.OutOrStdout()
		for ev := range client.Events(ctx) {
			metrics.RecordEvent(ev)
			fmt.Fprintln(out, ev.String())
		}

		if srv != nil {
			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				srv.Close()
			}
		}

		client.Close()
		if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, homeworks.ErrClientClosed) {
			return err
		}

		select {
		case err := <-serverErrors:
			return fmt.Errorf("http server: %w", err)
		default:
		}

		logger.Info("stopped", "stats", fmt.Sprintf("%+v", client.Stats()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().String("http", "", "Listen address for the status and metrics API, e.g. :9100")
}
