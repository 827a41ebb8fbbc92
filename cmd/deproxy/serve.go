package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go_deproxy/internal/domain/services"
	configs "go_deproxy/internal/infra/config"
	"go_deproxy/utils"

	"github.com/spf13/cobra"
)

var (
	serveListen          []string
	serveShutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bind the configured endpoints and answer with the default handler until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, addr := range serveListen {
			cfg.Endpoints = append(cfg.Endpoints, configs.EndpointConfig{Address: addr})
		}
		if len(cfg.Endpoints) == 0 {
			return errors.New("no endpoints configured; use --listen or the endpoints section")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		d, err := initializeDeproxy(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, d)
	},
}

func init() {
	serveCmd.Flags().StringSliceVarP(&serveListen, "listen", "l", nil, "Additional endpoint address (repeatable)")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight connections")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, d *services.Deproxy) error {
	log := utils.GetLogger()

	for _, ep := range cfg.Endpoints {
		endpoint, err := d.AddNamedEndpoint(ep.Name, ep.Address)
		if err != nil {
			shutdown(d)
			return err
		}
		fmt.Printf("%s listening on %s\n", endpoint.Name(), endpoint.URL())
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.Collector().Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics listener failed")
			}
		}()
		log.WithField("address", cfg.Metrics.Address).Info("metrics listening")
	}

	<-ctx.Done()
	log.Info("shutting down")

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return shutdown(d)
}

func shutdown(d *services.Deproxy) error {
	ctx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	return d.Shutdown(ctx)
}
