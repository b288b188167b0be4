package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/plancost/internal/certs"
	"github.com/Veraticus/plancost/internal/config"
	"github.com/Veraticus/plancost/internal/httpapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the analysis pipeline and stored budgets over HTTP.

Analyses run synchronously within the request. Prometheus metrics are
exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default: server.address or :8080)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed certificate")
	_ = viper.BindPFlag("server.address", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, table, err := newEngine(ctx, reg, false)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	handler, err := httpapi.NewRouter(httpapi.Deps{
		Analyzer: engine,
		Store:    store,
		Pricing:  table,
		Gatherer: reg,
	})
	if err != nil {
		return err
	}

	settings := config.LoadServerConfig()
	srv := &http.Server{
		Addr:              settings.Address,
		Handler:           handler,
		ReadTimeout:       settings.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      settings.WriteTimeout,
	}
	if settings.TLS {
		tlsConfig, err := certs.NewStore(settings.TLSDir, settings.TLSHosts...).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		srv.TLSConfig = tlsConfig
	}

	return httpapi.Serve(ctx, srv, settings.ShutdownTimeout)
}
