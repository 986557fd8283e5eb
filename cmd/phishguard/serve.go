package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/log"
	"github.com/nao1215/phishguard/internal/pipeline"
	"github.com/nao1215/phishguard/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API over HTTP",
		Long: `Serve starts an HTTP server that scans URLs on request.

Endpoints:
  GET  /            minimal form for manual checks
  POST /api/v1/scan scan {"url": "..."} and return the report as JSON
  GET  /healthz     liveness probe
  GET  /metrics     Prometheus metrics

Logs are written to stderr as JSON.

Examples:
  # Listen on the default address (127.0.0.1:8080)
  phishguard serve

  # Listen on all interfaces without the external advisory
  phishguard serve --listen 0.0.0.0:8080 --provider none

  # Query the API
  curl -s -X POST localhost:8080/api/v1/scan -d '{"url":"http://secure-bank.tk"}'`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addAdvisoryFlags(cmd)
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	configureGinMode(cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runServe(ctx, cfg, logger, cmd.OutOrStdout())
}

// configureGinMode silences gin's debug banner and route dump unless
// verbose output was requested.
func configureGinMode(verbose bool) {
	if verbose {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}

// buildServeConfig creates a Config from the config file and serve flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if flagChanged(cmd, "listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// runServe trains the classifier up front and serves until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	// Training happens once; doing it now keeps the first request fast.
	info := comps.classifier.Warm(ctx)
	logger.Info("local classifier ready",
		"source", info.Source,
		"samples", info.Samples,
		"ready", info.Ready,
	)

	p := pipeline.DefaultPipeline(comps.deps, pipeline.WithLogger(logger))
	srv := server.New(cfg.ListenAddress, p, server.WithLogger(logger))

	fmt.Fprintf(stdout, "PhishGuard listening on http://%s (model: %s, advisory: %s)\n",
		cfg.ListenAddress, info.Source, comps.deps.Advisor.Name())

	return srv.Run(ctx)
}
