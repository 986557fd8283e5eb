package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/log"
)

// addAdvisoryFlags registers the flags shared by scan and serve.
// Defaults shown in help are the built-in ones; a config file value is
// only overridden when the flag is given explicitly.
func addAdvisoryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("provider", "P", config.DefaultProvider,
		"Advisory provider: gemini, openai or none")
	cmd.Flags().StringP("model", "M", "",
		"Advisory model (default: provider specific)")
	cmd.Flags().String("base-url", "",
		"Advisory API base URL (e.g. an OpenAI-compatible gateway)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultAdvisoryTimeout,
		"Upper bound for a single advisory call")
	cmd.Flags().Bool("retry", false,
		"Retry the advisory once after a transient failure")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy for advisory traffic (host:port)")
	cmd.Flags().StringP("dataset", "d", config.DefaultDatasetPath,
		"Training CSV for the local classifier")
	cmd.Flags().String("db-dir", "",
		"Directory of the imported sample store (default: XDG data directory)")
	cmd.Flags().BoolP("whois", "w", false,
		"Look up domain registration data (informational only)")
}

// flagChanged reports whether name was given on the command line.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config file path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// loadConfig builds a Config from defaults, the .env file, the config file
// and the command line, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", config.DefaultEnvFile, err)
	}

	// An explicitly given config file must exist; the implicit lookup is optional.
	cfg.ConfigFilePath = getConfigFlag(cmd)
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyAdvisoryFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.ResolveAPIKey()

	return cfg, nil
}

// applyAdvisoryFlags copies explicitly set flags onto cfg.
// Commands without advisory flags are left untouched.
func applyAdvisoryFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	stringFlags := []struct {
		name string
		dst  *string
	}{
		{"provider", &cfg.AdvisoryProvider},
		{"model", &cfg.AdvisoryModel},
		{"base-url", &cfg.AdvisoryBaseURL},
		{"proxy", &cfg.AdvisoryProxy},
		{"dataset", &cfg.DatasetPath},
		{"db-dir", &cfg.DBDir},
	}
	for _, f := range stringFlags {
		if !flagChanged(cmd, f.name) {
			continue
		}
		if *f.dst, err = flags.GetString(f.name); err != nil {
			return err
		}
	}

	if flagChanged(cmd, "timeout") {
		if cfg.AdvisoryTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "retry") {
		if cfg.AdvisoryRetry, err = flags.GetBool("retry"); err != nil {
			return err
		}
	}
	if flagChanged(cmd, "whois") {
		if cfg.DomainInfo, err = flags.GetBool("whois"); err != nil {
			return err
		}
	}
	return nil
}

// setupLogger creates a secure text logger based on verbosity setting.
func setupLogger(verbose bool) *slog.Logger {
	return log.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
