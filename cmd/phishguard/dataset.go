package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/phishguard/internal/classifier"
	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/database"
)

// NewDatasetCmd creates the dataset command and its subcommands.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage the local classifier's training samples",
		Long: `Dataset manages the SQLite sample store the local classifier trains from
when no dataset CSV is available.

The store lives in the XDG data directory (~/.local/share/phishguard)
unless --db-dir or dataset.db_dir in the config file says otherwise.
Only training samples are stored; verdicts never are.`,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the sample store (default: XDG data directory)")

	cmd.AddCommand(newDatasetImportCmd())
	cmd.AddCommand(newDatasetStatsCmd())

	return cmd
}

func newDatasetImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <csv>...",
		Short: "Import labeled URLs from CSV files",
		Long: `Import reads CSV files with "url" and "label" columns and stores the samples.
Labels "bad"/"phishing" and "good"/"safe" are accepted; rows with other
labels are skipped. Importing a URL again replaces its label.

Examples:
  phishguard dataset import phishing_site_urls.csv
  phishguard dataset import --source kaggle-2024 a.csv b.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDatasetImportCmd,
	}

	cmd.Flags().String("source", "",
		"Name recorded for the import (default: file name)")

	return cmd
}

func newDatasetStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sample counts and import history",
		Args:  cobra.NoArgs,
		RunE:  runDatasetStatsCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

// datasetDBDir resolves the store directory from --db-dir and the config file.
func datasetDBDir(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.DBDir == "" {
		return config.XDGDataDir(), nil
	}
	return cfg.DBDir, nil
}

// runDatasetImportCmd executes "dataset import".
func runDatasetImportCmd(cmd *cobra.Command, args []string) error {
	dir, err := datasetDBDir(cmd)
	if err != nil {
		return err
	}
	sourceName, err := cmd.Flags().GetString("source")
	if err != nil {
		return err
	}

	logger := setupLogger(getVerboseFlag(cmd))
	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	for _, path := range args {
		samples, err := classifier.NewCSVSource(path).Samples(ctx)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := sourceName
		if name == "" {
			name = filepath.Base(path)
		}
		n, err := db.ImportSamples(ctx, samples, name)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		logger.Info("samples imported", "path", path, "count", n)
		fmt.Fprintf(out, "Imported %d samples from %s\n", n, path)
	}
	fmt.Fprintf(out, "Sample store: %s\n", db.Path())

	return nil
}

// runDatasetStatsCmd executes "dataset stats".
func runDatasetStatsCmd(cmd *cobra.Command, _ []string) error {
	dir, err := datasetDBDir(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dir, opts)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}

	fmt.Fprintf(out, "Sample store: %s\n", db.Path())
	fmt.Fprintf(out, "  Total:    %d\n", stats.Total)
	fmt.Fprintf(out, "  Phishing: %d\n", stats.Phishing)
	fmt.Fprintf(out, "  Safe:     %d\n", stats.Safe)
	if len(stats.Imports) > 0 {
		fmt.Fprintln(out, "\nImports (newest first):")
		for _, rec := range stats.Imports {
			fmt.Fprintf(out, "  %s  %-24s %6d  %s\n",
				rec.ImportedAt.Local().Format(time.DateTime), rec.Source, rec.Count, rec.Fingerprint)
		}
	}
	return nil
}
