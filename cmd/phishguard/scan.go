package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/model"
	"github.com/nao1215/phishguard/internal/pipeline"
	"github.com/nao1215/phishguard/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Decide whether URLs are phishing",
		Long: `Scan runs every URL through the local classifier, the heuristic patterns
and the external advisory, and prints the verdict together with the signal
that decided it.

Precedence, highest first:
  1. the advisory reply mentions "phishing"
  2. a heuristic pattern matched
  3. the local classifier says Phishing
  4. the advisory reply mentions "safe"
  5. otherwise the URL is Safe

Examples:
  # Scan a single URL
  phishguard scan https://paypal-login-verify.tk

  # Scan URLs listed in a file, one per line
  phishguard scan --list urls.txt

  # Scan without the external advisory
  phishguard scan --provider none https://example.com

  # Use an OpenAI-compatible local gateway
  phishguard scan --provider openai --base-url http://localhost:11434/v1 --model llama3 https://example.com

  # Write a Markdown report
  phishguard scan --markdown -o report.md --list urls.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addAdvisoryFlags(cmd)

	// Input flags
	cmd.Flags().StringP("list", "l", "",
		"File with one URL per line (\"-\" reads standard input)")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateScan(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildScanConfig creates a Config from the config file and scan flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = cmd.Flags().GetBool("no-color"); err != nil {
		return nil, err
	}

	cfg.Targets = append(cfg.Targets, args...)

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		urls, err := readTargetList(listPath, cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, urls...)
	}

	return cfg, nil
}

// readTargetList reads one URL per line. Blank lines and lines starting
// with "#" are skipped.
func readTargetList(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open URL list: %w", err)
		}
		defer f.Close()
		r = f
	}

	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}

// runScan executes the scan.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"provider", cfg.AdvisoryProvider,
		"batchSize", cfg.BatchSize,
	)

	comps, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	newPipeline := func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(comps.deps, pipeline.WithLogger(logger))
	}

	if len(cfg.Targets) == 1 {
		scanReport := newPipeline().Scan(ctx, cfg.Targets[0])
		if err := outputReport(cfg, stdout, func(w report.Writer) error {
			_, err := w.Write(scanReport)
			return err
		}); err != nil {
			return err
		}
		return scanError(scanReport)
	}

	reports, batchErr := runBatchScan(ctx, cfg, newPipeline, logger, stderr)
	if err := outputReport(cfg, stdout, func(w report.Writer) error {
		_, err := w.WriteBatch(reports)
		return err
	}); err != nil {
		return err
	}
	if batchErr != nil {
		return batchErr
	}
	return scanError(reports...)
}

// scanError returns the first error recorded in reports. The report is
// written before the error is returned, so an interrupted scan still shows
// what was collected but does not exit successfully.
func scanError(reports ...*model.ScanReport) error {
	for _, r := range reports {
		if r != nil && r.Error != nil {
			return fmt.Errorf("scan of %s did not complete: %w", r.URL, r.Error)
		}
	}
	return nil
}

// runBatchScan scans multiple targets concurrently using BatchProcessor.
// Progress goes to stderr so that stdout carries only the report.
func runBatchScan(
	ctx context.Context,
	cfg *config.Config,
	newPipeline func() *pipeline.Pipeline,
	logger *slog.Logger,
	stderr io.Writer,
) ([]*model.ScanReport, error) {
	fmt.Fprintf(stderr, "Scanning %d URLs (concurrency: %d)...\n", len(cfg.Targets), cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		newPipeline,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	reports := make([]*model.ScanReport, len(cfg.Targets))
	var mu sync.Mutex
	done := 0
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.ScanReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		reports[index] = r
		done++
		fmt.Fprintf(stderr, "[%d/%d] %s: %s\n", done, len(cfg.Targets), r.URL, r.Verdict.Label)
	})

	fmt.Fprintf(stderr, "Batch scan completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))
	return reports, err
}

// outputReport opens the report destination, picks the writer for the
// requested format and hands it to write.
func outputReport(cfg *config.Config, stdout io.Writer, write func(report.Writer) error) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports are owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if err := write(newReportWriter(cfg, output)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newReportWriter returns the writer for the configured format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		useColor := !cfg.NoColor && cfg.ReportFile == "" && !color.NoColor
		return report.NewSimpleWriter(output,
			report.WithColor(useColor),
			report.WithVerbose(cfg.Verbose),
		)
	}
}
