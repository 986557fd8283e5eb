package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/phishguard/internal/advisory"
	"github.com/nao1215/phishguard/internal/classifier"
	"github.com/nao1215/phishguard/internal/config"
	"github.com/nao1215/phishguard/internal/database"
	"github.com/nao1215/phishguard/internal/domaininfo"
	"github.com/nao1215/phishguard/internal/heuristic"
	"github.com/nao1215/phishguard/internal/pipeline"
)

// components are the collaborators a scan needs, plus their cleanup.
type components struct {
	deps       pipeline.Dependencies
	classifier *classifier.Local
	closers    []func() error
}

// Close releases every resource opened by buildComponents.
func (c *components) Close() {
	for _, closeFn := range c.closers {
		_ = closeFn() //nolint:errcheck // Best effort cleanup
	}
}

// buildComponents wires the classifier, heuristic scanner, advisory and
// optional WHOIS resolver from cfg.
//
// The classifier trains from the first usable source: the dataset CSV, the
// imported sample store, then the built-in fallback samples.
func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	c := &components{}

	scanner, err := newHeuristicScanner(cfg)
	if err != nil {
		return nil, err
	}

	sources, closers := trainingSources(cfg, logger)
	c.closers = append(c.closers, closers...)
	c.classifier = classifier.NewLocal(
		classifier.WithSources(sources...),
		classifier.WithLogger(logger),
	)

	advisor, err := advisory.New(cfg, advisory.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to set up advisory: %w", err)
	}

	c.deps = pipeline.Dependencies{
		Classifier: c.classifier,
		Heuristics: scanner,
		Advisor:    advisor,
	}
	if cfg.DomainInfo {
		c.deps.DomainInfo = domaininfo.NewResolver(
			domaininfo.WithTimeout(cfg.WhoisTimeout),
			domaininfo.WithLogger(logger),
		)
	}

	logger.Debug("components ready",
		"provider", cfg.AdvisoryProvider,
		"model", cfg.Model(),
		"advisor", advisor.Name(),
		"patterns", len(scanner.Patterns()),
		"domainInfo", cfg.DomainInfo,
	)
	return c, nil
}

// newHeuristicScanner builds the scanner from the built-in and configured patterns.
func newHeuristicScanner(cfg *config.Config) (*heuristic.Scanner, error) {
	var opts []heuristic.Option
	if len(cfg.Patterns) > 0 {
		opts = append(opts, heuristic.WithPatterns(cfg.Patterns))
	}
	if cfg.ReplaceDefaultPatterns {
		opts = append(opts, heuristic.WithoutDefaults())
	}
	scanner, err := heuristic.NewScanner(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load heuristic patterns: %w", err)
	}
	return scanner, nil
}

// trainingSources returns the classifier sources in priority order.
// A missing default dataset is not worth a warning; a missing sample store
// is silently skipped because it only exists after "dataset import".
func trainingSources(cfg *config.Config, logger *slog.Logger) ([]classifier.Source, []func() error) {
	var sources []classifier.Source
	var closers []func() error

	if cfg.DatasetPath != "" {
		_, err := os.Stat(cfg.DatasetPath)
		switch {
		case err == nil:
			sources = append(sources, classifier.NewCSVSource(cfg.DatasetPath))
		case cfg.DatasetPath != config.DefaultDatasetPath:
			logger.Warn("dataset not readable, trying other sources", "path", cfg.DatasetPath, "error", err)
		default:
			logger.Debug("default dataset not found", "path", cfg.DatasetPath)
		}
	}

	if cfg.DBDir != "" {
		opts := database.DefaultOptions()
		opts.CreateIfNotExists = false
		db, err := database.Open(cfg.DBDir, opts)
		switch {
		case err == nil:
			sources = append(sources, db)
			closers = append(closers, db.Close)
		case errors.Is(err, database.ErrDatabaseNotFound):
			logger.Debug("no imported samples", "dir", cfg.DBDir)
		default:
			logger.Warn("failed to open sample store", "dir", cfg.DBDir, "error", err)
		}
	}

	return sources, closers
}
