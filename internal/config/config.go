package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/phishguard/internal/heuristic"
)

// Advisory providers.
const (
	// ProviderGemini queries the Google Gemini REST API.
	ProviderGemini = "gemini"

	// ProviderOpenAI queries an OpenAI-compatible chat completion API.
	ProviderOpenAI = "openai"

	// ProviderNone disables the external advisory.
	ProviderNone = "none"
)

// Providers lists every accepted provider name.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderNone}

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "phishguard"

	// DefaultProvider is the advisory provider used when none is configured.
	DefaultProvider = ProviderGemini

	// DefaultGeminiModel is a fast, inexpensive model that answers a one-line
	// verdict well within the advisory timeout.
	DefaultGeminiModel = "gemini-1.5-flash"

	// DefaultOpenAIModel is used when the provider is openai and no model is set.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultAdvisoryTimeout bounds a single advisory call.
	// A scan must finish even when the provider hangs.
	DefaultAdvisoryTimeout = 15 * time.Second

	// DefaultDatasetPath is the training CSV looked up in the working directory.
	DefaultDatasetPath = "phishing.csv"

	// DefaultBatchSize is the number of URLs scanned concurrently.
	// Advisory providers rate-limit aggressively, so this stays small.
	DefaultBatchSize = 4

	// DefaultListenAddress is where "phishguard serve" listens.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultWhoisTimeout bounds the optional WHOIS lookup.
	DefaultWhoisTimeout = 10 * time.Second
)

// Config holds all configuration options for PhishGuard.
// It is populated from the config file, the environment and CLI flags, in
// that order, and passed through the application explicitly.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity, the same way the YAML file is flattened onto it.
type Config struct {
	// AdvisoryProvider selects the external advisory backend.
	AdvisoryProvider string

	// AdvisoryModel is the provider-specific model name.
	// Empty means the provider's default.
	AdvisoryModel string

	// AdvisoryBaseURL overrides the provider API endpoint.
	// Useful for OpenAI-compatible gateways and for tests.
	AdvisoryBaseURL string

	// AdvisoryAPIKeyEnv names the environment variable holding the API key.
	// Empty means the provider's default variables.
	AdvisoryAPIKeyEnv string

	// AdvisoryAPIKey is the resolved API key. It is never read from the
	// config file and never logged.
	AdvisoryAPIKey string

	// AdvisoryTimeout bounds each advisory call.
	AdvisoryTimeout time.Duration

	// AdvisoryRetry allows one extra attempt after a transient failure.
	AdvisoryRetry bool

	// AdvisoryProxy routes advisory traffic through a SOCKS5 proxy ("host:port").
	AdvisoryProxy string

	// DatasetPath is the training CSV for the local classifier.
	DatasetPath string

	// DBDir is the directory holding the SQLite sample store.
	// Defaults to the XDG data directory.
	DBDir string

	// Patterns are extra heuristic patterns from the config file.
	Patterns []heuristic.Pattern

	// ReplaceDefaultPatterns drops the built-in heuristic patterns.
	ReplaceDefaultPatterns bool

	// DomainInfo enables the informational WHOIS lookup.
	DomainInfo bool

	// WhoisTimeout bounds the WHOIS lookup.
	WhoisTimeout time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple URLs.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .phishguard in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	ReportFile string

	// NoColor disables colored terminal output.
	NoColor bool

	// Targets is the list of URLs to scan.
	Targets []string

	// ListenAddress is the HTTP listen address for the server.
	ListenAddress string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		AdvisoryProvider: DefaultProvider,
		AdvisoryTimeout:  DefaultAdvisoryTimeout,
		DatasetPath:      DefaultDatasetPath,
		DBDir:            XDGDataDir(),
		BatchSize:        DefaultBatchSize,
		ListenAddress:    DefaultListenAddress,
		WhoisTimeout:     DefaultWhoisTimeout,
	}
}

// Model returns the configured model or the provider default.
func (c *Config) Model() string {
	if c.AdvisoryModel != "" {
		return c.AdvisoryModel
	}
	switch c.AdvisoryProvider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiModel
	default:
		return ""
	}
}

// XDGDataDir returns the XDG data directory for PhishGuard.
// On Linux: ~/.local/share/phishguard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for PhishGuard.
// On Linux: ~/.config/phishguard
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks options shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.AdvisoryProvider) {
		return ErrUnknownProvider
	}

	// A zero timeout would turn every advisory call into a timeout.
	if c.AdvisoryTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.DomainInfo && c.WhoisTimeout <= 0 {
		return ErrInvalidWhoisTimeout
	}

	return nil
}

// ValidateScan checks options required by the scan command.
func (c *Config) ValidateScan() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// ValidateServe checks options required by the serve command.
func (c *Config) ValidateServe() error {
	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}
	return c.Validate()
}
