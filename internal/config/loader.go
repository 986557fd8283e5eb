package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/phishguard/internal/heuristic"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".phishguard"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .phishguard configuration file.
// Zero values mean "not set" and leave the defaults untouched.
type File struct {
	Advisory   AdvisoryFile   `yaml:"advisory,omitempty"`
	Dataset    DatasetFile    `yaml:"dataset,omitempty"`
	Heuristics HeuristicsFile `yaml:"heuristics,omitempty"`
	Server     ServerFile     `yaml:"server,omitempty"`
	DomainInfo DomainInfoFile `yaml:"domain_info,omitempty"`
}

// AdvisoryFile configures the external advisory.
// The API key itself is deliberately absent; only the variable name is configurable.
type AdvisoryFile struct {
	Provider  string        `yaml:"provider,omitempty"`
	Model     string        `yaml:"model,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Retry     *bool         `yaml:"retry,omitempty"`
	Proxy     string        `yaml:"proxy,omitempty"`
}

// DatasetFile configures classifier training data.
type DatasetFile struct {
	Path  string `yaml:"path,omitempty"`
	DBDir string `yaml:"db_dir,omitempty"`
}

// HeuristicsFile extends or replaces the built-in patterns.
type HeuristicsFile struct {
	Patterns        []heuristic.Pattern `yaml:"patterns,omitempty"`
	ReplaceDefaults bool                `yaml:"replace_defaults,omitempty"`
}

// ServerFile configures "phishguard serve".
type ServerFile struct {
	Listen string `yaml:"listen,omitempty"`
}

// DomainInfoFile configures the WHOIS lookup.
type DomainInfoFile struct {
	Enabled *bool         `yaml:"enabled,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .phishguard in the current directory
// 3. Look for .phishguard in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply copies every value set in the file onto c.
// CLI flags are applied afterwards and win.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}

	a := f.Advisory
	if a.Provider != "" {
		c.AdvisoryProvider = a.Provider
	}
	if a.Model != "" {
		c.AdvisoryModel = a.Model
	}
	if a.BaseURL != "" {
		c.AdvisoryBaseURL = a.BaseURL
	}
	if a.APIKeyEnv != "" {
		c.AdvisoryAPIKeyEnv = a.APIKeyEnv
	}
	if a.Timeout != 0 {
		c.AdvisoryTimeout = a.Timeout
	}
	if a.Retry != nil {
		c.AdvisoryRetry = *a.Retry
	}
	if a.Proxy != "" {
		c.AdvisoryProxy = a.Proxy
	}

	if f.Dataset.Path != "" {
		c.DatasetPath = f.Dataset.Path
	}
	if f.Dataset.DBDir != "" {
		c.DBDir = f.Dataset.DBDir
	}

	c.Patterns = append(c.Patterns, f.Heuristics.Patterns...)
	if f.Heuristics.ReplaceDefaults {
		c.ReplaceDefaultPatterns = true
	}

	if f.Server.Listen != "" {
		c.ListenAddress = f.Server.Listen
	}

	if f.DomainInfo.Enabled != nil {
		c.DomainInfo = *f.DomainInfo.Enabled
	}
	if f.DomainInfo.Timeout != 0 {
		c.WhoisTimeout = f.DomainInfo.Timeout
	}
}
