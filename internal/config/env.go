package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file loaded from the working directory.
const DefaultEnvFile = ".env"

// defaultAPIKeyEnvs lists the variables checked per provider, in order.
var defaultAPIKeyEnvs = map[string][]string{
	ProviderGemini: {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	ProviderOpenAI: {"OPENAI_API_KEY"},
}

// LoadDotEnv loads variables from the given dotenv files into the process
// environment. Missing files are skipped and variables that are already set
// are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultEnvFile}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAPIKey fills AdvisoryAPIKey from the environment and returns the
// name of the variable it came from. It returns an empty name when no key is
// available; the advisory then reports config_missing.
func (c *Config) ResolveAPIKey() string {
	candidates := defaultAPIKeyEnvs[c.AdvisoryProvider]
	if c.AdvisoryAPIKeyEnv != "" {
		candidates = []string{c.AdvisoryAPIKeyEnv}
	}
	for _, name := range candidates {
		if v := os.Getenv(name); v != "" {
			c.AdvisoryAPIKey = v
			return name
		}
	}
	c.AdvisoryAPIKey = ""
	return ""
}
