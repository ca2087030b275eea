package generator

import (
	"os"
	"strings"
	"time"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ConfigFromEnv reads GOOGLE_API_KEY, GENAI_MODEL and GENAI_TIMEOUT.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:  strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		Model:   os.Getenv("GENAI_MODEL"),
		Timeout: 60 * time.Second,
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if d, err := time.ParseDuration(os.Getenv("GENAI_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

func (c Config) Configured() bool { return c.APIKey != "" }
