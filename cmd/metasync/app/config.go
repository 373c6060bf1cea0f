package app

import (
	"os"

	"github.com/agentstation/metasync/internal/config"
	"github.com/agentstation/metasync/pkg/constants"
)

// Config holds the command line configuration. Run settings live in
// config.json inside ConfigDir and are loaded per command by the config
// package.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// ConfigDir holds config.json, fields.json and the banned character table.
	ConfigDir string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Defaults
func LoadConfig() *Config {
	// .env files first so they feed the environment lookups below
	config.LoadEnvFiles()

	return &Config{
		ConfigDir: getEnvOrDefault(constants.EnvPrefix+"_CONFIG_DIR", constants.DefaultConfigDir),
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, configDir string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if configDir != "" {
		c.ConfigDir = configDir
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
