// Package config loads tool settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds the settings shared by the command-line tools.
type Config struct {
	MasterBank      string // Path to the master bank, with sample data.
	Vault           string // Path to the vault snapshot.
	Names           string // Path to the program name table, may be empty.
	Workers         int    // Number of files processed concurrently.
	LogLevel        logrus.Level
	AllowNewSamples bool // Whether merges may add samples to the master bank.

	// WorkingDir is the directory relative paths are resolved against. It is
	// set when the tool is run with "bazel run".
	WorkingDir string
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		MasterBank:      envStr("DSE_MASTER_BANK", ""),
		Vault:           envStr("DSE_VAULT", "vault.json"),
		Names:           envStr("DSE_NAMES", ""),
		Workers:         envInt("DSE_WORKERS", runtime.NumCPU()),
		LogLevel:        envLevel("DSE_LOG_LEVEL", logrus.InfoLevel),
		AllowNewSamples: envBool("DSE_ALLOW_NEW_SAMPLES", true),
		WorkingDir:      os.Getenv("BUILD_WORKING_DIRECTORY"),
	}
}

// Path returns the path to the file, which will be correct even when run
// from Bazel.
func (c *Config) Path(filename string) string {
	if filename != "" && c.WorkingDir != "" && !filepath.IsAbs(filename) {
		return filepath.Join(c.WorkingDir, filename)
	}
	return filename
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envLevel(key string, fallback logrus.Level) logrus.Level {
	if v := os.Getenv(key); v != "" {
		if l, err := logrus.ParseLevel(v); err == nil {
			return l
		}
	}
	return fallback
}
