package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds everything the supervisor and store need to run. All fields
// have working defaults; the config file only overrides.
type Config struct {
	Worker WorkerConfig `yaml:"worker"`
	// DataDir holds the isolated environment and the session database.
	DataDir string `yaml:"data_dir,omitempty"`
}

// WorkerConfig configures how the worker runtime is provisioned and spawned.
type WorkerConfig struct {
	// Candidates is the ordered list of runtime executables to probe.
	Candidates []string `yaml:"candidates,omitempty"`
	// MinVersion is the minimum runtime version accepted.
	MinVersion string `yaml:"min_version,omitempty"`
	// Package is the worker package installed into the environment.
	Package string `yaml:"package,omitempty"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		Worker: WorkerConfig{
			Candidates: []string{"python3.12", "python3.11", "python3.10", "python3"},
			MinVersion: "3.10.0",
			Package:    "mentat",
		},
	}
}

// LoadConfig reads the YAML config at path over the defaults. A missing file
// is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = defaultConfigPath()
	}

	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills back any field the file left empty.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if len(c.Worker.Candidates) == 0 {
		c.Worker.Candidates = defaults.Worker.Candidates
	}
	if c.Worker.MinVersion == "" {
		c.Worker.MinVersion = defaults.Worker.MinVersion
	}
	if c.Worker.Package == "" {
		c.Worker.Package = defaults.Worker.Package
	}
}

// ResolveDataDir returns the data directory, defaulting to a fixed per-user
// location under the home directory.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".agent-console"), nil
}

// EnvDir returns the isolated environment directory inside the data dir.
func (c Config) EnvDir() (string, error) {
	dataDir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "env"), nil
}

// DatabasePath returns where session snapshots are stored.
func (c Config) DatabasePath() (string, error) {
	dataDir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.db"), nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agent-console", "config.yaml")
}
