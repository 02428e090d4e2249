package vault

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the vault parameters. One explicit parameter set per build;
// there is deliberately no fallback to weaker derivation settings.
type Config struct {
	// KDFIterations is the PBKDF2 iteration count for the wrapping key.
	KDFIterations int `yaml:"kdf_iterations"`

	// PINLength is the required PIN length in ASCII digits.
	PINLength int `yaml:"pin_length"`

	// BundleKey is the storage record identifier the bundle persists under.
	BundleKey string `yaml:"bundle_key"`
}

// DefaultConfig returns the default vault configuration
func DefaultConfig() *Config {
	return &Config{
		KDFIterations: DefaultKDFIterations,
		PINLength:     DefaultPINLength,
		BundleKey:     DefaultBundleKey,
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.KDFIterations <= 0 {
		return fmt.Errorf("kdf_iterations must be positive")
	}
	if c.PINLength <= 0 {
		return fmt.Errorf("pin_length must be positive")
	}
	if c.BundleKey == "" {
		return fmt.Errorf("bundle_key must not be empty")
	}
	return nil
}
