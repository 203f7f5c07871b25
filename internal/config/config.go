// Package config defines the explicit configuration surface for custmatch.
//
// Configuration is an ordinary struct passed to the classifier and each
// strategy at construction time; there is no ambient global accessor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IdentifierFormat selects the accepted shape of customer identifiers.
type IdentifierFormat string

const (
	// FormatPlainDigits accepts pure digit strings.
	FormatPlainDigits IdentifierFormat = "plain-digits"
	// FormatLetterPrefix accepts one or more letters followed by digits.
	FormatLetterPrefix IdentifierFormat = "letter-prefix"
	// FormatDigitsHyphenLetter accepts digits with an optional -X suffix.
	FormatDigitsHyphenLetter IdentifierFormat = "digits-hyphen-letter"
)

// Config is the complete custmatch configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Identifier IdentifierConfig `yaml:"identifier"`
	Fuzzy      FuzzyConfig      `yaml:"fuzzy"`
	Search     SearchConfig     `yaml:"search"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IdentifierConfig configures the identifier match strategy.
type IdentifierConfig struct {
	// Format is the accepted identifier shape.
	Format IdentifierFormat `yaml:"format"`

	// SpecialPrefix, when non-empty, is stripped from a query before the
	// digit-shape test (e.g. a legacy billing prefix typed by agents).
	SpecialPrefix string `yaml:"special_prefix"`

	// SentinelEnabled excludes records carrying Sentinel as their
	// identifier from identifier matches. Used when a placeholder
	// identifier is assigned to imported records.
	SentinelEnabled bool  `yaml:"sentinel_enabled"`
	Sentinel        int64 `yaml:"sentinel"`

	// PartitionPrefixes maps an identifier prefix to the partition it
	// scopes. A query starting with a prefix is additionally searched
	// with the prefix stripped, restricted to that partition.
	PartitionPrefixes map[string]int64 `yaml:"partition_prefixes"`
}

// FuzzyConfig configures the approximate-match corpus.
type FuzzyConfig struct {
	// Disabled turns the fuzzy tier off globally.
	Disabled bool `yaml:"disabled"`

	// Tolerance is the maximum edit distance for an approximate match.
	Tolerance int `yaml:"tolerance"`

	// Dir is the directory holding the per-field corpus blobs.
	Dir string `yaml:"dir"`
}

// SearchConfig configures cross-strategy search behavior.
type SearchConfig struct {
	// AddressSearch enables matching against linked location address lines.
	AddressSearch bool `yaml:"address_search"`

	// SubstringMin is the minimum query length for the substring tier.
	// Bounds result-set explosion on common short strings.
	SubstringMin int `yaml:"substring_min"`

	// PrivilegedSubstringMin is the substring tier minimum for
	// elevated-privilege callers.
	PrivilegedSubstringMin int `yaml:"privileged_substring_min"`
}

// StoreConfig configures the reference SQLite record store used by the CLI.
type StoreConfig struct {
	// DBPath is the SQLite database path. Empty means in-memory.
	DBPath string `yaml:"db_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Identifier: IdentifierConfig{
			Format: FormatPlainDigits,
		},
		Fuzzy: FuzzyConfig{
			Tolerance: 2,
			Dir:       defaultFuzzyDir(),
		},
		Search: SearchConfig{
			SubstringMin:           4,
			PrivilegedSubstringMin: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultFuzzyDir returns ~/.custmatch/fuzzy, falling back to the temp
// directory when the home directory is unavailable.
func defaultFuzzyDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".custmatch", "fuzzy")
}

// Load reads configuration from a YAML file, merges it over defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from path if it exists, otherwise
// returns validated defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
// Invalid partition-prefix entries are rejected here, at the load boundary,
// rather than silently skipped during identifier search.
func (c *Config) Validate() error {
	switch c.Identifier.Format {
	case FormatPlainDigits, FormatLetterPrefix, FormatDigitsHyphenLetter:
	default:
		return fmt.Errorf("identifier.format must be %q, %q, or %q, got %q",
			FormatPlainDigits, FormatLetterPrefix, FormatDigitsHyphenLetter, c.Identifier.Format)
	}

	for prefix, partition := range c.Identifier.PartitionPrefixes {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("identifier.partition_prefixes: empty prefix for partition %d", partition)
		}
		if partition <= 0 {
			return fmt.Errorf("identifier.partition_prefixes[%s]: partition must be positive, got %d", prefix, partition)
		}
	}

	if c.Identifier.SentinelEnabled && c.Identifier.Sentinel < 0 {
		return fmt.Errorf("identifier.sentinel must be non-negative, got %d", c.Identifier.Sentinel)
	}

	if c.Fuzzy.Tolerance < 0 {
		return fmt.Errorf("fuzzy.tolerance must be non-negative, got %d", c.Fuzzy.Tolerance)
	}

	if c.Search.SubstringMin < 1 {
		return fmt.Errorf("search.substring_min must be at least 1, got %d", c.Search.SubstringMin)
	}
	if c.Search.PrivilegedSubstringMin < 1 {
		return fmt.Errorf("search.privileged_substring_min must be at least 1, got %d", c.Search.PrivilegedSubstringMin)
	}
	if c.Search.PrivilegedSubstringMin > c.Search.SubstringMin {
		return fmt.Errorf("search.privileged_substring_min (%d) must not exceed search.substring_min (%d)",
			c.Search.PrivilegedSubstringMin, c.Search.SubstringMin)
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}
