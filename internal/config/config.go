// Package config handles the agent's persisted configuration: the identity
// record created by "init" (instance id, credential, collector URL, cloud
// provider tag) and the monitoring policy (sampling interval, batch size).
// The record is written once at initialization and only ever replaced
// wholesale by re-initialization. The credential is stored with owner-only
// permissions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName        = "vm-monitor"
	configFileName = "config.yaml"
)

// ErrNotFound indicates no configuration file exists yet. Every command
// except "init" treats this as fatal.
var ErrNotFound = errors.New("configuration not found (run 'vm-monitor init' first)")

// CloudProvider identifies the environment the agent runs in, as declared at
// registration.
type CloudProvider string

const (
	CloudAWS     CloudProvider = "AWS"
	CloudGCP     CloudProvider = "GCP"
	CloudAzure   CloudProvider = "Azure"
	CloudUnknown CloudProvider = "Unknown"
)

// Duration is a wrapper around time.Duration that supports YAML marshaling
// to and from human-readable strings like "60s", "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// MonitoringSettings is the agent's sampling policy. Supplied at init, may be
// overridden per run via the CLI; immutable for the lifetime of a run.
type MonitoringSettings struct {
	Interval  Duration `yaml:"interval"`
	BatchSize int      `yaml:"batch_size"`
}

// DefaultMonitoringSettings returns the policy used when init is given no
// overrides: sample every 60 seconds, deliver in batches of 10.
func DefaultMonitoringSettings() MonitoringSettings {
	return MonitoringSettings{
		Interval:  Duration{60 * time.Second},
		BatchSize: 10,
	}
}

// Config is the persisted agent record. InstanceID and APIKey together form
// the agent's identity with the collector; they are generated once at init
// and never mutated afterwards.
type Config struct {
	InstanceID    string             `yaml:"instance_id"`
	InstanceName  string             `yaml:"instance_name"`
	APIURL        string             `yaml:"api_url"`
	APIKey        string             `yaml:"api_key"`
	CloudProvider CloudProvider      `yaml:"cloud_provider"`
	Monitoring    MonitoringSettings `yaml:"monitoring"`
	InitializedAt time.Time          `yaml:"initialized_at"`
}

// Validate checks that the record has everything a run needs.
func (c *Config) Validate() error {
	if c.InstanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Monitoring.Interval.Duration <= 0 {
		return fmt.Errorf("monitoring interval must be positive")
	}
	if c.Monitoring.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

// Path returns the location of the configuration file, under the platform's
// user configuration directory.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config directory: %w", err)
	}
	return filepath.Join(base, appName, configFileName), nil
}

// Load reads the persisted configuration. Returns ErrNotFound if the agent
// has not been initialized.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return loadFrom(path)
}

// Save persists the configuration with owner-only permissions and returns
// the path written.
func Save(cfg *Config) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if err := saveTo(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}

func saveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	// 0600: the file holds the agent credential.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
