package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		InstanceID:    "7f9c24e8-2f3a-4b1b-9f3e-111111111111",
		InstanceName:  "web-01",
		APIURL:        "https://collector.example.com",
		APIKey:        "c2VjcmV0LWtleS1tYXRlcmlhbA==",
		CloudProvider: CloudAWS,
		Monitoring: MonitoringSettings{
			Interval:  Duration{30 * time.Second},
			BatchSize: 5,
		},
		InitializedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	want := testConfig()

	if err := saveTo(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := loadFrom(path)
	if err != nil {
		t.Fatal(err)
	}

	if got.InstanceID != want.InstanceID {
		t.Errorf("InstanceID = %q, want %q", got.InstanceID, want.InstanceID)
	}
	if got.APIKey != want.APIKey {
		t.Errorf("APIKey = %q, want %q", got.APIKey, want.APIKey)
	}
	if got.CloudProvider != want.CloudProvider {
		t.Errorf("CloudProvider = %q, want %q", got.CloudProvider, want.CloudProvider)
	}
	if got.Monitoring.Interval.Duration != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", got.Monitoring.Interval.Duration)
	}
	if got.Monitoring.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", got.Monitoring.BatchSize)
	}
	if !got.InitializedAt.Equal(want.InitializedAt) {
		t.Errorf("InitializedAt = %v, want %v", got.InitializedAt, want.InitializedAt)
	}
}

func TestSave_OwnerOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on Windows")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := saveTo(testConfig(), path); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := loadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing_instance_id", func(c *Config) { c.InstanceID = "" }, true},
		{"missing_api_url", func(c *Config) { c.APIURL = "" }, true},
		{"missing_api_key", func(c *Config) { c.APIKey = "" }, true},
		{"zero_interval", func(c *Config) { c.Monitoring.Interval = Duration{} }, true},
		{"zero_batch_size", func(c *Config) { c.Monitoring.BatchSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDuration_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := testConfig()
	cfg.Monitoring.Interval = Duration{90 * time.Second}

	if err := saveTo(cfg, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "1m30s"; !strings.Contains(string(data), want) {
		t.Errorf("serialized config does not contain %q:\n%s", want, data)
	}

	got, err := loadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Monitoring.Interval.Duration != 90*time.Second {
		t.Errorf("Interval = %v, want 1m30s", got.Monitoring.Interval.Duration)
	}
}

func TestDefaultMonitoringSettings(t *testing.T) {
	def := DefaultMonitoringSettings()
	if def.Interval.Duration != 60*time.Second {
		t.Errorf("default interval = %v, want 60s", def.Interval.Duration)
	}
	if def.BatchSize != 10 {
		t.Errorf("default batch size = %d, want 10", def.BatchSize)
	}
}
