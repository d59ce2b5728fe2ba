package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDownloadSpeed = 50
	DefaultUploadSpeed   = 10
	DefaultPing          = 100
	DefaultPacketLoss    = 1.0
	DefaultTestInterval  = 1200
	DefaultJitterRange   = 60
	DefaultProbeTimeout  = 120
	DefaultDataDir       = "./data"
	DefaultListenAddr    = ":8080"
	DefaultProvider      = "telegram"

	metricsFileName = "network_metrics.csv"
)

// Config holds all settings. It is loaded once at startup and passed by
// value into the components that need it.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Alerts     Alerts     `yaml:"alerts"`
	General    General    `yaml:"general"`
}

// Thresholds are the alerting bounds, in Mbps / ms / percent.
type Thresholds struct {
	DownloadSpeed float64 `yaml:"download_speed"`
	UploadSpeed   float64 `yaml:"upload_speed"`
	Ping          float64 `yaml:"ping"`
	PacketLoss    float64 `yaml:"packet_loss"`
}

// Alerts configures the notification channel.
type Alerts struct {
	Enabled  bool   `yaml:"enabled"`
	ChatID   string `yaml:"chat_id"`
	Provider string `yaml:"provider"`
	Token    string `yaml:"token"`
}

// General holds loop timing and process-level settings. Intervals are in
// seconds to keep the file format simple.
type General struct {
	TestInterval int    `yaml:"test_interval"`
	JitterRange  int    `yaml:"jitter_range"`
	ProbeTimeout int    `yaml:"probe_timeout"`
	DataDir      string `yaml:"data_dir"`
	ListenAddr   string `yaml:"listen_addr"`
}

// Load reads and parses a YAML config file, applies defaults and env
// overrides, and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// EnsureFile writes a default config file if none exists yet and creates
// the data directory. It reports whether a new file was written.
func EnsureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return false, err
	}
	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return true, err
	}
	return true, nil
}

// Default returns the configuration written on first run.
func Default() Config {
	var cfg Config
	cfg.Alerts.Enabled = true
	ApplyDefaults(&cfg)
	return cfg
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.Thresholds.DownloadSpeed <= 0 {
		return fmt.Errorf("thresholds.download_speed must be positive")
	}
	if cfg.Thresholds.UploadSpeed <= 0 {
		return fmt.Errorf("thresholds.upload_speed must be positive")
	}
	if cfg.Thresholds.Ping <= 0 {
		return fmt.Errorf("thresholds.ping must be positive")
	}
	if cfg.General.TestInterval <= 0 {
		return fmt.Errorf("general.test_interval must be positive")
	}
	if cfg.General.JitterRange < 0 {
		return fmt.Errorf("general.jitter_range must not be negative")
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.Thresholds.DownloadSpeed == 0 {
		cfg.Thresholds.DownloadSpeed = DefaultDownloadSpeed
	}
	if cfg.Thresholds.UploadSpeed == 0 {
		cfg.Thresholds.UploadSpeed = DefaultUploadSpeed
	}
	if cfg.Thresholds.Ping == 0 {
		cfg.Thresholds.Ping = DefaultPing
	}
	if cfg.Thresholds.PacketLoss == 0 {
		cfg.Thresholds.PacketLoss = DefaultPacketLoss
	}
	if cfg.Alerts.Provider == "" {
		cfg.Alerts.Provider = DefaultProvider
	}
	if cfg.General.TestInterval == 0 {
		cfg.General.TestInterval = DefaultTestInterval
	}
	if cfg.General.JitterRange == 0 {
		cfg.General.JitterRange = DefaultJitterRange
	}
	if cfg.General.ProbeTimeout == 0 {
		cfg.General.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.General.DataDir == "" {
		cfg.General.DataDir = DefaultDataDir
	}
	if cfg.General.ListenAddr == "" {
		cfg.General.ListenAddr = DefaultListenAddr
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NETMON_TELEGRAM_TOKEN"); v != "" {
		cfg.Alerts.Token = v
	}
	if v := os.Getenv("NETMON_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Alerts.ChatID = v
	}
}

// Interval is the nominal period between cycle starts.
func (c Config) Interval() time.Duration {
	return time.Duration(c.General.TestInterval) * time.Second
}

// Jitter is the symmetric random perturbation bound for the sleep interval.
func (c Config) Jitter() time.Duration {
	return time.Duration(c.General.JitterRange) * time.Second
}

// ProbeTimeout bounds each individual probe phase.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.General.ProbeTimeout) * time.Second
}

// MetricsPath is the location of the append-only measurement log.
func (c Config) MetricsPath() string {
	return filepath.Join(c.General.DataDir, metricsFileName)
}
