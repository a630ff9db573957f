// Package config provides YAML-based configuration loading for meshrelay.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
    // AppName optional logical name of the node/application
    AppName string `mapstructure:"app_name"`

    // NodeID pins the local node identifier; empty derives one at startup
    NodeID string `mapstructure:"node_id"`

    // RelayCapable marks this node as willing to forward for others
    RelayCapable bool `mapstructure:"relay_capable"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Relay holds store-and-forward policy
    Relay RelayConfig `mapstructure:"relay"`

    // Heartbeat holds maintenance cadence options
    Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`

    // Channels force specific channels up regardless of probing
    Channels ChannelsConfig `mapstructure:"channels"`

    // MetricsAddr serves prometheus metrics when non-empty (e.g. ":9090")
    MetricsAddr string `mapstructure:"metrics_addr"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// RelayConfig is the operator view of the store-and-forward policy. The
// runtime clamps MaxQueueSize to the 10000 ceiling and HoldTimeMS to the
// 60000 ms floor.
type RelayConfig struct {
    Enabled      bool `mapstructure:"enabled"`
    MaxQueueSize int  `mapstructure:"max_queue_size"`
    HoldTimeMS   int  `mapstructure:"hold_time_ms"`
}

// HeartbeatConfig tunes the periodic maintenance loop.
type HeartbeatConfig struct {
    IntervalMS        int `mapstructure:"interval_ms"`
    PeerStalenessMins int `mapstructure:"peer_staleness_mins"`
}

// ChannelsConfig lets operators force channels up (field devices whose
// radios are known-present but not probeable from software).
type ChannelsConfig struct {
    ForceUp []string `mapstructure:"force_up"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName:      "meshrelay-node",
        RelayCapable: true,
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/meshrelay.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Relay: RelayConfig{
            Enabled:      true,
            MaxQueueSize: 1000,
            HoldTimeMS:   24 * 60 * 60 * 1000,
        },
        Heartbeat: HeartbeatConfig{
            IntervalMS:        5000,
            PeerStalenessMins: 120,
        },
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix MESHRELAY and `.`/`-` are replaced
// with `_`. Example: MESHRELAY_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("MESHRELAY")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("node_id", cfg.NodeID)
    v.SetDefault("relay_capable", cfg.RelayCapable)
    v.SetDefault("metrics_addr", cfg.MetricsAddr)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("relay.enabled", cfg.Relay.Enabled)
    v.SetDefault("relay.max_queue_size", cfg.Relay.MaxQueueSize)
    v.SetDefault("relay.hold_time_ms", cfg.Relay.HoldTimeMS)
    v.SetDefault("heartbeat.interval_ms", cfg.Heartbeat.IntervalMS)
    v.SetDefault("heartbeat.peer_staleness_mins", cfg.Heartbeat.PeerStalenessMins)
    v.SetDefault("channels.force_up", cfg.Channels.ForceUp)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("MESHRELAY_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `meshrelay`
        v.SetConfigName("meshrelay")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".meshrelay"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var notFound viper.ConfigFileNotFoundError
        if !errors.As(err, &notFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }
    if c.Heartbeat.IntervalMS <= 0 {
        c.Heartbeat.IntervalMS = 5000
    }
    if c.Heartbeat.PeerStalenessMins <= 0 {
        c.Heartbeat.PeerStalenessMins = 120
    }
    for i := range c.Channels.ForceUp {
        c.Channels.ForceUp[i] = strings.ToLower(strings.TrimSpace(c.Channels.ForceUp[i]))
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
