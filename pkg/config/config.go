// Package config provides YAML-based configuration loading for the TbD
// dispatcher and worker services.
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
    // AppName optional logical name of the service instance
    AppName string `mapstructure:"app_name"`

    // ListenAddr is the dispatcher HTTP listen address
    ListenAddr string `mapstructure:"listen_addr"`

    // WorkDir base directory for per-task scratch files
    WorkDir string `mapstructure:"work_dir"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Broker holds message broker settings
    Broker BrokerConfig `mapstructure:"broker"`

    // Collaborators holds the external stage service endpoints
    Collaborators CollaboratorsConfig `mapstructure:"collaborators"`

    // Worker holds orchestration and pathway-building settings
    Worker WorkerConfig `mapstructure:"worker"`

    // Blob holds object storage settings
    Blob BlobConfig `mapstructure:"blob"`
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

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName:    "tbd-engine",
        ListenAddr: ":8080",
        WorkDir:    os.TempDir(),
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/tbd.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Broker:        DefaultBroker(),
        Collaborators: DefaultCollaborators(),
        Worker:        DefaultWorker(),
        Blob:          BlobConfig{Kind: "fs", Root: "./data/blobs"},
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix TBD and `.`/`-` are replaced with `_`.
// Example: TBD_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("TBD")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("listen_addr", cfg.ListenAddr)
    v.SetDefault("work_dir", cfg.WorkDir)
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
    // Broker defaults
    v.SetDefault("broker.addr", cfg.Broker.Addr)
    v.SetDefault("broker.db", cfg.Broker.DB)
    v.SetDefault("broker.task_topic", cfg.Broker.TaskTopic)
    v.SetDefault("broker.completion_topic", cfg.Broker.CompletionTopic)
    v.SetDefault("broker.codec", cfg.Broker.Codec)
    v.SetDefault("broker.visibility_timeout", cfg.Broker.VisibilityTimeout)
    v.SetDefault("broker.retry_base_backoff", cfg.Broker.RetryBaseBackoff)
    v.SetDefault("broker.retry_max_backoff", cfg.Broker.RetryMaxBackoff)
    v.SetDefault("broker.max_attempts", cfg.Broker.MaxAttempts)
    // Collaborator defaults
    v.SetDefault("collaborators.segmenter_url", cfg.Collaborators.SegmenterURL)
    v.SetDefault("collaborators.refiner_url", cfg.Collaborators.RefinerURL)
    v.SetDefault("collaborators.transcriber_url", cfg.Collaborators.TranscriberURL)
    v.SetDefault("collaborators.encoder_url", cfg.Collaborators.EncoderURL)
    v.SetDefault("collaborators.telemetry_url", cfg.Collaborators.TelemetryURL)
    v.SetDefault("collaborators.refine_timeout", cfg.Collaborators.RefineTimeout)
    v.SetDefault("collaborators.call_timeout", cfg.Collaborators.CallTimeout)
    // Worker defaults
    v.SetDefault("worker.refine_concurrency", cfg.Worker.RefineConcurrency)
    v.SetDefault("worker.dedupe_ttl", cfg.Worker.DedupeTTL)
    v.SetDefault("worker.author_id", cfg.Worker.AuthorID)
    v.SetDefault("worker.target_vertical", cfg.Worker.TargetVertical)
    v.SetDefault("worker.compliance_tag", cfg.Worker.ComplianceTag)
    // Blob defaults
    v.SetDefault("blob.kind", cfg.Blob.Kind)
    v.SetDefault("blob.root", cfg.Blob.Root)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("TBD_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `tbd`
        v.SetConfigName("tbd")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".tbd"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
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
    if strings.TrimSpace(c.WorkDir) == "" {
        c.WorkDir = os.TempDir()
    }
    if c.Worker.RefineConcurrency <= 0 {
        c.Worker.RefineConcurrency = 4
    }
    if c.Broker.MaxAttempts <= 0 {
        c.Broker.MaxAttempts = 5
    }
    switch strings.ToLower(strings.TrimSpace(c.Broker.Codec)) {
    case "", "json", "cbor":
        // ok
    default:
        return fmt.Errorf("invalid broker.codec: %q", c.Broker.Codec)
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
