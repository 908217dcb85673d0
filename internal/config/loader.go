package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sentra")
	}

	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("SENTRA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 5000)

	// Registry defaults
	v.SetDefault("registry.heartbeat_timeout", "30s")
	v.SetDefault("registry.monitor_interval", "10s")
	v.SetDefault("registry.restart_delay", "5s")
	v.SetDefault("registry.monitor_failure_backoff", "10s")
	v.SetDefault("registry.monitor_max_failures", 5)
	v.SetDefault("registry.monitor_cooldown", "1m")

	// Alerts defaults
	v.SetDefault("alerts.memory_limit", 1000)
	v.SetDefault("alerts.snapshot_limit", 100)

	// Stream defaults
	v.SetDefault("stream.probe_timeout", "3s")
	v.SetDefault("stream.relay_timeout", "30s")
	v.SetDefault("stream.chunk_size", 8192)
	v.SetDefault("stream.max_chunks", 0)

	// Recognition defaults
	v.SetDefault("recognition.tolerance", 0.6)
	v.SetDefault("recognition.max_pixels", 25_000_000)

	// Store defaults
	v.SetDefault("store.type", "file")
	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("store.compress", false)
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("store.etcd.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("store.etcd.dial_timeout", "5s")

	// Queue defaults (no broker unless configured)
	v.SetDefault("queue.type", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 5000,
		},
		Registry: RegistryConfig{
			HeartbeatTimeout:      30 * time.Second,
			MonitorInterval:       10 * time.Second,
			RestartDelay:          5 * time.Second,
			MonitorFailureBackoff: 10 * time.Second,
			MonitorMaxFailures:    5,
			MonitorCooldown:       time.Minute,
		},
		Alerts: AlertsConfig{
			MemoryLimit:   1000,
			SnapshotLimit: 100,
		},
		Stream: StreamConfig{
			ProbeTimeout: 3 * time.Second,
			RelayTimeout: 30 * time.Second,
			ChunkSize:    8192,
		},
		Recognition: RecognitionConfig{
			Tolerance: 0.6,
			MaxPixels: 25_000_000,
		},
		Store: StoreConfig{
			Type:    "file",
			DataDir: "./data",
			Timeout: 5 * time.Second,
			Etcd: EtcdConfig{
				Endpoints:   []string{"http://localhost:2379"},
				DialTimeout: 5 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
