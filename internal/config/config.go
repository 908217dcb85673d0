package config

import (
	"fmt"
	"time"
)

// Config represents the complete hub configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Stream      StreamConfig      `mapstructure:"stream"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Store       StoreConfig       `mapstructure:"store"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g. 0.0.0.0)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// RegistryConfig represents node registry and liveness monitor configuration
type RegistryConfig struct {
	// HeartbeatTimeout is the maximum silent interval before an online
	// node is demoted to offline. Must exceed the node heartbeat cadence.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`

	// MonitorInterval is the liveness sweep period
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`

	// RestartDelay is how long a restarted node stays in "restarting"
	// before being demoted to offline
	RestartDelay time.Duration `mapstructure:"restart_delay"`

	// MonitorFailureBackoff is the pause after a failed sweep cycle
	MonitorFailureBackoff time.Duration `mapstructure:"monitor_failure_backoff"`

	// MonitorMaxFailures is the consecutive failed cycles tolerated
	// before the long cooldown kicks in
	MonitorMaxFailures int `mapstructure:"monitor_max_failures"`

	// MonitorCooldown is the long pause after MonitorMaxFailures
	// consecutive failed cycles
	MonitorCooldown time.Duration `mapstructure:"monitor_cooldown"`
}

// AlertsConfig represents alert log configuration
type AlertsConfig struct {
	MemoryLimit   int `mapstructure:"memory_limit"`   // in-memory cap (default: 1000)
	SnapshotLimit int `mapstructure:"snapshot_limit"` // persisted cap (default: 100)
}

// StreamConfig represents stream proxy configuration
type StreamConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"` // reachability check timeout
	RelayTimeout time.Duration `mapstructure:"relay_timeout"` // upstream connect/header timeout
	ChunkSize    int           `mapstructure:"chunk_size"`    // relay copy buffer in bytes
	MaxChunks    int64         `mapstructure:"max_chunks"`    // safety cap on relayed chunks, 0 = unlimited
}

// RecognitionConfig represents face matching configuration
type RecognitionConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`  // match distance threshold (default: 0.6)
	MaxPixels int     `mapstructure:"max_pixels"` // uploaded image pixel cap
}

// StoreConfig represents durable snapshot configuration
type StoreConfig struct {
	Type     string        `mapstructure:"type"`     // file (default) or etcd
	DataDir  string        `mapstructure:"data_dir"` // file store directory
	Compress bool          `mapstructure:"compress"` // snappy-compress file snapshots
	Etcd     EtcdConfig    `mapstructure:"etcd"`
	Timeout  time.Duration `mapstructure:"timeout"` // per-snapshot write timeout
}

// EtcdConfig represents etcd store backend configuration
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// QueueConfig represents the optional external broker used to mirror
// bus events and ingest detections
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // memory (default), nats, redis, kafka, or "" to disable
	URL      string `mapstructure:"url"`      // broker URL (e.g. nats://localhost:4222)
	Username string `mapstructure:"username"` // optional authentication
	Password string `mapstructure:"password"` // optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`   // stream prefix (default: "sentra")
	RedisGroup    string `mapstructure:"redis_group"`    // consumer group (default: "sentra-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`
}

// AuthConfig represents API key authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Registry.Validate(); err != nil {
		return fmt.Errorf("registry config: %w", err)
	}

	if err := c.Alerts.Validate(); err != nil {
		return fmt.Errorf("alerts config: %w", err)
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	return nil
}

// Validate validates registry configuration
func (c *RegistryConfig) Validate() error {
	if c.HeartbeatTimeout <= 0 {
		return fmt.Errorf("heartbeat_timeout must be positive")
	}

	if c.MonitorInterval <= 0 {
		return fmt.Errorf("monitor_interval must be positive")
	}

	// A timeout at or below the sweep period flaps nodes between
	// online and offline on every cycle.
	if c.HeartbeatTimeout <= c.MonitorInterval {
		return fmt.Errorf("heartbeat_timeout (%s) must exceed monitor_interval (%s)",
			c.HeartbeatTimeout, c.MonitorInterval)
	}

	if c.RestartDelay <= 0 {
		return fmt.Errorf("restart_delay must be positive")
	}

	return nil
}

// Validate validates alerts configuration
func (c *AlertsConfig) Validate() error {
	if c.MemoryLimit <= 0 {
		return fmt.Errorf("memory_limit must be positive")
	}

	if c.SnapshotLimit <= 0 {
		return fmt.Errorf("snapshot_limit must be positive")
	}

	if c.SnapshotLimit > c.MemoryLimit {
		return fmt.Errorf("snapshot_limit (%d) cannot exceed memory_limit (%d)",
			c.SnapshotLimit, c.MemoryLimit)
	}

	return nil
}

// Validate validates stream proxy configuration
func (c *StreamConfig) Validate() error {
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}

	if c.RelayTimeout <= 0 {
		return fmt.Errorf("relay_timeout must be positive")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	return nil
}

// Validate validates store configuration
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "", "file":
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for the file store")
		}
	case "etcd":
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd.endpoints is required for the etcd store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s (supported: file, etcd)", c.Type)
	}

	return nil
}
