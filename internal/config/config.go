package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceReplay = "replay"
	SourceMQTT   = "mqtt"
)

// Config captures the settings required to boot the flightwatch service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Rules   RulesConfig   `yaml:"rules"`
	Source  SourceConfig  `yaml:"source"`
	Sinks   SinksConfig   `yaml:"sinks"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls the gRPC, HTTP and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at the optional recommended-action pack.
type RulesConfig struct {
	ActionsPath string `yaml:"actionsPath"`
}

// SourceConfig selects and configures the snapshot feed.
type SourceConfig struct {
	Kind       string     `yaml:"kind"`
	Schedule   string     `yaml:"schedule"`
	ReplayPath string     `yaml:"replayPath"`
	MQTT       MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the MQTT snapshot subscriber.
type MQTTConfig struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"clientID"`
	Topic          string        `yaml:"topic"`
	QoS            byte          `yaml:"qos"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	QueueSize      int           `yaml:"queueSize"`
}

// SinksConfig controls where anomaly records go after each cycle.
type SinksConfig struct {
	BoardCapacity int         `yaml:"boardCapacity"`
	Log           LogSink     `yaml:"log"`
	Dedup         DedupConfig `yaml:"dedup"`
	Kafka         KafkaConfig `yaml:"kafka"`
}

// LogSink toggles logging of every published anomaly.
type LogSink struct {
	Enabled bool `yaml:"enabled"`
}

// DedupConfig suppresses repeats of the same anomaly type and severity for TTL.
type DedupConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// KafkaConfig configures the Kafka anomaly publisher.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// CacheConfig controls the Redis/Valkey connection backing deduplication.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	KeyPrefix    string        `yaml:"keyPrefix"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FLIGHTWATCH_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceReplay:
	case SourceMQTT:
		if c.Source.MQTT.Broker == "" || c.Source.MQTT.Topic == "" {
			return fmt.Errorf("source.mqtt.broker and source.mqtt.topic are required for the mqtt source")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if _, err := cron.ParseStandard(c.Source.Schedule); err != nil {
		return fmt.Errorf("invalid source.schedule %q: %w", c.Source.Schedule, err)
	}
	if c.Sinks.Kafka.Enabled && (len(c.Sinks.Kafka.Brokers) == 0 || c.Sinks.Kafka.Topic == "") {
		return fmt.Errorf("sinks.kafka.brokers and sinks.kafka.topic are required when kafka is enabled")
	}
	if c.Sinks.Dedup.Enabled && c.Sinks.Dedup.TTL <= 0 {
		return fmt.Errorf("sinks.dedup.ttl must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{ActionsPath: "configs/actions.yaml"},
		Source: SourceConfig{
			Kind:     SourceReplay,
			Schedule: "@every 3s",
			MQTT: MQTTConfig{
				ClientID:       "flightwatch",
				Topic:          "aircraft/+/snapshot",
				ConnectTimeout: 10 * time.Second,
				QueueSize:      256,
			},
		},
		Sinks: SinksConfig{
			BoardCapacity: 500,
			Log:           LogSink{Enabled: true},
			Dedup:         DedupConfig{Enabled: false, TTL: time.Minute},
			Kafka: KafkaConfig{
				Topic:        "flightwatch.anomalies",
				BatchTimeout: 50 * time.Millisecond,
				WriteTimeout: 5 * time.Second,
			},
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			KeyPrefix:    "flightwatch:",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLIGHTWATCH_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FLIGHTWATCH_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("FLIGHTWATCH_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FLIGHTWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLIGHTWATCH_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FLIGHTWATCH_ACTIONS_PATH"); v != "" {
		cfg.Rules.ActionsPath = v
	}
	if v := os.Getenv("FLIGHTWATCH_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("FLIGHTWATCH_SOURCE_SCHEDULE"); v != "" {
		cfg.Source.Schedule = v
	}
	if v := os.Getenv("FLIGHTWATCH_REPLAY_PATH"); v != "" {
		cfg.Source.ReplayPath = v
	}
	if v := os.Getenv("FLIGHTWATCH_MQTT_BROKER"); v != "" {
		cfg.Source.MQTT.Broker = v
	}
	if v := os.Getenv("FLIGHTWATCH_MQTT_TOPIC"); v != "" {
		cfg.Source.MQTT.Topic = v
	}
	if v := os.Getenv("FLIGHTWATCH_MQTT_USERNAME"); v != "" {
		cfg.Source.MQTT.Username = v
	}
	if v := os.Getenv("FLIGHTWATCH_MQTT_PASSWORD"); v != "" {
		cfg.Source.MQTT.Password = v
	}
	if v := os.Getenv("FLIGHTWATCH_KAFKA_BROKERS"); v != "" {
		cfg.Sinks.Kafka.Brokers = splitList(v)
		cfg.Sinks.Kafka.Enabled = true
	}
	if v := os.Getenv("FLIGHTWATCH_KAFKA_TOPIC"); v != "" {
		cfg.Sinks.Kafka.Topic = v
	}
	if v := os.Getenv("FLIGHTWATCH_DEDUP_ENABLED"); v != "" {
		cfg.Sinks.Dedup.Enabled = parseBool(v)
	}
	if v := os.Getenv("FLIGHTWATCH_DEDUP_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sinks.Dedup.TTL = d
		}
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_TLS"); parseBool(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("FLIGHTWATCH_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
