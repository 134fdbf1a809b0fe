// Package config loads CleanChat settings. Values start from defaults, are
// overlaid by an optional YAML file, then by the environment (a .env file in
// the working directory is loaded first and never overrides variables that
// are already set).
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cleanchat/cleanchat/internal/chat"
	"github.com/cleanchat/cleanchat/internal/logging"
	"github.com/cleanchat/cleanchat/internal/moderation"
)

// Moderation transports.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Moderation ModerationConfig `yaml:"moderation"`
	NATS       NATSConfig       `yaml:"nats"`
	Redis      RedisConfig      `yaml:"redis"`
	Widget     WidgetConfig     `yaml:"widget"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	Name              string        `yaml:"name"`
	MaxConnections    int           `yaml:"max_connections"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `yaml:"heartbeat_timeout"`
}

// ModerationConfig selects and configures the moderation client.
type ModerationConfig struct {
	Transport string        `yaml:"transport"` // http | nats
	Endpoint  string        `yaml:"endpoint"`
	Subject   string        `yaml:"subject"`
	Timeout   time.Duration `yaml:"timeout"` // 0 means no timeout
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures the optional session registry. An empty Addr
// disables it.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// WidgetConfig configures the chat widget.
type WidgetConfig struct {
	TimeFormat string `yaml:"time_format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	name, _ := os.Hostname()
	if name == "" {
		name = "cleanchat-1"
	}
	return Config{
		Server: ServerConfig{
			ListenAddr:        ":8080",
			Name:              name,
			MaxConnections:    10000,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  10 * time.Second,
		},
		Moderation: ModerationConfig{
			Transport: TransportHTTP,
			Endpoint:  moderation.DefaultEndpoint,
			Subject:   moderation.DefaultSubject,
		},
		NATS: NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
		Widget: WidgetConfig{
			TimeFormat: chat.DefaultTimeFormat,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty), .env and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "config: read file")
		}
		if err := parseYAML(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "config: parse %s", path)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return cfg, errors.Wrap(err, "config: load .env")
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func parseYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment variables read through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", key)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", key)
		}
		*dst = d
		return nil
	}

	str("LISTEN_ADDR", &cfg.Server.ListenAddr)
	str("SERVER_NAME", &cfg.Server.Name)
	str("NATS_URL", &cfg.NATS.URL)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("MODERATION_ENDPOINT", &cfg.Moderation.Endpoint)
	str("MODERATION_TRANSPORT", &cfg.Moderation.Transport)
	str("MODERATION_SUBJECT", &cfg.Moderation.Subject)
	str("TIME_FORMAT", &cfg.Widget.TimeFormat)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	for _, e := range []error{
		num("MAX_CONNECTIONS", &cfg.Server.MaxConnections),
		dur("READ_TIMEOUT", &cfg.Server.ReadTimeout),
		dur("WRITE_TIMEOUT", &cfg.Server.WriteTimeout),
		dur("HEARTBEAT_INTERVAL", &cfg.Server.HeartbeatInterval),
		dur("HEARTBEAT_TIMEOUT", &cfg.Server.HeartbeatTimeout),
		dur("MODERATION_TIMEOUT", &cfg.Moderation.Timeout),
	} {
		if e != nil {
			return e
		}
	}
	return nil
}

// Validate rejects settings the program cannot run with.
func (c Config) Validate() error {
	switch c.Moderation.Transport {
	case TransportHTTP:
		if c.Moderation.Endpoint == "" {
			return errors.New("config: moderation.endpoint is empty")
		}
	case TransportNATS:
		if c.Moderation.Subject == "" {
			return errors.New("config: moderation.subject is empty")
		}
		if c.NATS.URL == "" {
			return errors.New("config: nats.url is empty")
		}
	default:
		return errors.Errorf("config: unknown moderation.transport %q", c.Moderation.Transport)
	}
	if c.Moderation.Timeout < 0 {
		return errors.New("config: moderation.timeout is negative")
	}
	if c.Server.MaxConnections < 0 {
		return errors.New("config: server.max_connections is negative")
	}
	if c.Widget.TimeFormat == "" {
		return errors.New("config: widget.time_format is empty")
	}
	return nil
}
