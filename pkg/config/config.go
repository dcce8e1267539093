package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Session struct {
		URL         string        `yaml:"url"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
		Reconnect   struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
			Multiplier   float64       `yaml:"multiplier"`
			Jitter       bool          `yaml:"jitter"`
		} `yaml:"reconnect"`
	} `yaml:"session"`

	Channel struct {
		PingInterval time.Duration `yaml:"ping_interval"`
		PongTimeout  time.Duration `yaml:"pong_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		SendRate     float64       `yaml:"send_rate"`
		SendBurst    int           `yaml:"send_burst"`
	} `yaml:"channel"`

	Capture struct {
		InputFormat string `yaml:"input_format"`
		Input       string `yaml:"input"`
		SampleRate  int    `yaml:"sample_rate"`
		Channels    int    `yaml:"channels"`
		ChunkSize   int    `yaml:"chunk_size"`
	} `yaml:"capture"`

	Media struct {
		Enabled    bool `yaml:"enabled"`
		ICEServers []struct {
			URLs       []string `yaml:"urls"`
			Username   string   `yaml:"username,omitempty"`
			Credential string   `yaml:"credential,omitempty"`
		} `yaml:"ice_servers"`
	} `yaml:"media"`

	Monitoring struct {
		Interval          time.Duration `yaml:"interval"`
		PrometheusEnabled bool          `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		Token string `yaml:"token"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`
		HTTP    struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"`
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}

	if c.Session.URL == "" {
		return fmt.Errorf("session.url must not be empty")
	}
	if c.Session.DialTimeout <= 0 {
		return fmt.Errorf("session.dial_timeout must be > 0")
	}
	if c.Session.Reconnect.Enabled {
		if c.Session.Reconnect.MaxAttempts <= 0 {
			return fmt.Errorf("session.reconnect.max_attempts must be > 0 when reconnect is enabled")
		}
		if c.Session.Reconnect.InitialDelay <= 0 {
			return fmt.Errorf("session.reconnect.initial_delay must be > 0 when reconnect is enabled")
		}
		if c.Session.Reconnect.MaxDelay < c.Session.Reconnect.InitialDelay {
			return fmt.Errorf("session.reconnect.max_delay must be >= initial_delay")
		}
		if c.Session.Reconnect.Multiplier < 1.0 {
			return fmt.Errorf("session.reconnect.multiplier must be >= 1.0")
		}
	}

	if c.Channel.PingInterval <= 0 {
		return fmt.Errorf("channel.ping_interval must be > 0")
	}
	if c.Channel.PongTimeout <= c.Channel.PingInterval {
		return fmt.Errorf("channel.pong_timeout must be > ping_interval")
	}
	if c.Channel.SendRate <= 0 {
		return fmt.Errorf("channel.send_rate must be > 0")
	}

	if c.Capture.SampleRate <= 0 {
		return fmt.Errorf("capture.sample_rate must be > 0")
	}
	if c.Capture.Channels <= 0 {
		return fmt.Errorf("capture.channels must be > 0")
	}
	if c.Capture.ChunkSize <= 0 {
		return fmt.Errorf("capture.chunk_size must be > 0")
	}

	if c.Monitoring.Interval <= 0 {
		return fmt.Errorf("monitoring.interval must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when enabled")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Session.URL = "ws://localhost:8081/ws"
	cfg.Session.DialTimeout = 15 * time.Second
	cfg.Session.Reconnect.Enabled = true
	cfg.Session.Reconnect.MaxAttempts = 5
	cfg.Session.Reconnect.InitialDelay = time.Second
	cfg.Session.Reconnect.MaxDelay = 30 * time.Second
	cfg.Session.Reconnect.Multiplier = 2.0
	cfg.Session.Reconnect.Jitter = true

	cfg.Channel.PingInterval = 30 * time.Second
	cfg.Channel.PongTimeout = 60 * time.Second
	cfg.Channel.WriteTimeout = 10 * time.Second
	cfg.Channel.SendRate = 20
	cfg.Channel.SendBurst = 40

	cfg.Capture.InputFormat = "pulse"
	cfg.Capture.Input = "default"
	cfg.Capture.SampleRate = 48000
	cfg.Capture.Channels = 1
	cfg.Capture.ChunkSize = 4096

	cfg.Media.Enabled = false

	cfg.Monitoring.Interval = 2 * time.Second
	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("VOICELINK_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if url := os.Getenv("VOICELINK_SESSION_URL"); url != "" {
		c.Session.URL = url
	}
	if level := os.Getenv("VOICELINK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if token := os.Getenv("VOICELINK_AUTH_TOKEN"); token != "" {
		c.Auth.Token = token
	}
	if addr := os.Getenv("VOICELINK_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}
