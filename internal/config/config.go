package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
	Auth       AuthConfig       `yaml:"auth"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	DKIM       DKIMConfig       `yaml:"dkim"`
	Engine     EngineConfig     `yaml:"engine"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type DeadLetterConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	// Bcrypt hash of the API key, generated with `mailfleet apikey`
	APIKeyHash string `yaml:"api_key_hash"`
}

type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	STARTTLS bool          `yaml:"starttls"`
	Hostname string        `yaml:"hostname"`
	Timeout  time.Duration `yaml:"timeout"`
}

type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

type EngineConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TrackingConfig struct {
	// BaseURL is the externally reachable address used for open/click
	// tracking links, e.g. https://mail.example.com
	BaseURL string `yaml:"base_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/mailfleet/app.db"
	}
	if cfg.DeadLetter.Path == "" {
		cfg.DeadLetter.Path = "/var/lib/mailfleet/deadletter.db"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.Timeout == 0 {
		cfg.SMTP.Timeout = 30 * time.Second
	}
	if cfg.SMTP.Hostname == "" {
		cfg.SMTP.Hostname, _ = os.Hostname()
	}
	if cfg.Engine.PollInterval == 0 {
		cfg.Engine.PollInterval = time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if cfg.Auth.APIKeyHash == "" {
		return fmt.Errorf("auth.api_key_hash is required (generate with `mailfleet apikey`)")
	}
	if cfg.DKIM.Enabled {
		if cfg.DKIM.Domain == "" {
			return fmt.Errorf("dkim.domain is required when DKIM is enabled")
		}
		if cfg.DKIM.Selector == "" {
			return fmt.Errorf("dkim.selector is required when DKIM is enabled")
		}
		if cfg.DKIM.KeyFile == "" {
			return fmt.Errorf("dkim.key_file is required when DKIM is enabled")
		}
	}
	return nil
}
