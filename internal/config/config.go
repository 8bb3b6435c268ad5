package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"taskhub/internal/domain"
)

// Config models taskhub.yml.
type Config struct {
	Board struct {
		ShortlistSize int `yaml:"shortlist_size"`
	} `yaml:"board"`
	Session struct {
		TTLMinutes int `yaml:"ttl_minutes"`
	} `yaml:"session"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Log  LogConfig `yaml:"log"`
	Seed struct {
		File string `yaml:"file"`
	} `yaml:"seed"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// WebhookConfig describes an outbound notification hook. An empty Types list
// delivers every notification type.
type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Types          []string `yaml:"types"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

func (w WebhookConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with taskhub config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns Default() if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Board.ShortlistSize <= 0 {
		return fmt.Errorf("config.board.shortlist_size must be positive")
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("config.session.ttl_minutes must be positive")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config.log.level %q is not a log level", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("config.log rotation limits must not be negative")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("config.cache.size must not be negative")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
		for _, typ := range hook.Types {
			switch domain.NotificationType(typ) {
			case domain.NotificationReminder, domain.NotificationUpdate, domain.NotificationAssignment, domain.NotificationComment:
			default:
				return fmt.Errorf("config.webhooks[%d] has unknown notification type %q", i, typ)
			}
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "taskhub.yml")
}

// SeedPath resolves seed.file against the workspace. Empty means the embedded
// data set.
func (c *Config) SeedPath(workspace string) string {
	if c.Seed.File == "" || filepath.IsAbs(c.Seed.File) {
		return c.Seed.File
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, c.Seed.File)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Missing keys keep
// their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `board:
  shortlist_size: 5

session:
  ttl_minutes: 480

server:
  addr: 127.0.0.1:8080
  base_path: /v0

log:
  level: info
  # file: taskhub.log
  max_size_mb: 10
  max_backups: 3
  max_age_days: 28
  compress: false

seed:
  # file: seed.yml

cache:
  size: 128

# webhooks:
#   - url: https://example.com/hooks/taskhub
#     types: [assignment, comment]
#     secret: change-me
#     timeout_seconds: 5
`
