package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full agent configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend" mapstructure:"backend"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	State   StateConfig   `yaml:"state" mapstructure:"state"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Agent   AgentConfig   `yaml:"agent" mapstructure:"agent"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// BackendConfig configures the exposure notification backend client.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// EngineConfig configures the platform exposure engine bridge.
type EngineConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// StateConfig configures the agent state store.
type StateConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig configures the downloaded key set cache.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// NotifyConfig configures user-facing notifications.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// AgentConfig configures the long-running agent loop.
type AgentConfig struct {
	DefaultIntervalMinutes      int `yaml:"default_interval_minutes" mapstructure:"default_interval_minutes"`
	OverdueCheckIntervalMinutes int `yaml:"overdue_check_interval_minutes" mapstructure:"overdue_check_interval_minutes"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("backend.user_agent", "exposure-agent/1.0")
	v.SetDefault("engine.base_url", "http://127.0.0.1:18913")
	v.SetDefault("state.driver", "sqlite")
	v.SetDefault("state.path", "exposure-agent.db")
	v.SetDefault("cache.dir", "keyset-cache")
	v.SetDefault("agent.default_interval_minutes", 240)
	v.SetDefault("agent.overdue_check_interval_minutes", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode. Modes:
// "process" for one-shot processing, "agent" for the daemon.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Backend.BaseURL == "" {
		problems = append(problems, "backend.base_url is required")
	}

	switch c.State.Driver {
	case "sqlite":
		if c.State.Path == "" {
			problems = append(problems, "state.path is required for the sqlite driver")
		}
	case "postgres":
		if c.State.DatabaseURL == "" {
			problems = append(problems, "state.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "state.driver must be sqlite or postgres")
	}

	switch mode {
	case "process", "record", "reset", "status":
	case "agent":
		if c.Agent.DefaultIntervalMinutes <= 0 {
			problems = append(problems, "agent.default_interval_minutes must be > 0")
		}
		if c.Agent.OverdueCheckIntervalMinutes <= 0 {
			problems = append(problems, "agent.overdue_check_interval_minutes must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
