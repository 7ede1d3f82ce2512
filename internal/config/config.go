package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Backend kinds
const (
	BackendWebhook = "webhook"
	BackendLLM     = "llm"
)

// Config holds the application configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Backend  BackendConfig  `mapstructure:"backend"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Store    StoreConfig    `mapstructure:"store"`
	History  HistoryConfig  `mapstructure:"history"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// BackendConfig selects and configures the conversation backend
type BackendConfig struct {
	Kind         string        `mapstructure:"kind" validate:"oneof=webhook llm"`
	URL          string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
	GreetCommand string        `mapstructure:"greet_command" validate:"required"`
}

// LLMConfig holds the LLM configuration used by the llm backend kind
type LLMConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// StoreConfig holds the admin document store configuration
type StoreConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	AuthToken string        `mapstructure:"auth_token"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// HistoryConfig holds transcript persistence settings. An empty DBPath keeps
// history in memory.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// CalendarConfig holds the booking calendar settings
type CalendarConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the calendar timezone, falling back to local time.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("backend.kind", BackendWebhook)
	v.SetDefault("backend.url", "http://localhost:5005/webhooks/rest/webhook")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.greet_command", "/greet")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("store.timeout", 15*time.Second)
}

// Load loads the configuration from config.yaml (or the file named by
// CONFIG_PATH), TRIAGE_* environment variables and the given flags. A missing
// config file is not an error; defaults apply.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, oops.In("config").Wrapf(err, "failed to bind flags")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, oops.In("config").Wrapf(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "failed to parse config")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "failed to validate config")
	}
	if cfg.Backend.Kind == BackendWebhook && cfg.Backend.URL == "" {
		return nil, oops.In("config").Errorf("backend.url is required for the webhook backend")
	}

	return &cfg, nil
}
