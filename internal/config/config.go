package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "PEERTUBE"
	defaultHTTPAddress   = "0.0.0.0:9000"
	defaultDatabasePath  = "peertube-federation.db"
	defaultLogLevel      = "info"
	defaultTokenTTLMin   = 30
	defaultAutoAcceptRed = false
)

// AppConfig captures runtime configuration for the federation service.
type AppConfig struct {
	HTTPAddress          string
	DatabasePath         string
	LogLevel             string
	AdminSecret          string
	AdminTokenTTL        time.Duration
	RedundancyAutoAccept bool
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("admin.token_ttl_minutes", defaultTokenTTLMin)
	configViper.SetDefault("redundancy.auto_accept", defaultAutoAcceptRed)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          configViper.GetString("http.address"),
		DatabasePath:         configViper.GetString("database.path"),
		LogLevel:             configViper.GetString("log.level"),
		AdminSecret:          configViper.GetString("admin.secret"),
		AdminTokenTTL:        time.Duration(configViper.GetInt("admin.token_ttl_minutes")) * time.Minute,
		RedundancyAutoAccept: configViper.GetBool("redundancy.auto_accept"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AdminSecret) == "" {
		return fmt.Errorf("admin.secret is required")
	}
	if c.AdminTokenTTL <= 0 {
		return fmt.Errorf("admin.token_ttl_minutes must be positive")
	}
	return nil
}
