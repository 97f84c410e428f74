// This file defines the configuration structure for the application.
package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port    int `mapstructure:"port"`
	Backend struct {
		// BaseURL is shared by the generation endpoint and the progress stream.
		BaseURL      string `mapstructure:"base_url"`
		GeneratePath string `mapstructure:"generate_path"`
		ProgressPath string `mapstructure:"progress_path"`
		// Timeout bounds a single generation request, in seconds.
		Timeout int `mapstructure:"timeout"`
	} `mapstructure:"backend"`
	Sessions struct {
		IdleTimeout   int `mapstructure:"idle_timeout"`   // minutes
		PruneInterval int `mapstructure:"prune_interval"` // minutes
	} `mapstructure:"sessions"`
	Telemetry struct {
		Stdout bool `mapstructure:"stdout"`
	} `mapstructure:"telemetry"`
}

// RequestTimeout returns the generation request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

// IdleTimeout returns how long an untouched console is kept alive.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Sessions.IdleTimeout) * time.Minute
}

// Loader reads config.yml from a set of search paths, with environment
// variable overrides. Each Loader owns its own viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader searching the given directories for config.yml.
// With no paths it looks in the current directory.
func NewLoader(paths ...string) *Loader {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// README_CONSOLE_BACKEND_BASE_URL overrides `backend.base_url`, and so on.
	v.SetEnvPrefix("README_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.generate_path", "/generate-readme")
	v.SetDefault("backend.progress_path", "/progress-stream")
	v.SetDefault("backend.timeout", 300)
	v.SetDefault("sessions.idle_timeout", 30)
	v.SetDefault("sessions.prune_interval", 5)
	v.SetDefault("telemetry.stdout", false)

	return &Loader{v: v}
}

// Viper exposes the underlying instance so callers can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file (if any) and unmarshals the merged settings.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; use defaults and env.
	}
	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	return &cfg, nil
}

// Watch re-reads the config file whenever it changes on disk and passes the
// new settings to onChange. It is a no-op when no config file was loaded.
func (l *Loader) Watch(onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %s (%s)", e.Name, e.Op)
		cfg, err := l.unmarshal()
		if err != nil {
			log.Printf("Warning: could not reload configuration: %v", err)
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}
