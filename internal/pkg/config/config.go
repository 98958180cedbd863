package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultBaseURL        = "https://api.melcloudhome.com"
	DefaultPollInterval   = 60 * time.Second
	DefaultDebounceWindow = 2 * time.Second
	DefaultStaleAfter     = 3
	DefaultListenAddress  = "0.0.0.0:8000"
)

type Config struct {
	MelCloud *MelCloudConfig
	Mqtt     *MqttConfig
	Server   *ServerConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type MelCloudConfig struct {
	BaseURL  string `env:"MELCLOUD_BASE_URL" envDefault:"https://api.melcloudhome.com"`
	Username string `env:"MELCLOUD_USERNAME"`
	Password string `env:"MELCLOUD_PASSWORD"`

	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	DebounceWindow time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"2s"`
	StaleAfter     int           `env:"STALE_AFTER" envDefault:"3"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	ClientID string `env:"MQTT_CLIENT_ID" envDefault:"melcloudhome"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

// Enabled reports whether an MQTT broker has been configured at all; the
// publisher is optional.
func (c *MqttConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

type ServerConfig struct {
	ListenAddress string `env:"LISTEN_ADDRESS" envDefault:"0.0.0.0:8000"`
}

// FromEnv builds a Config purely from environment variables, the flagless
// path for container deployments.
func FromEnv() (*Config, error) {
	cfg := &Config{
		MelCloud: &MelCloudConfig{},
		Mqtt:     &MqttConfig{},
		Server:   &ServerConfig{},
	}
	for _, target := range []any{cfg, cfg.MelCloud, cfg.Mqtt, cfg.Server} {
		if err := env.Parse(target); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MelCloud == nil {
		return errors.New("melcloud configuration missing")
	}
	if c.MelCloud.Username == "" || c.MelCloud.Password == "" {
		return errors.New("melcloud credentials missing")
	}
	if c.MelCloud.BaseURL == "" {
		c.MelCloud.BaseURL = DefaultBaseURL
	}
	if c.MelCloud.PollInterval <= 0 {
		c.MelCloud.PollInterval = DefaultPollInterval
	}
	if c.MelCloud.PollInterval < time.Second {
		return fmt.Errorf("poll interval %s below 1s would hammer the cloud", c.MelCloud.PollInterval)
	}
	if c.MelCloud.DebounceWindow <= 0 {
		c.MelCloud.DebounceWindow = DefaultDebounceWindow
	}
	if c.MelCloud.StaleAfter <= 0 {
		c.MelCloud.StaleAfter = DefaultStaleAfter
	}
	if c.Server != nil && c.Server.ListenAddress == "" {
		c.Server.ListenAddress = DefaultListenAddress
	}
	return nil
}
