package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Location LocationConfig `mapstructure:"location"`
	Sun      SunConfig      `mapstructure:"sun"`
	Sky      SkyConfig      `mapstructure:"sky"`
	Session  SessionConfig  `mapstructure:"session"`
	API      APIConfig      `mapstructure:"api"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Database DatabaseConfig `mapstructure:"database"`
}

type LocationConfig struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Timezone  string  `mapstructure:"timezone"`
}

// TimeLocation loads the configured timezone.
func (l LocationConfig) TimeLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", l.Timezone, err)
	}
	return loc, nil
}

type SunConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type SkyConfig struct {
	Blend string `mapstructure:"blend"`
}

type SessionConfig struct {
	Follow       bool          `mapstructure:"follow"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type APIConfig struct {
	Port        int      `mapstructure:"port"`
	Enabled     bool     `mapstructure:"enabled"`
	RateLimit   float64  `mapstructure:"rate_limit"`
	RateBurst   int      `mapstructure:"rate_burst"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

func setDefaults(v *viper.Viper) {
	// San Francisco.
	v.SetDefault("location.latitude", 37.7749)
	v.SetDefault("location.longitude", -122.4194)
	v.SetDefault("location.timezone", "America/Los_Angeles")
	v.SetDefault("sun.provider", "sunrisesunset")
	v.SetDefault("sun.base_url", "https://api.sunrisesunset.io/json")
	v.SetDefault("sun.timeout", "10s")
	v.SetDefault("sky.blend", "rgb")
	v.SetDefault("session.follow", false)
	v.SetDefault("session.tick_interval", "1m")
	v.SetDefault("api.port", 8046)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.rate_limit", 20)
	v.SetDefault("api.rate_burst", 40)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "sky-gradient")
	v.SetDefault("mqtt.client_id", "sky-gradient")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "./sky-gradient.db")
	v.SetDefault("database.retention", "168h")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sky-gradient")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.Location.TimeLocation(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
