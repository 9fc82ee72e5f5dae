// Package config provides configuration management for go-tastetalk.
// Values come from an optional config.yaml plus TASTETALK_* environment
// variable overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server Server `mapstructure:"server"`
	Google Google `mapstructure:"google"`
	Voice  Voice  `mapstructure:"voice"`
	Upload Upload `mapstructure:"upload"`
	Avatar Avatar `mapstructure:"avatar"`
	Log    Log    `mapstructure:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Google holds credentials for the Google services the relays call.
type Google struct {
	AIKey   string `mapstructure:"ai_key"`
	MapsKey string `mapstructure:"maps_key"`
}

// Voice configures the VOICEVOX relay.
type Voice struct {
	Endpoint       string        `mapstructure:"endpoint"`
	DefaultSpeaker int           `mapstructure:"default_speaker"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Upload configures image upload limits.
type Upload struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// Avatar configures the avatar viewer.
type Avatar struct {
	ModelPath string `mapstructure:"model_path"`
	IdlePath  string `mapstructure:"idle_path"`
}

// Log configures logging.
type Log struct {
	Level string `mapstructure:"level"`
}

// Default returns sensible default configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:           "3001",
			RequestTimeout: 30 * time.Second,
		},
		Voice: Voice{
			Endpoint:       "http://localhost:50021",
			DefaultSpeaker: 4,
			Timeout:        30 * time.Second,
		},
		Upload: Upload{
			MaxFileSize: 10 << 20, // 10MB
		},
		Avatar: Avatar{
			ModelPath: "models/misuzu.vrm",
			IdlePath:  "models/idle_loop.vrma",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads configuration from file and environment.
// A missing config file is not an error; defaults and env vars apply.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/tastetalk")

	v.SetEnvPrefix("TASTETALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.request_timeout", cfg.Server.RequestTimeout)
	v.SetDefault("voice.endpoint", cfg.Voice.Endpoint)
	v.SetDefault("voice.default_speaker", cfg.Voice.DefaultSpeaker)
	v.SetDefault("voice.timeout", cfg.Voice.Timeout)
	v.SetDefault("upload.max_file_size", cfg.Upload.MaxFileSize)
	v.SetDefault("avatar.model_path", cfg.Avatar.ModelPath)
	v.SetDefault("avatar.idle_path", cfg.Avatar.IdlePath)
	v.SetDefault("log.level", cfg.Log.Level)

	// Env-only keys; bound explicitly so AutomaticEnv sees them without a
	// config file entry.
	_ = v.BindEnv("google.ai_key", "TASTETALK_GOOGLE_AI_KEY", "GOOGLE_AI_API_KEY")
	_ = v.BindEnv("google.maps_key", "TASTETALK_GOOGLE_MAPS_KEY", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("voice.endpoint", "TASTETALK_VOICE_ENDPOINT", "VOICEVOX_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
