package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the process needs, resolved from a config file
// and SHOPNET_* environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig carries the Postgres connection string.
type DatabaseConfig struct {
	DSN string
}

// AuthConfig carries the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string
}

// Load resolves configuration with the precedence: environment variables,
// then the optional config file, then built-in defaults.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SHOPNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, errors.New("config: database.dsn is required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return Config{}, errors.New("config: auth.jwt_secret is required")
	}

	return cfg, nil
}
