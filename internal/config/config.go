package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full server configuration. It is loaded once in main and
// passed into the components that need it; nothing reads the environment
// after startup.
type Config struct {
	APIPort  int `mapstructure:"apiPort"`
	Database struct {
		Driver     string `mapstructure:"driver"`
		Path       string `mapstructure:"path"`
		DSN        string `mapstructure:"dsn"`
		MaxRetries int    `mapstructure:"maxRetries"`
		RetryDelay int    `mapstructure:"retryDelay"`
	} `mapstructure:"database"`
	Auth struct {
		Secret        string `mapstructure:"secret"`
		TokenTTLHours int    `mapstructure:"tokenTtlHours"`
	} `mapstructure:"auth"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
	S3 struct {
		Endpoint        string `mapstructure:"endpoint"`
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		AccessKeyID     string `mapstructure:"accessKeyId"`
		SecretAccessKey string `mapstructure:"secretAccessKey"`
	} `mapstructure:"s3"`
}

// ErrMissingSecret is returned when no signing secret is configured. The
// server refuses to start rather than fall back to a predictable default.
var ErrMissingSecret = errors.New("auth.secret must be configured (AUTH_SECRET)")

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The config file is optional; env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Warning: could not read config file %s: %v. Using defaults and environment variables.", path, err)
	}

	// Binding the keys explicitly lets AutomaticEnv fill them even when the
	// file does not mention them.
	for _, key := range []string{
		"apiPort",
		"database.driver", "database.path", "database.dsn",
		"database.maxRetries", "database.retryDelay",
		"auth.secret", "auth.tokenTtlHours",
		"cors.allowedOrigins",
		"s3.endpoint", "s3.region", "s3.bucket", "s3.accessKeyId", "s3.secretAccessKey",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
		log.Println("apiPort not specified, using default 8080")
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.Driver == "sqlite3" && cfg.Database.Path == "" {
		cfg.Database.Path = "./data/inkwell.db"
		log.Println("database.path not specified, using default ./data/inkwell.db")
	}
	if cfg.Database.MaxRetries == 0 {
		cfg.Database.MaxRetries = 5
	}
	if cfg.Database.RetryDelay == 0 {
		cfg.Database.RetryDelay = 5
	}

	if cfg.Auth.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	return &cfg, nil
}
