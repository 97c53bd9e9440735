package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Store  StoreConfig  `mapstructure:"store"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Index  IndexConfig  `mapstructure:"index"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port string    `mapstructure:"port"`
	TLS  TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds the table backend configuration.
type DBConfig struct {
	Driver  string `mapstructure:"driver"` // "sqlite3", "sqlite", "mysql" or "memory"
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

// StoreConfig holds content store configuration.
type StoreConfig struct {
	// Wiki is the partition key shared by every wiki-scoped row.
	Wiki string `mapstructure:"wiki"`
}

// CacheConfig holds local read cache configuration.
type CacheConfig struct {
	PageContentSize int `mapstructure:"pageContentSize"`
}

// IndexConfig holds search index configuration.
type IndexConfig struct {
	BatchSize int `mapstructure:"batchSize"`
}

// AuthConfig holds authorization configuration for the HTTP API.
type AuthConfig struct {
	Model       string `mapstructure:"model"`       // path to a casbin model; empty uses the built-in one
	PolicyStore string `mapstructure:"policyStore"` // "memory" or "sql"
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "wiki.db")
	v.SetDefault("db.migrate", true)
	v.SetDefault("store.wiki", "root")
	v.SetDefault("cache.pageContentSize", 512)
	v.SetDefault("index.batchSize", 100)
	v.SetDefault("auth.model", "")
	v.SetDefault("auth.policyStore", "memory")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New(), true)
}

func load(v *viper.Viper, searchPaths bool) (*Config, error) {
	SetDefaults(v)

	if searchPaths {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/wiki-store/")
		v.AddConfigPath("$HOME/.wiki-store")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				// Config file was found but another error was produced
				return nil, err
			}
			// Config file not found; proceed with defaults and env vars
		}
	}

	v.SetEnvPrefix("WIKI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
