package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Downstream DownstreamConfig `mapstructure:"downstream"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"` // debug, release, test
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrationURL returns the DSN in the form expected by the migrate pgx/v5 driver.
func (d DatabaseConfig) MigrationURL() string {
	return "pgx5://" + strings.TrimPrefix(d.DSN(), "postgres://")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GatewayConfig configures the Wompi transaction lookup.
type GatewayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"` // 0 disables caching of final states
	EventsSecret   string        `mapstructure:"events_secret"`
}

// DownstreamConfig configures the EVA accounting endpoints.
type DownstreamConfig struct {
	UpdateURL     string        `mapstructure:"update_url"`
	GenerateURL   string        `mapstructure:"generate_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CollectMethod string        `mapstructure:"collect_method"`
	Timezone      string        `mapstructure:"timezone"`
}

// ReconcileConfig tunes reference decoding and history locking.
type ReconcileConfig struct {
	SeriesPrefixes []string      `mapstructure:"series_prefixes"`
	NotifyMarker   string        `mapstructure:"notify_marker"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	LockWait       time.Duration `mapstructure:"lock_wait"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AdminConfig holds the single back-office account.
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // argon2id encoded
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PRC_ (Payment ReConciler).
// Nested keys use underscore: PRC_DATABASE_HOST, PRC_GATEWAY_BASE_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.environment", "development")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "reconciler")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("gateway.base_url", "https://sandbox.wompi.co/v1")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.max_retries", 3)
	v.SetDefault("gateway.initial_backoff", "200ms")
	v.SetDefault("gateway.max_backoff", "2s")
	v.SetDefault("gateway.cache_ttl", "5m")
	v.SetDefault("gateway.events_secret", "")
	v.SetDefault("downstream.update_url", "")
	v.SetDefault("downstream.generate_url", "")
	v.SetDefault("downstream.timeout", "15s")
	v.SetDefault("downstream.collect_method", "BANCOLOMBIA_COLLECT")
	v.SetDefault("downstream.timezone", "America/Bogota")
	v.SetDefault("reconcile.series_prefixes", []string{"FAC"})
	v.SetDefault("reconcile.notify_marker", "_APP_EVA_")
	v.SetDefault("reconcile.lock_ttl", "30s")
	v.SetDefault("reconcile.lock_wait", "10s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "8h")
	v.SetDefault("jwt.issuer", "payment-reconciler")
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// PRC_GATEWAY_BASE_URL -> gateway.base_url
	v.SetEnvPrefix("PRC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
