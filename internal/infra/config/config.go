package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arklim/social-platform-lockout/internal/core/domain"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	FailurePrefix string `mapstructure:"failure_prefix"`
	// FailureTTL expires dormant failure records; 0 keeps them until cleared.
	FailureTTL time.Duration `mapstructure:"failure_ttl"`
}

// KafkaSettings configures the Kafka producer
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// LockoutSettings carries the event queue sizing and the realm defaults
// applied when a realm has no stored overrides. The default values mirror the
// usual brute-force protection defaults: 12h quarantine window, 60s wait
// increment per 30 failures, 1s quick-login window, 900s wait cap.
type LockoutSettings struct {
	QueueCapacity int           `mapstructure:"queue_capacity"`
	ApplyTimeout  time.Duration `mapstructure:"apply_timeout"`

	MaxDeltaTimeSeconds          int   `mapstructure:"max_delta_time_seconds"`
	WaitIncrementSeconds         int   `mapstructure:"wait_increment_seconds"`
	QuickLoginCheckMillis        int64 `mapstructure:"quick_login_check_millis"`
	MinimumQuickLoginWaitSeconds int   `mapstructure:"minimum_quick_login_wait_seconds"`
	MaxFailureWaitSeconds        int   `mapstructure:"max_failure_wait_seconds"`
	FailureFactor                int   `mapstructure:"failure_factor"`
	PermanentLockoutEnabled      bool  `mapstructure:"permanent_lockout_enabled"`
	MaxTemporaryLockouts         int   `mapstructure:"max_temporary_lockouts"`
}

// RealmDefaults converts the configured defaults into a realm lockout config.
func (s LockoutSettings) RealmDefaults() domain.RealmLockoutConfig {
	return domain.RealmLockoutConfig{
		MaxDeltaTimeSeconds:          s.MaxDeltaTimeSeconds,
		WaitIncrementSeconds:         s.WaitIncrementSeconds,
		QuickLoginCheckMillis:        s.QuickLoginCheckMillis,
		MinimumQuickLoginWaitSeconds: s.MinimumQuickLoginWaitSeconds,
		MaxFailureWaitSeconds:        s.MaxFailureWaitSeconds,
		FailureFactor:                s.FailureFactor,
		PermanentLockoutEnabled:      s.PermanentLockoutEnabled,
		MaxTemporaryLockouts:         s.MaxTemporaryLockouts,
	}
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("LOCKOUT")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.failure_prefix",
		"redis.failure_ttl",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"lockout.queue_capacity",
		"lockout.apply_timeout",
		"lockout.max_delta_time_seconds",
		"lockout.wait_increment_seconds",
		"lockout.quick_login_check_millis",
		"lockout.minimum_quick_login_wait_seconds",
		"lockout.max_failure_wait_seconds",
		"lockout.failure_factor",
		"lockout.permanent_lockout_enabled",
		"lockout.max_temporary_lockouts",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the protector cannot run with. The failure factor
// guard lives here so a misconfigured zero never reaches the wait computation.
func (c *AppConfig) Validate() error {
	if err := c.Lockout.RealmDefaults().Validate(); err != nil {
		return fmt.Errorf("lockout defaults: %w", err)
	}
	if c.Lockout.QueueCapacity <= 0 {
		return fmt.Errorf("lockout queue capacity must be positive, got %d", c.Lockout.QueueCapacity)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lockout-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "lockout")
	v.SetDefault("postgres.password", "lockout_password")
	v.SetDefault("postgres.database", "lockout")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.failure_prefix", "lockout:failure")
	v.SetDefault("redis.failure_ttl", "0")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "auth")
	v.SetDefault("kafka.async", true)

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "lockout-service")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("lockout.queue_capacity", 8192)
	v.SetDefault("lockout.apply_timeout", "10s")
	v.SetDefault("lockout.max_delta_time_seconds", 43200)
	v.SetDefault("lockout.wait_increment_seconds", 60)
	v.SetDefault("lockout.quick_login_check_millis", 1000)
	v.SetDefault("lockout.minimum_quick_login_wait_seconds", 60)
	v.SetDefault("lockout.max_failure_wait_seconds", 900)
	v.SetDefault("lockout.failure_factor", 30)
	v.SetDefault("lockout.permanent_lockout_enabled", false)
	v.SetDefault("lockout.max_temporary_lockouts", 0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "LOCKOUT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
