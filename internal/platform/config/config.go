package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	strutil "clockgate/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type Auth struct {
	JWTSigningKey string        `mapstructure:"jwt_signing_key"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage selects the persistence backend. Driver is "memory" or "postgres";
// Client picks the postgres database/sql driver, "pq" or "pgx".
type Storage struct {
	Driver      string `mapstructure:"driver"`
	Client      string `mapstructure:"client"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	MaxOpenConn int    `mapstructure:"max_open_conns"`
}

// RedisConfig is optional; an empty URL keeps challenges and sessions in memory.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Audit controls how audit events reach the store. AsyncBuffer > 0 queues
// events in memory and appends them from a background goroutine; 0 appends
// inline with the request.
type Audit struct {
	AsyncBuffer int `mapstructure:"async_buffer"`
}

type Kafka struct {
	Brokers       string        `mapstructure:"brokers"`
	AuditTopic    string        `mapstructure:"audit_topic"`
	Partitions    int32         `mapstructure:"partitions"`
	Replication   int16         `mapstructure:"replication"`
	RelayInterval time.Duration `mapstructure:"relay_interval"`
	RelayBatch    int           `mapstructure:"relay_batch"`
}

// BrokerList splits the comma separated broker setting.
func (k Kafka) BrokerList() []string {
	return strutil.SplitList(k.Brokers)
}

// Policy holds the business constants services depend on.
type Policy struct {
	MaxDevices               int           `mapstructure:"max_devices"`
	MaxLostWindowDays        int           `mapstructure:"max_lost_window_days"`
	ChallengeTTL             time.Duration `mapstructure:"challenge_ttl"`
	LocationTTL              time.Duration `mapstructure:"location_ttl"`
	FullDayHours             float64       `mapstructure:"full_day_hours"`
	StandardDailyHours       float64       `mapstructure:"standard_daily_hours"`
	BurnoutOvertimeHours     float64       `mapstructure:"burnout_overtime_hours"`
	Timezone                 string        `mapstructure:"timezone"`
	AllowMultipleCredentials bool          `mapstructure:"allow_multiple_credentials"`
}

// Location resolves the policy timezone used for late cutoffs and calendar days.
func (p Policy) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

type Stations struct {
	File string `mapstructure:"file"`
}

// RateLimit budgets are requests per minute per identity.
type RateLimit struct {
	Enabled            bool `mapstructure:"enabled"`
	ClockPerMinute     int  `mapstructure:"clock_per_minute"`
	ChallengePerMinute int  `mapstructure:"challenge_per_minute"`
	WritePerMinute     int  `mapstructure:"write_per_minute"`
	ReadPerMinute      int  `mapstructure:"read_per_minute"`
}

type Config struct {
	Server    Server      `mapstructure:"server"`
	Auth      Auth        `mapstructure:"auth"`
	Log       Log         `mapstructure:"log"`
	Storage   Storage     `mapstructure:"storage"`
	Redis     RedisConfig `mapstructure:"redis"`
	Audit     Audit       `mapstructure:"audit"`
	Kafka     Kafka       `mapstructure:"kafka"`
	Policy    Policy      `mapstructure:"policy"`
	Stations  Stations    `mapstructure:"stations"`
	RateLimit RateLimit   `mapstructure:"rate_limit"`
}

const envPrefix = "CLOCKGATE"

const devSigningKey = "dev-secret-key-change-in-production"

// Defaults returns the baseline settings applied before the config file and env.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                       ":8080",
		"server.read_header_timeout":        5 * time.Second,
		"server.shutdown_timeout":           10 * time.Second,
		"auth.jwt_signing_key":              devSigningKey,
		"auth.issuer":                       "clockgate",
		"auth.token_ttl":                    12 * time.Hour,
		"log.level":                         "info",
		"log.format":                        "json",
		"storage.driver":                    "memory",
		"storage.client":                    "pq",
		"storage.postgres_dsn":              "",
		"storage.max_open_conns":            10,
		"redis.url":                         "",
		"redis.pool_size":                   10,
		"redis.min_idle_conns":              2,
		"redis.dial_timeout":                5 * time.Second,
		"redis.read_timeout":                3 * time.Second,
		"redis.write_timeout":               3 * time.Second,
		"audit.async_buffer":                0,
		"kafka.brokers":                     "",
		"kafka.audit_topic":                 "clockgate.audit",
		"kafka.partitions":                  3,
		"kafka.replication":                 1,
		"kafka.relay_interval":              2 * time.Second,
		"kafka.relay_batch":                 100,
		"policy.max_devices":                2,
		"policy.max_lost_window_days":       30,
		"policy.challenge_ttl":              2 * time.Minute,
		"policy.location_ttl":               10 * time.Minute,
		"policy.full_day_hours":             7.0,
		"policy.standard_daily_hours":       8.0,
		"policy.burnout_overtime_hours":     20.0,
		"policy.timezone":                   "Africa/Nairobi",
		"policy.allow_multiple_credentials": false,
		"stations.file":                     "stations.yaml",
		"rate_limit.enabled":                true,
		"rate_limit.clock_per_minute":       10,
		"rate_limit.challenge_per_minute":   10,
		"rate_limit.write_per_minute":       30,
		"rate_limit.read_per_minute":        120,
	}
}

// Load reads defaults, then the optional config file, then CLOCKGATE_* env vars.
// An empty path searches for config.yaml in ./ and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		if c.Storage.Client != "pq" && c.Storage.Client != "pgx" {
			return fmt.Errorf("unknown storage client %q", c.Storage.Client)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Audit.AsyncBuffer < 0 {
		return errors.New("audit.async_buffer must not be negative")
	}
	if c.Policy.MaxDevices < 1 {
		return errors.New("policy.max_devices must be at least 1")
	}
	if c.Policy.MaxLostWindowDays < 1 {
		return errors.New("policy.max_lost_window_days must be at least 1")
	}
	if c.Policy.ChallengeTTL <= 0 || c.Policy.LocationTTL <= 0 {
		return errors.New("policy ttls must be positive")
	}
	if c.Policy.FullDayHours <= 0 || c.Policy.StandardDailyHours <= 0 {
		return errors.New("policy hour thresholds must be positive")
	}
	if _, err := c.Policy.Location(); err != nil {
		return err
	}
	if c.RateLimit.Enabled && min(c.RateLimit.ClockPerMinute, c.RateLimit.ChallengePerMinute,
		c.RateLimit.WritePerMinute, c.RateLimit.ReadPerMinute) < 1 {
		return errors.New("rate_limit budgets must be at least 1 when enabled")
	}
	return nil
}

// UsingDevSigningKey reports whether the JWT key was left at its default.
func (c *Config) UsingDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}
