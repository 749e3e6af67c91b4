package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/gatekeeper/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment  DeploymentConfig  `validate:"required"`
	Logging     LoggingConfig     `validate:"required"`
	Postgres    PostgresConfig    `validate:"required"`
	Cache       CacheConfig       `validate:"required"`
	Entitlement EntitlementConfig `validate:"required"`
	Usage       UsageConfig       `validate:"required"`
	Budget      BudgetConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type CacheConfig struct {
	Enabled         bool
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

type EntitlementConfig struct {
	// VersionPolicy controls whether evaluation resolves against the plan
	// version pinned on the subscription or always the latest published one
	VersionPolicy types.EntitlementVersionPolicy `validate:"required,oneof=pinned latest"`
	// CacheTTL bounds how long a merged effective entitlement may be served
	// from cache before re-resolution
	CacheTTL time.Duration
}

type UsageConfig struct {
	// ReportMaxRetries bounds retries of transient store failures on the
	// report path; evaluation never retries, it fails safe instead
	ReportMaxRetries uint64
	// ReportRetryInterval is the initial backoff interval between retries
	ReportRetryInterval time.Duration
	// JanitorInterval is how often expired idempotency keys are pruned
	JanitorInterval time.Duration
	// IdempotencyRetention is how long seen idempotency keys are kept; it
	// bounds the redelivery window that can be deduplicated
	IdempotencyRetention time.Duration
}

type BudgetConfig struct {
	Enabled bool
	// LookupTimeout bounds the external spend lookup; on expiry the
	// evaluator degrades to a fail-safe deny
	LookupTimeout time.Duration
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gatekeeper")

	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.maxopenconns", 10)
	v.SetDefault("postgres.maxidleconns", 5)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.defaultttl", "30m")
	v.SetDefault("cache.cleanupinterval", "1h")
	v.SetDefault("entitlement.versionpolicy", string(types.VersionPolicyPinned))
	v.SetDefault("entitlement.cachettl", "5m")
	v.SetDefault("usage.reportmaxretries", 3)
	v.SetDefault("usage.reportretryinterval", "100ms")
	v.SetDefault("usage.janitorinterval", "1h")
	v.SetDefault("usage.idempotencyretention", "168h")
	v.SetDefault("budget.enabled", true)
	v.SetDefault("budget.lookuptimeout", "2s")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests. This is useful for running scripts or other non-server binaries.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
		Cache: CacheConfig{
			Enabled:         true,
			DefaultTTL:      30 * time.Minute,
			CleanupInterval: time.Hour,
		},
		Entitlement: EntitlementConfig{
			VersionPolicy: types.VersionPolicyPinned,
			CacheTTL:      5 * time.Minute,
		},
		Usage: UsageConfig{
			ReportMaxRetries:     3,
			ReportRetryInterval:  100 * time.Millisecond,
			JanitorInterval:      time.Hour,
			IdempotencyRetention: 7 * 24 * time.Hour,
		},
		Budget: BudgetConfig{
			Enabled:       true,
			LookupTimeout: 2 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
