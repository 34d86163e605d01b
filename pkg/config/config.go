package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "daybreak"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Notify       NotifyConfig
	Recovery     RecoveryConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DAYBREAK_APP_ENV" default:"dev"`
	Port         string `envconfig:"DAYBREAK_APP_PORT" default:"8350"`
	LogLevel     string `envconfig:"DAYBREAK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DAYBREAK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig points at the embedded sqlite datastore file.
type DBConfig struct {
	Path        string        `envconfig:"DAYBREAK_DB_PATH" default:"daybreak.db"`
	BusyTimeout time.Duration `envconfig:"DAYBREAK_DB_BUSY_TIMEOUT" default:"5s"`
}

// DSN renders the sqlite connection string. WAL keeps the foreground UI and a
// headless recovery process from starving each other on writes.
func (d DBConfig) DSN() string {
	return fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		d.Path,
		d.BusyTimeout.Milliseconds(),
	)
}

// NotifyConfig carries the scheduling pipeline tunables. StaleWindow and
// ClampDelay are deliberately separate knobs.
type NotifyConfig struct {
	MaxTotalAlarms  int           `envconfig:"DAYBREAK_NOTIFY_MAX_TOTAL_ALARMS" default:"480"`
	PlanningHorizon time.Duration `envconfig:"DAYBREAK_NOTIFY_PLANNING_HORIZON" default:"1440h"`
	StaleWindow     time.Duration `envconfig:"DAYBREAK_NOTIFY_STALE_WINDOW" default:"24h"`
	ClampDelay      time.Duration `envconfig:"DAYBREAK_NOTIFY_CLAMP_DELAY" default:"2m"`
	LogCap          int           `envconfig:"DAYBREAK_NOTIFY_LOG_CAP" default:"1200"`
	TaskResyncCap   int           `envconfig:"DAYBREAK_NOTIFY_TASK_RESYNC_CAP" default:"300"`
	HabitResyncCap  int           `envconfig:"DAYBREAK_NOTIFY_HABIT_RESYNC_CAP" default:"400"`
	PruneCap        int           `envconfig:"DAYBREAK_NOTIFY_PRUNE_CAP" default:"50"`
}

// RecoveryConfig drives the periodic reconciliation loop.
type RecoveryConfig struct {
	Interval         time.Duration `envconfig:"DAYBREAK_RECOVERY_INTERVAL" default:"15m"`
	Debounce         time.Duration `envconfig:"DAYBREAK_RECOVERY_DEBOUNCE" default:"45s"`
	LockTTL          time.Duration `envconfig:"DAYBREAK_RECOVERY_LOCK_TTL" default:"10m"`
	DispatchInterval time.Duration `envconfig:"DAYBREAK_DISPATCH_INTERVAL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DAYBREAK_AUTO_MIGRATE" default:"true"`
}
