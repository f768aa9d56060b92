package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Mail      MailConfig
	Health    HealthConfig
}

type ServerConfig struct {
	Port         string `mapstructure:"SERVER_PORT"`
	Host         string `mapstructure:"SERVER_HOST"`
	Env          string `mapstructure:"ENV"`
	ReadTimeout  string `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout string `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"DATABASE_DRIVER"`
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Enabled     bool   `mapstructure:"REDIS_ENABLED"`
	Host        string `mapstructure:"REDIS_HOST"`
	Port        string `mapstructure:"REDIS_PORT"`
	Password    string `mapstructure:"REDIS_PASSWORD"`
	DB          int    `mapstructure:"REDIS_DB"`
	ScheduleTTL string `mapstructure:"REDIS_SCHEDULE_TTL"`
}

type SchedulerConfig struct {
	OverdueCron  string `mapstructure:"SCHEDULER_OVERDUE_CRON"`
	ReminderCron string `mapstructure:"SCHEDULER_REMINDER_CRON"`
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	LateFeeMonthlyRate   string `mapstructure:"LATE_FEE_MONTHLY_RATE"`
	LateFeeDaysPerMonth  int    `mapstructure:"LATE_FEE_DAYS_PER_MONTH"`
	CloseEpsilon         string `mapstructure:"CLOSE_EPSILON"`
	FirstDueOffsetDays   int    `mapstructure:"FIRST_DUE_OFFSET_DAYS"`
	DelinquencyThreshold int    `mapstructure:"DELINQUENCY_THRESHOLD"`
	DefaultAfterDays     int    `mapstructure:"DEFAULT_AFTER_DAYS"` // 0 disables automatic default
	ReminderLeadDays     int    `mapstructure:"REMINDER_LEAD_DAYS"`
	LockTTL              string `mapstructure:"LOCK_TTL"`
}

type MailConfig struct {
	Enabled      bool   `mapstructure:"MAIL_ENABLED"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	From         string `mapstructure:"MAIL_FROM"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":          "8080",
	"SERVER_HOST":          "0.0.0.0",
	"ENV":                  "development",
	"SERVER_READ_TIMEOUT":  "15s",
	"SERVER_WRITE_TIMEOUT": "15s",

	"DATABASE_DRIVER":            "postgres",
	"DATABASE_URL":               "",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",

	"REDIS_ENABLED":      false,
	"REDIS_HOST":         "localhost",
	"REDIS_PORT":         "6379",
	"REDIS_PASSWORD":     "",
	"REDIS_DB":           0,
	"REDIS_SCHEDULE_TTL": "24h",

	"SCHEDULER_OVERDUE_CRON":  "0 0 1 * * *",
	"SCHEDULER_REMINDER_CRON": "0 0 9 * * *",
	"SCHEDULER_TIMEZONE":      "UTC",

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"LATE_FEE_MONTHLY_RATE":   "0.02",
	"LATE_FEE_DAYS_PER_MONTH": 30,
	"CLOSE_EPSILON":           "0.01",
	"FIRST_DUE_OFFSET_DAYS":   30,
	"DELINQUENCY_THRESHOLD":   2,
	"DEFAULT_AFTER_DAYS":      0,
	"REMINDER_LEAD_DAYS":      3,
	"LOCK_TTL":                "10s",

	"MAIL_ENABLED":  false,
	"SMTP_HOST":     "localhost",
	"SMTP_PORT":     "25",
	"SMTP_USERNAME": "",
	"SMTP_PASSWORD": "",
	"MAIL_FROM":     "loans@localhost",

	"HEALTH_CHECK_TIMEOUT": "5s",
}

// cronParser accepts the six-field specs the scheduler registers with
// cron.WithSeconds().
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Load reads configuration from environment variables and optional .env
// files. Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	for _, path := range []string{".env", "deployments/.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("unable to read %s: %w", path, err)
			}
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	sections := []any{
		&config.Server, &config.Database, &config.Redis, &config.Scheduler,
		&config.Logging, &config.Business, &config.Mail, &config.Health,
	}
	for _, section := range sections {
		if err := v.Unmarshal(section); err != nil {
			return nil, fmt.Errorf("unable to decode config: %w", err)
		}
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.Database.Driver)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.DelinquencyThreshold <= 0 {
		return fmt.Errorf("DELINQUENCY_THRESHOLD must be greater than 0")
	}

	if c.Business.LateFeeDaysPerMonth <= 0 {
		return fmt.Errorf("LATE_FEE_DAYS_PER_MONTH must be greater than 0")
	}

	if c.Business.FirstDueOffsetDays < 0 {
		return fmt.Errorf("FIRST_DUE_OFFSET_DAYS must not be negative")
	}

	if c.Business.DefaultAfterDays < 0 {
		return fmt.Errorf("DEFAULT_AFTER_DAYS must not be negative")
	}

	for name, value := range map[string]string{
		"LATE_FEE_MONTHLY_RATE": c.Business.LateFeeMonthlyRate,
		"CLOSE_EPSILON":         c.Business.CloseEpsilon,
	} {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", name, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	for name, value := range map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"REDIS_SCHEDULE_TTL":         c.Redis.ScheduleTTL,
		"LOCK_TTL":                   c.Business.LockTTL,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	for name, spec := range map[string]string{
		"SCHEDULER_OVERDUE_CRON":  c.Scheduler.OverdueCron,
		"SCHEDULER_REMINDER_CRON": c.Scheduler.ReminderCron,
	} {
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("%s must be a valid cron spec: %w", name, err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid IANA zone: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

func (c *Config) ServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}

func (c *Config) SMTPAddr() string {
	return net.JoinHostPort(c.Mail.SMTPHost, c.Mail.SMTPPort)
}

func duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// GetReadTimeout returns the HTTP server read timeout
func (c *Config) GetReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout)
}

// GetWriteTimeout returns the HTTP server write timeout
func (c *Config) GetWriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout)
}

func (c *Config) GetConnMaxLifetime() time.Duration {
	return duration(c.Database.ConnMaxLifetime)
}

func (c *Config) GetScheduleTTL() time.Duration {
	return duration(c.Redis.ScheduleTTL)
}

func (c *Config) GetLockTTL() time.Duration {
	return duration(c.Business.LockTTL)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return duration(c.Health.Timeout)
}

// GetLateFeeMonthlyRate returns the late fee rate as decimal
func (c *Config) GetLateFeeMonthlyRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.LateFeeMonthlyRate)
	return rate
}

// GetCloseEpsilon returns the balance under which a loan counts as repaid
func (c *Config) GetCloseEpsilon() decimal.Decimal {
	eps, _ := decimal.NewFromString(c.Business.CloseEpsilon)
	return eps
}

// Location returns the scheduler's time zone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
