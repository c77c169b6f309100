package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Attendance   AttendanceConfig
	Payroll      PayrollConfig
	Cron         CronConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	Version     string
	LogLevel    string
	Timezone    string
	CORSOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For is believed. Empty trusts none.
	TrustedProxies []netip.Prefix
}

// AttendanceConfig selects the status scheme and lifecycle defaults.
type AttendanceConfig struct {
	Scheme                attendance.StatusScheme
	DefaultScheduledHours int
	ElevatedBypassNetwork bool
}

// PayrollConfig holds the fallbacks used when a company has no saved settings.
type PayrollConfig struct {
	ProrationPolicy    payroll.PolicyName
	StandardHours      int
	OvertimeMultiplier decimal.Decimal
	Currency           string
}

type CronConfig struct {
	Enabled           bool
	ReconcileInterval time.Duration
}

type NotificationConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	WorkerCount   int
	QueueSize     int
	// Retention is how long read notifications are kept. Zero disables the purge job.
	Retention     time.Duration
}

// RateLimitConfig applies to the self-service check endpoint, per client IP.
type RateLimitConfig struct {
	Burst     int
	PerSecond float64
}

// Load reads the environment, with .env values filling in when the file exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var (
		config = &Config{}
		p      envParser
	)

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.int("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris_timepay"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(p.int("DB_MAX_CONNS", 25)),
	}

	// Application configuration
	config.App = AppConfig{
		Port:        p.int("APP_PORT", 8080),
		Env:         getEnv("APP_ENV", "development"),
		Version:     getEnv("APP_VERSION", "v1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "Asia/Jakarta"),
		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}
	config.App.TrustedProxies = p.prefixes("TRUSTED_PROXIES")

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.duration("JWT_ACCESS_EXPIRATION_TIME", time.Hour),
	}

	// Attendance
	scheme, err := attendance.ParseScheme(getEnv("ATTENDANCE_STATUS_SCHEME", string(attendance.SchemeApproval)))
	if err != nil {
		p.fail("ATTENDANCE_STATUS_SCHEME", err)
	}
	config.Attendance = AttendanceConfig{
		Scheme:                scheme,
		DefaultScheduledHours: p.int("ATTENDANCE_DEFAULT_SCHEDULED_HOURS", 8),
		ElevatedBypassNetwork: p.bool("ATTENDANCE_ELEVATED_BYPASS_NETWORK", true),
	}

	// Payroll
	multiplier, err := decimal.NewFromString(getEnv("PAYROLL_OVERTIME_MULTIPLIER", "1.5"))
	if err != nil {
		p.fail("PAYROLL_OVERTIME_MULTIPLIER", err)
	}
	config.Payroll = PayrollConfig{
		ProrationPolicy:    payroll.PolicyName(getEnv("PAYROLL_PRORATION_POLICY", string(payroll.PolicyFixedDay))),
		StandardHours:      p.int("PAYROLL_STANDARD_HOURS", 8),
		OvertimeMultiplier: multiplier,
		Currency:           getEnv("PAYROLL_CURRENCY", "IDR"),
	}

	// Background jobs
	config.Cron = CronConfig{
		Enabled:           p.bool("CRON_ENABLED", true),
		ReconcileInterval: p.duration("CRON_RECONCILE_INTERVAL", 15*time.Minute),
	}

	config.Notification = NotificationConfig{
		BatchSize:     p.int("NOTIFICATION_BATCH_SIZE", 50),
		FlushInterval: p.duration("NOTIFICATION_FLUSH_INTERVAL", 2*time.Second),
		WorkerCount:   p.int("NOTIFICATION_WORKERS", 2),
		QueueSize:     p.int("NOTIFICATION_QUEUE_SIZE", 1000),
		Retention:     p.duration("NOTIFICATION_RETENTION", 90*24*time.Hour),
	}

	config.RateLimit = RateLimitConfig{
		Burst:     p.int("RATE_LIMIT_CHECK_BURST", 5),
		PerSecond: p.float("RATE_LIMIT_CHECK_PER_SECOND", 0.2),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessExpiration <= 0 {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive")
	}
	if _, err := attendance.ParseScheme(string(c.Attendance.Scheme)); err != nil {
		return fmt.Errorf("ATTENDANCE_STATUS_SCHEME: %w", err)
	}
	if !c.Payroll.ProrationPolicy.Valid() {
		return fmt.Errorf("PAYROLL_PRORATION_POLICY: %w", payroll.ErrUnknownProration)
	}
	if c.Payroll.StandardHours <= 0 || c.Payroll.StandardHours > 24 {
		return fmt.Errorf("PAYROLL_STANDARD_HOURS must be between 1 and 24")
	}
	if c.Payroll.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("PAYROLL_OVERTIME_MULTIPLIER must be at least 1")
	}
	if c.Cron.Enabled && c.Cron.ReconcileInterval <= 0 {
		return fmt.Errorf("CRON_RECONCILE_INTERVAL must be positive")
	}
	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("RATE_LIMIT_CHECK_BURST and RATE_LIMIT_CHECK_PER_SECOND must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// envParser keeps the first parse failure so Load can report it once.
type envParser struct {
	err error
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func (p *envParser) int(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *envParser) float(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *envParser) bool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

// prefixes reads a comma-separated list of CIDRs. A bare address is taken as a single host.
func (p *envParser) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range getEnvSlice(key, nil) {
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				p.fail(key, err)
				return nil
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			p.fail(key, err)
			return nil
		}
		out = append(out, prefix.Masked())
	}
	return out
}
