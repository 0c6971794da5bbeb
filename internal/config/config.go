package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/calendar"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	App        AppConfig
	Storage    StorageConfig
	Redis      RedisConfig
	Attendance AttendanceConfig
	Scheduler  SchedulerConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

var storageDrivers = []string{"postgres", "memory"}

// StorageConfig selects the attendance day store: "postgres" or "memory".
type StorageConfig struct {
	Driver      string
	AutoMigrate bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ClockTime is a wall-clock time of day, interpreted in a time zone.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// AttendanceConfig holds the rules of the attendance engine.
type AttendanceConfig struct {
	Timezone          string
	Location          *time.Location
	RestDays          []time.Weekday
	Holidays          []time.Time
	HalfDayHours      float64
	FullDayHours      float64
	MaxWriteRetries   int
	CreateMissingDays bool
	MissingDayStatus  attendance.Status
	BatchConcurrency  int
	AutoPunchOutAt    ClockTime
}

func (a AttendanceConfig) Thresholds() attendance.Thresholds {
	return attendance.Thresholds{HalfDayHours: a.HalfDayHours, FullDayHours: a.FullDayHours}
}

// SchedulerConfig holds the daily trigger times, in the attendance time zone.
type SchedulerConfig struct {
	Enabled        bool
	ReconcileRunAt ClockTime
	StatusRunAt    ClockTime
	ClaimTTL       time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	minConns, err := strconv.ParseInt(getEnv("DB_MIN_CONNS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
		MinConns: int32(minConns),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Storage = StorageConfig{
		Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
	}

	// Redis configuration
	redisPort, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     redisPort,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Attendance rules
	attendanceCfg, err := loadAttendance()
	if err != nil {
		return nil, err
	}
	config.Attendance = attendanceCfg

	// Scheduler configuration
	reconcileAt, err := getEnvClock("RECONCILE_RUN_AT", "23:59")
	if err != nil {
		return nil, err
	}
	statusAt, err := getEnvClock("STATUS_JOB_RUN_AT", "00:30")
	if err != nil {
		return nil, err
	}
	claimTTL, err := time.ParseDuration(getEnv("SCHEDULER_CLAIM_TTL", "6h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_CLAIM_TTL: %w", err)
	}

	config.Scheduler = SchedulerConfig{
		Enabled:        getEnvBool("SCHEDULER_ENABLED", true),
		ReconcileRunAt: reconcileAt,
		StatusRunAt:    statusAt,
		ClaimTTL:       claimTTL,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadAttendance() (AttendanceConfig, error) {
	timezone := getEnv("ATTENDANCE_TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_TIMEZONE: %w", err)
	}

	restDays, err := calendar.ParseWeekdays(getEnvSlice("ATTENDANCE_REST_DAYS", "sunday"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_REST_DAYS: %w", err)
	}

	holidays, err := calendar.ParseHolidays(getEnvSlice("ATTENDANCE_HOLIDAYS", ""))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_HOLIDAYS: %w", err)
	}

	halfDay, err := strconv.ParseFloat(getEnv("ATTENDANCE_HALF_DAY_HOURS", "4"), 64)
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_HALF_DAY_HOURS: %w", err)
	}
	fullDay, err := strconv.ParseFloat(getEnv("ATTENDANCE_FULL_DAY_HOURS", "8"), 64)
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_FULL_DAY_HOURS: %w", err)
	}

	retries, err := strconv.Atoi(getEnv("ATTENDANCE_MAX_WRITE_RETRIES", "3"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_MAX_WRITE_RETRIES: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnv("ATTENDANCE_BATCH_CONCURRENCY", "8"))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_BATCH_CONCURRENCY: %w", err)
	}

	missingStatus, err := attendance.ParseStatus(getEnv("ATTENDANCE_MISSING_DAY_STATUS", string(attendance.StatusAbsent)))
	if err != nil {
		return AttendanceConfig{}, fmt.Errorf("invalid ATTENDANCE_MISSING_DAY_STATUS: %w", err)
	}

	punchOutAt, err := getEnvClock("RECONCILE_PUNCH_OUT_AT", "23:59")
	if err != nil {
		return AttendanceConfig{}, err
	}

	return AttendanceConfig{
		Timezone:          timezone,
		Location:          loc,
		RestDays:          restDays,
		Holidays:          holidays,
		HalfDayHours:      halfDay,
		FullDayHours:      fullDay,
		MaxWriteRetries:   retries,
		CreateMissingDays: getEnvBool("ATTENDANCE_CREATE_MISSING_DAYS", true),
		MissingDayStatus:  missingStatus,
		BatchConcurrency:  concurrency,
		AutoPunchOutAt:    punchOutAt,
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !validator.IsInSlice(c.Storage.Driver, storageDrivers) {
		return fmt.Errorf("STORAGE_DRIVER must be one of: %s", strings.Join(storageDrivers, ", "))
	}
	if c.Storage.Driver == "postgres" && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if c.Attendance.HalfDayHours < 0 || c.Attendance.FullDayHours <= c.Attendance.HalfDayHours {
		return fmt.Errorf("ATTENDANCE_FULL_DAY_HOURS must be greater than ATTENDANCE_HALF_DAY_HOURS")
	}
	if c.Attendance.MaxWriteRetries < 1 {
		return fmt.Errorf("ATTENDANCE_MAX_WRITE_RETRIES must be at least 1")
	}
	if c.Attendance.BatchConcurrency < 1 {
		return fmt.Errorf("ATTENDANCE_BATCH_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.ClaimTTL <= 0 {
		return fmt.Errorf("SCHEDULER_CLAIM_TTL must be positive")
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

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

func getEnvClock(key, fallback string) (ClockTime, error) {
	raw := getEnv(key, fallback)
	hour, minute, ok := validator.ParseClock(raw)
	if !ok {
		return ClockTime{}, fmt.Errorf("invalid %s: %q is not HH:MM", key, raw)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}
