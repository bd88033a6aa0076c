package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/rond-timeline/internal/database"
	"github.com/jengzang/rond-timeline/internal/models"
)

// Environment variables read by Load
const (
	EnvConfigFile     = "ROND_CONFIG"
	EnvDBPath         = "ROND_DB_PATH"
	EnvTimezone       = "ROND_TIMEZONE"
	EnvAddr           = "ROND_ADDR"
	EnvJWTSecret      = "ROND_JWT_SECRET"
	EnvLogLevel       = "ROND_LOG_LEVEL"
	EnvBusyTimeoutMS  = "ROND_BUSY_TIMEOUT_MS"
	EnvMaxRetries     = "ROND_MAX_RETRIES"
	EnvRetryBackoffMS = "ROND_RETRY_BACKOFF_MS"
	EnvRateLimit      = "ROND_RATE_LIMIT"
)

// Config 应用配置
type Config struct {
	DBPath         string `yaml:"db_path" validate:"required"`
	Timezone       string `yaml:"timezone"`
	Addr           string `yaml:"addr" validate:"required"`
	JWTSecret      string `yaml:"jwt_secret" validate:"omitempty,min=16"`
	LogLevel       string `yaml:"log_level" validate:"oneof=debug info warn error"`
	BusyTimeoutMS  int    `yaml:"busy_timeout_ms" validate:"gte=0"`
	MaxRetries     int    `yaml:"max_retries" validate:"gte=0,lte=20"`
	RetryBackoffMS int    `yaml:"retry_backoff_ms" validate:"gte=0"`
	RateLimit      int    `yaml:"rate_limit" validate:"gte=0"` // requests per minute per client, 0 disables

	// Resolved by Load
	Location     *time.Location `yaml:"-"`
	TimezoneName string         `yaml:"-"`
}

// Overrides are explicit values, typically CLI flags, that win over every
// other source. Empty fields are ignored.
type Overrides struct {
	ConfigFile string
	EnvFile    string
	DBPath     string
	Timezone   string
	Addr       string
	LogLevel   string
}

func defaults() Config {
	return Config{
		Addr:           ":8080",
		LogLevel:       "info",
		BusyTimeoutMS:  int(database.DefaultBusyTimeout / time.Millisecond),
		MaxRetries:     database.DefaultMaxRetries,
		RetryBackoffMS: int(database.DefaultRetryBackoff / time.Millisecond),
		RateLimit:      120,
	}
}

// Load 加载配置. Sources in increasing precedence: built-in defaults, the
// .env file, a YAML file, ROND_* environment variables, then overrides.
// The database path and timezone are resolved before returning.
func Load(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &models.ConfigError{Msg: "failed to read " + envFile, Err: err}
	}

	cfg := defaults()

	configFile := firstNonEmpty(o.ConfigFile, os.Getenv(EnvConfigFile))
	if configFile != "" {
		if err := loadFile(configFile, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	cfg.DBPath = firstNonEmpty(o.DBPath, cfg.DBPath)
	cfg.Timezone = firstNonEmpty(o.Timezone, cfg.Timezone)
	cfg.Addr = firstNonEmpty(o.Addr, cfg.Addr)
	cfg.LogLevel = strings.ToLower(firstNonEmpty(o.LogLevel, cfg.LogLevel))

	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, &models.ConfigError{Msg: "Unable to resolve database path. Set ROND_DB_PATH or pass --db-path."}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, &models.ConfigError{Msg: "invalid configuration", Err: err}
	}

	dbPath, err := ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = dbPath

	loc, name, err := ResolveTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Location = loc
	cfg.TimezoneName = name

	return &cfg, nil
}

// StoreConfig returns the read-only store settings
func (c *Config) StoreConfig() database.Config {
	retries := c.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return database.Config{
		Path:         c.DBPath,
		BusyTimeout:  time.Duration(c.BusyTimeoutMS) * time.Millisecond,
		MaxRetries:   retries,
		RetryBackoff: time.Duration(c.RetryBackoffMS) * time.Millisecond,
	}
}

// ResolveDBPath expands ~, makes the path absolute and checks that it exists
func ResolveDBPath(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &models.ConfigError{Msg: "failed to expand home directory", Err: err}
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &models.ConfigError{Msg: "invalid database path " + raw, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &models.ConfigError{Msg: "Database path does not exist: " + abs}
	}
	if info.IsDir() {
		return "", &models.ConfigError{Msg: "Database path is a directory: " + abs}
	}
	return abs, nil
}

// ResolveTimezone loads an IANA zone. An empty name selects the system zone.
func ResolveTimezone(name string) (*time.Location, string, error) {
	name = strings.TrimSpace(name)
	if name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, "", &models.ConfigError{Msg: "Unknown timezone: " + name, Err: err}
		}
		return loc, name, nil
	}
	return time.Local, localZoneName(), nil
}

// localZoneName finds a display name for time.Local
func localZoneName() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		return tz
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	if abbr, _ := time.Now().Zone(); abbr != "" {
		return abbr
	}
	return "local"
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &models.ConfigError{Msg: "failed to read config file " + path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &models.ConfigError{Msg: "failed to parse config file " + path, Err: err}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvBusyTimeoutMS, &cfg.BusyTimeoutMS},
		{EnvMaxRetries, &cfg.MaxRetries},
		{EnvRetryBackoffMS, &cfg.RetryBackoffMS},
		{EnvRateLimit, &cfg.RateLimit},
	}
	for _, e := range ints {
		v := strings.TrimSpace(os.Getenv(e.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &models.ConfigError{Msg: fmt.Sprintf("%s must be an integer, got %q", e.key, v), Err: err}
		}
		*e.dst = n
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
