package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                       = "PORT"
	envServerReadTimeout          = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout         = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout      = "SERVER_SHUTDOWN_TIMEOUT"
	envEnableProfiling            = "ENABLE_PROFILING"
	envIdentityLoginURL           = "IDENTITY_LOGIN_URL"
	envIdentityTimeout            = "IDENTITY_TIMEOUT"
	envIdentityBreakerMaxFailures = "IDENTITY_BREAKER_MAX_FAILURES"
	envIdentityBreakerOpenTimeout = "IDENTITY_BREAKER_OPEN_TIMEOUT"
	envBackendAPIURL              = "BACKEND_API_URL"
	envSessionBackend             = "SESSION_BACKEND"
	envSessionDir                 = "SESSION_DIR"
	envSessionBadgerPath          = "SESSION_BADGER_PATH"
	envSessionRedisAddr           = "SESSION_REDIS_ADDR"
	envSessionRedisPassword       = "SESSION_REDIS_PASSWORD"
	envSessionRedisDB             = "SESSION_REDIS_DB"
	envSessionTTL                 = "SESSION_TTL"
	envSessionCookieName          = "SESSION_COOKIE_NAME"
	envSessionCookieSecure        = "SESSION_COOKIE_SECURE"
	envDBHost                     = "DB_HOST"
	envDBPort                     = "DB_PORT"
	envDBName                     = "DB_NAME"
	envDBUser                     = "DB_USER"
	envDBPassword                 = "DB_PASSWORD"
	envDBSSLMode                  = "DB_SSL_MODE"
	envDBMaxConns                 = "DB_MAX_CONNS"
	envDBMinConns                 = "DB_MIN_CONNS"
	envLogLevel                   = "LOG_LEVEL"
	envLogFormat                  = "LOG_FORMAT"
	envAppLocales                 = "APP_LOCALES"
	envAppDefaultLocale           = "APP_DEFAULT_LOCALE"
	envAdminMinRole               = "ADMIN_MIN_ROLE"
)

const (
	defaultServerPort          = "8080"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerWriteTimeout  = 10 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultIdentityTimeout     = 10 * time.Second
	defaultBreakerMaxFailures  = 5
	defaultBreakerOpenTimeout  = 30 * time.Second
	defaultSessionBackend      = SessionBackendFile
	defaultSessionDir          = "data/sessions"
	defaultSessionBadgerPath   = "data/badger"
	defaultSessionRedisAddr    = "localhost:6379"
	defaultSessionTTL          = 30 * 24 * time.Hour
	defaultSessionCookieName   = "cms_sid"
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "holding_admin"
	defaultDBUser              = "holding_admin"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 10
	defaultDBMinConns          = 2
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultAppLocales          = "en,ru,uz"
	defaultAppDefaultLocale    = "en"
	defaultAdminMinRole        = "moderator"
	listSeparator              = ","
	errPortRequiredFmt         = "PORT must be set"
	errLoginURLRequiredFmt     = "IDENTITY_LOGIN_URL must be set"
	errLoginURLInvalidFmt      = "IDENTITY_LOGIN_URL must be an absolute http(s) URL: %s"
	errBackendURLInvalidFmt    = "BACKEND_API_URL must be an absolute http(s) URL: %s"
	errSessionBackendFmt       = "SESSION_BACKEND must be one of memory, file, badger, redis, postgres: %s"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set when SESSION_BACKEND=postgres"
	errLocalesEmptyFmt         = "APP_LOCALES must list at least one locale"
	errDefaultLocaleFmt        = "APP_DEFAULT_LOCALE %s is not listed in APP_LOCALES"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

// Session storage backends
const (
	SessionBackendMemory   = "memory"
	SessionBackendFile     = "file"
	SessionBackendBadger   = "badger"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Identity IdentityConfig
	Backend  BackendConfig
	Session  SessionConfig
	Database DatabaseConfig
	Log      LogConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Profiling       bool
}

type IdentityConfig struct {
	LoginURL           string
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

type BackendConfig struct {
	APIURL string
}

type SessionConfig struct {
	Backend       string
	Dir           string
	BadgerPath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	CookieName    string
	CookieSecure  bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Locales       []string
	DefaultLocale string
	AdminMinRole  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			Profiling:       getBoolEnv(envEnableProfiling, false),
		},
		Identity: IdentityConfig{
			LoginURL:           os.Getenv(envIdentityLoginURL),
			Timeout:            getDurationEnv(envIdentityTimeout, defaultIdentityTimeout),
			BreakerMaxFailures: getIntEnv(envIdentityBreakerMaxFailures, defaultBreakerMaxFailures),
			BreakerOpenTimeout: getDurationEnv(envIdentityBreakerOpenTimeout, defaultBreakerOpenTimeout),
		},
		Backend: BackendConfig{
			APIURL: os.Getenv(envBackendAPIURL),
		},
		Session: SessionConfig{
			Backend:       strings.ToLower(getEnv(envSessionBackend, defaultSessionBackend)),
			Dir:           getEnv(envSessionDir, defaultSessionDir),
			BadgerPath:    getEnv(envSessionBadgerPath, defaultSessionBadgerPath),
			RedisAddr:     getEnv(envSessionRedisAddr, defaultSessionRedisAddr),
			RedisPassword: os.Getenv(envSessionRedisPassword),
			RedisDB:       getIntEnv(envSessionRedisDB, 0),
			TTL:           getDurationEnv(envSessionTTL, defaultSessionTTL),
			CookieName:    getEnv(envSessionCookieName, defaultSessionCookieName),
			CookieSecure:  getBoolEnv(envSessionCookieSecure, false),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: os.Getenv(envDBPassword),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		Log: LogConfig{
			Level:  getEnv(envLogLevel, defaultLogLevel),
			Format: getEnv(envLogFormat, defaultLogFormat),
		},
		App: AppConfig{
			Locales:       getListEnv(envAppLocales, defaultAppLocales),
			DefaultLocale: getEnv(envAppDefaultLocale, defaultAppDefaultLocale),
			AdminMinRole:  getEnv(envAdminMinRole, defaultAdminMinRole),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Identity.LoginURL == "" {
		return fmt.Errorf(errLoginURLRequiredFmt)
	}
	if !isHTTPURL(c.Identity.LoginURL) {
		return fmt.Errorf(errLoginURLInvalidFmt, c.Identity.LoginURL)
	}

	if c.Backend.APIURL != "" && !isHTTPURL(c.Backend.APIURL) {
		return fmt.Errorf(errBackendURLInvalidFmt, c.Backend.APIURL)
	}

	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendFile, SessionBackendBadger, SessionBackendRedis:
	case SessionBackendPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf(errDBPasswordRequiredFmt)
		}
	default:
		return fmt.Errorf(errSessionBackendFmt, c.Session.Backend)
	}

	if len(c.App.Locales) == 0 {
		return fmt.Errorf(errLocalesEmptyFmt)
	}
	if !c.App.HasLocale(c.App.DefaultLocale) {
		return fmt.Errorf(errDefaultLocaleFmt, c.App.DefaultLocale)
	}

	return nil
}

// HasLocale reports whether locale is one of the configured locales
func (a *AppConfig) HasLocale(locale string) bool {
	for _, l := range a.Locales {
		if l == locale {
			return true
		}
	}
	return false
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		warnInvalid(key, value)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		warnInvalid(key, value)
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
		warnInvalid(key, value)
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func warnInvalid(key, value string) {
	fmt.Fprintln(os.Stderr, messages.invalidEnvValue(key, value))
}
