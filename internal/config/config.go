package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	JWT      JWTConfig
	Backend  BackendConfig
	Actions  ActionsConfig
	Notify   NotifyConfig
	Cache    CacheConfig
	Members  MembershipConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Telegram TelegramConfig
	Push     PushConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second per client IP, 0 disables
	AllowedOrigins []string
}

type JWTConfig struct {
	Secret     string
	CookieName string
}

// BackendConfig points at the CMS GraphQL endpoint.
type BackendConfig struct {
	URL          string
	ServiceToken string // used when no caller credential is available (queued notifications)
	Timeout      time.Duration
}

type ActionsConfig struct {
	CatalogPath string
	Timeout     time.Duration
	Throttle    bool // enforce per-action rate limits; needs redis
}

type NotifyConfig struct {
	Mode          string // inline | queue
	Concurrency   int    // max parallel sends per channel
	DefaultLocale string
}

type CacheConfig struct {
	Provider  string // memory | redis
	TTL       time.Duration
	SweepCron string
	KeyPrefix string
}

// MembershipConfig names the backend operation listing a relation's members
// and where the user entities sit in its result.
type MembershipConfig struct {
	Operation  string
	ResultPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TelegramConfig struct {
	BotToken string
	APIURL   string
}

type PushConfig struct {
	GatewayURL string
	AccessKey  string
}

const (
	NotifyModeInline = "inline"
	NotifyModeQueue  = "queue"

	CacheProviderMemory = "memory"
	CacheProviderRedis  = "redis"
)

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 40*time.Second),
			RateLimit:      getEnvAsFloat("SERVER_RATE_LIMIT", 20),
			AllowedOrigins: getEnvAsList("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			CookieName: getEnv("JWT_COOKIE", "jwt"),
		},
		Backend: BackendConfig{
			URL:          getEnv("BACKEND_GRAPHQL_URL", "http://localhost:1337/graphql"),
			ServiceToken: getEnv("BACKEND_SERVICE_TOKEN", ""),
			Timeout:      getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Actions: ActionsConfig{
			CatalogPath: getEnv("ACTIONS_CATALOG", "configs/actions.yaml"),
			Timeout:     getEnvAsDuration("ACTION_TIMEOUT", 30*time.Second),
			Throttle:    getEnvAsBool("ACTIONS_THROTTLE", false),
		},
		Notify: NotifyConfig{
			Mode:          strings.ToLower(getEnv("NOTIFY_MODE", NotifyModeInline)),
			Concurrency:   getEnvAsInt("NOTIFY_CONCURRENCY", 16),
			DefaultLocale: getEnv("NOTIFY_DEFAULT_LOCALE", "he"),
		},
		Cache: CacheConfig{
			Provider:  strings.ToLower(getEnv("CACHE_PROVIDER", CacheProviderMemory)),
			TTL:       getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			SweepCron: getEnv("CACHE_SWEEP_CRON", "*/10 * * * *"),
			KeyPrefix: getEnv("CACHE_KEY_PREFIX", "membership:v1:"),
		},
		Members: MembershipConfig{
			Operation:  getEnv("MEMBERSHIP_OPERATION", "projectMembers"),
			ResultPath: getEnv("MEMBERSHIP_RESULT_PATH", "project.data.attributes.users.data"),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", getEnv("REDIS_HOST", "localhost"), getEnvAsInt("REDIS_PORT", 6379)),
			Password: getEnv("REDIS_PASSWORD", ""),
			Username: getEnv("REDIS_USERNAME", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 465),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		},
		Push: PushConfig{
			GatewayURL: getEnv("PUSH_GATEWAY_URL", ""),
			AccessKey:  getEnv("PUSH_ACCESS_KEY", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Notify.Mode {
	case NotifyModeInline, NotifyModeQueue:
	default:
		return fmt.Errorf("NOTIFY_MODE must be %q or %q, got %q", NotifyModeInline, NotifyModeQueue, c.Notify.Mode)
	}
	switch c.Cache.Provider {
	case CacheProviderMemory, CacheProviderRedis:
	default:
		return fmt.Errorf("CACHE_PROVIDER must be %q or %q, got %q", CacheProviderMemory, CacheProviderRedis, c.Cache.Provider)
	}
	// The HTTP timeout only backstops the action deadline; it answers 503, the
	// action deadline answers 504.
	if c.Server.RequestTimeout > 0 && c.Server.RequestTimeout <= c.Actions.Timeout {
		return fmt.Errorf("SERVER_REQUEST_TIMEOUT (%s) must exceed ACTION_TIMEOUT (%s)", c.Server.RequestTimeout, c.Actions.Timeout)
	}
	if c.Notify.Concurrency < 1 {
		c.Notify.Concurrency = 1
	}
	return nil
}

// UsesRedis reports whether any configured component needs a redis connection.
func (c *Config) UsesRedis() bool {
	return c.Notify.Mode == NotifyModeQueue || c.Cache.Provider == CacheProviderRedis || c.Actions.Throttle
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// OriginAllowed reports whether origin may open sockets; "*" allows any.
func (s ServerConfig) OriginAllowed(origin string) bool {
	for _, o := range s.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Redacted returns a copy with every secret masked.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.JWT.Secret = mask(c.JWT.Secret)
	out.Backend.ServiceToken = mask(c.Backend.ServiceToken)
	out.Redis.Password = mask(c.Redis.Password)
	out.SMTP.Password = mask(c.SMTP.Password)
	out.Telegram.BotToken = mask(c.Telegram.BotToken)
	out.Push.AccessKey = mask(c.Push.AccessKey)
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return &out
}

// Save writes the redacted config as JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c.Redacted(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
