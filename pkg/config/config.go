package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Supabase      SupabaseConfig
	Auth          AuthConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Onboarding    OnboardingConfig
	Students      StudentsConfig
	Chat          ChatConfig
	Notifications NotificationsConfig
}

// SupabaseConfig points at the backend service's auth API.
type SupabaseConfig struct {
	URL         string
	AnonKey     string
	JWTSecret   string
	HTTPTimeout time.Duration
}

// AuthConfig tunes the client-side auth behaviour.
type AuthConfig struct {
	RedirectURL     string
	LinkCooldown    time.Duration
	RefreshMargin   time.Duration
	RefreshInterval time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OnboardingConfig toggles the "shown" persistence hook.
type OnboardingConfig struct {
	Persist bool
}

// StudentsConfig lists the statuses accepted when adding a student.
type StudentsConfig struct {
	Statuses []string
}

// ChatConfig seeds the local conversation list.
type ChatConfig struct {
	Contacts []string
}

// NotificationsConfig governs local notification dispatch.
type NotificationsConfig struct {
	Enabled bool
	Workers int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Supabase = SupabaseConfig{
		URL:         strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
		AnonKey:     v.GetString("SUPABASE_ANON_KEY"),
		JWTSecret:   v.GetString("SUPABASE_JWT_SECRET"),
		HTTPTimeout: parseDuration(v.GetString("SUPABASE_HTTP_TIMEOUT"), 10*time.Second),
	}

	cfg.Auth = AuthConfig{
		RedirectURL:     v.GetString("AUTH_REDIRECT_URL"),
		LinkCooldown:    parseDuration(v.GetString("AUTH_LINK_COOLDOWN"), 60*time.Second),
		RefreshMargin:   parseDuration(v.GetString("AUTH_REFRESH_MARGIN"), 60*time.Second),
		RefreshInterval: parseDuration(v.GetString("AUTH_REFRESH_INTERVAL"), 30*time.Second),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS_STORAGE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Onboarding = OnboardingConfig{Persist: v.GetBool("ONBOARDING_PERSIST")}
	cfg.Students = StudentsConfig{Statuses: splitAndTrim(v.GetString("STUDENT_STATUSES"))}
	cfg.Chat = ChatConfig{Contacts: splitAndTrim(v.GetString("CHAT_CONTACTS"))}

	workers := v.GetInt("NOTIFICATION_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Notifications = NotificationsConfig{
		Enabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		Workers: workers,
	}

	return cfg
}

// Validate rejects configurations the app cannot run with.
func (c *Config) Validate() error {
	if c.Env != EnvProduction {
		return nil
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required in %s", c.Env)
	}
	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required in %s", c.Env)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("SUPABASE_URL", "http://localhost:54321")
	v.SetDefault("SUPABASE_ANON_KEY", "")
	v.SetDefault("SUPABASE_JWT_SECRET", "")
	v.SetDefault("SUPABASE_HTTP_TIMEOUT", "10s")

	v.SetDefault("AUTH_REDIRECT_URL", "http://localhost:8080/api/v1/auth/callback")
	v.SetDefault("AUTH_LINK_COOLDOWN", "60s")
	v.SetDefault("AUTH_REFRESH_MARGIN", "60s")
	v.SetDefault("AUTH_REFRESH_INTERVAL", "30s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 54322)
	v.SetDefault("DB_USER", "authenticator")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("ENABLE_REDIS_STORAGE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ONBOARDING_PERSIST", false)
	v.SetDefault("STUDENT_STATUSES", "Presente,Ausente")
	v.SetDefault("CHAT_CONTACTS", "")
	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("NOTIFICATION_WORKERS", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
