package config

import (
	"errors"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Planner    PlannerConfig
	Feeds      FeedsConfig
	Catalog    CatalogConfig
	Transcript TranscriptConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnLifetime   time.Duration
	ConnectTimeout time.Duration
	MigrationsPath string
	AutoMigrate    bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig bounds the validator and the automatic scheduler.
type PlannerConfig struct {
	MaxCreditsPerSemester int
	MaxIterations         int
	MinApprovedKeyLength  int
}

// FeedsConfig points at the institutional curriculum, transcript and identity services.
type FeedsConfig struct {
	CurriculumURL    string
	CurriculumAPIKey string
	TranscriptURL    string
	IdentityURL      string
	Timeout          time.Duration
	RatePerSecond    float64
	Burst            int
	Retries          int
	RetryDelay       time.Duration
}

// CatalogConfig governs catalog caching and background resynchronisation.
type CatalogConfig struct {
	CacheTTL     time.Duration
	SyncSchedule string
	SyncPrograms []ProgramCatalog
	SyncWorkers  int
	SyncRetries  int
}

// ProgramCatalog identifies one catalog revision of a degree program.
type ProgramCatalog struct {
	Program string
	Catalog string
}

type TranscriptConfig struct {
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnLifetime:   parseDuration(v.GetString("DB_CONN_LIFETIME"), time.Hour),
		ConnectTimeout: parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		MigrationsPath: v.GetString("DB_MIGRATIONS_PATH"),
		AutoMigrate:    v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		Timeout:   parseDuration(v.GetString("REDIS_TIMEOUT"), 2*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planner = PlannerConfig{
		MaxCreditsPerSemester: positiveOr(v.GetInt("PLANNER_MAX_CREDITS"), 32),
		MaxIterations:         positiveOr(v.GetInt("PLANNER_MAX_ITERATIONS"), 60),
		MinApprovedKeyLength:  v.GetInt("PLANNER_MIN_APPROVED_KEY_LENGTH"),
	}

	cfg.Feeds = FeedsConfig{
		CurriculumURL:    v.GetString("CURRICULUM_FEED_URL"),
		CurriculumAPIKey: v.GetString("CURRICULUM_FEED_API_KEY"),
		TranscriptURL:    v.GetString("TRANSCRIPT_FEED_URL"),
		IdentityURL:      v.GetString("IDENTITY_FEED_URL"),
		Timeout:          parseDuration(v.GetString("FEED_TIMEOUT"), 10*time.Second),
		RatePerSecond:    v.GetFloat64("FEED_RATE_PER_SECOND"),
		Burst:            positiveOr(v.GetInt("FEED_BURST"), 1),
		Retries:          v.GetInt("FEED_RETRIES"),
		RetryDelay:       parseDuration(v.GetString("FEED_RETRY_DELAY"), 500*time.Millisecond),
	}

	cfg.Catalog = CatalogConfig{
		CacheTTL:     parseDuration(v.GetString("CATALOG_CACHE_TTL"), time.Hour),
		SyncSchedule: strings.TrimSpace(v.GetString("CATALOG_SYNC_SCHEDULE")),
		SyncPrograms: parsePrograms(v.GetString("CATALOG_SYNC_PROGRAMS")),
		SyncWorkers:  positiveOr(v.GetInt("CATALOG_SYNC_WORKERS"), 1),
		SyncRetries:  v.GetInt("CATALOG_SYNC_RETRIES"),
	}

	cfg.Transcript = TranscriptConfig{
		CacheTTL: parseDuration(v.GetString("TRANSCRIPT_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "curriculum_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "planner:")
	v.SetDefault("REDIS_TIMEOUT", "2s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "curriculum-planner")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLANNER_MAX_CREDITS", 32)
	v.SetDefault("PLANNER_MAX_ITERATIONS", 60)
	v.SetDefault("PLANNER_MIN_APPROVED_KEY_LENGTH", 3)

	v.SetDefault("CURRICULUM_FEED_URL", "https://losvilos.ucn.cl/hawaii/api")
	v.SetDefault("CURRICULUM_FEED_API_KEY", "")
	v.SetDefault("TRANSCRIPT_FEED_URL", "https://puclaro.ucn.cl/eross/avance")
	v.SetDefault("IDENTITY_FEED_URL", "https://puclaro.ucn.cl/eross/avance")
	v.SetDefault("FEED_TIMEOUT", "10s")
	v.SetDefault("FEED_RATE_PER_SECOND", 5)
	v.SetDefault("FEED_BURST", 5)
	v.SetDefault("FEED_RETRIES", 2)
	v.SetDefault("FEED_RETRY_DELAY", "500ms")

	v.SetDefault("CATALOG_CACHE_TTL", "1h")
	v.SetDefault("CATALOG_SYNC_SCHEDULE", "")
	v.SetDefault("CATALOG_SYNC_PROGRAMS", "")
	v.SetDefault("CATALOG_SYNC_WORKERS", 1)
	v.SetDefault("CATALOG_SYNC_RETRIES", 3)

	v.SetDefault("TRANSCRIPT_CACHE_TTL", "10m")
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

// parsePrograms reads "program:catalog" pairs; entries without a catalog are skipped.
func parsePrograms(raw string) []ProgramCatalog {
	entries := splitAndTrim(raw)
	result := make([]ProgramCatalog, 0, len(entries))
	for _, entry := range entries {
		program, catalog, ok := strings.Cut(entry, ":")
		program = strings.TrimSpace(program)
		catalog = strings.TrimSpace(catalog)
		if !ok || program == "" || catalog == "" {
			continue
		}
		result = append(result, ProgramCatalog{Program: program, Catalog: catalog})
	}
	return result
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}
