package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Rating store backends selectable through RATING_STORE.
const (
	RatingStorePostgres = "postgres"
	RatingStoreMongo    = "mongo"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	JWTSecret         string
	JWTIssuer         string
	AdminUserIDs      []string
	DBURL             string
	MigrationsDir     string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int

	RatingStore       string
	RatingMaxAttempts int
	MongoURI          string
	MongoDB           string

	RedisURL          string
	RealtimePrefix    string
	KafkaBrokers      []string
	KafkaTopic        string
	PlacesURL         string
	PlacesAPIKey      string
	PlacesTimeoutSecs int
	MinioEndpoint     string
	MinioAccessKey    string
	MinioSecretKey    string
	MinioBucket       string
	MinioUseSSL       bool
	MinioPublicURL    string
	MaxUploadMB       int
	OTLPEndpoint      string
	ServiceName       string
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTIssuer:         os.Getenv("JWT_ISSUER"),
		AdminUserIDs:      getEnvList("ADMIN_USER_IDS"),
		DBURL:             os.Getenv("DB_URL"),
		MigrationsDir:     os.Getenv("MIGRATIONS_DIR"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),

		RatingStore:       strings.ToLower(getEnv("RATING_STORE", RatingStorePostgres)),
		RatingMaxAttempts: getEnvInt("RATING_MAX_ATTEMPTS", 5),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "gymblog"),

		RedisURL:          os.Getenv("REDIS_URL"),
		RealtimePrefix:    getEnv("REALTIME_PREFIX", "gymblog"),
		KafkaBrokers:      getEnvList("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "gymblog.events"),
		PlacesURL:         os.Getenv("PLACES_URL"),
		PlacesAPIKey:      os.Getenv("PLACES_API_KEY"),
		PlacesTimeoutSecs: getEnvInt("PLACES_TIMEOUT_SECS", 5),
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getEnv("MINIO_BUCKET", "gymblog-attachments"),
		MinioUseSSL:       getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL:    os.Getenv("MINIO_PUBLIC_URL"),
		MaxUploadMB:       getEnvInt("MAX_UPLOAD_MB", 10),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       getEnv("OTEL_SERVICE_NAME", "gymblog-api"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	switch cfg.RatingStore {
	case RatingStorePostgres:
	case RatingStoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when RATING_STORE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("RATING_STORE must be %q or %q", RatingStorePostgres, RatingStoreMongo)
	}
	if cfg.RatingMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("RATING_MAX_ATTEMPTS must be positive")
	}
	if cfg.PlacesURL != "" && cfg.PlacesAPIKey == "" {
		return Config{}, fmt.Errorf("PLACES_API_KEY is required when PLACES_URL is set")
	}
	if cfg.PlacesTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("PLACES_TIMEOUT_SECS must be positive")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return Config{}, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	if cfg.MaxUploadMB <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
