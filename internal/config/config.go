package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/spatalkback/talkback/pkg/endpoints"
)

// EnvProduction is the APP_ENV value of the production deployment.
const EnvProduction = "production"

type Config struct {
	AppEnv                 string
	LogLevel               slog.Level
	ApiServicePort         string
	ApiGrpcPort            string
	APIBaseURL             string
	CORSAllowedOrigins     []string
	DatabaseDriver         string
	SQLitePath             string
	PostgreSQLHost         string
	PostgreSQLPort         int64
	PostgreSQLUser         string
	PostgreSQLPassword     string
	PostgreSQLDatabase     string
	JWTSecret              string
	AccessTokenExpiration  int64
	RefreshTokenExpiration int64
	RedisHost              string
	RedisPort              int64
	RedisPassword          string
	RedisDB                int64
	CaptchaTTL             int64 // Captcha lifetime in seconds
	CaptchaLength          int64
	LoginDailyLimit        int64 // Login attempts per client IP per day, 0 disables
	MaxFileSize            int64
	StorageDriver          string
	UploadDir              string
	MediaURL               string
	MinioEndpoint          string
	MinioAccessKey         string
	MinioSecretKey         string
	MinioBucket            string
	MinioPublicURL         string
	MinioUseSSL            bool
	PageSize               int64
	TokenSweepInterval     int64 // Expired refresh token sweep interval in seconds
	SPALightbox            bool  // Load the lightbox image viewer in the SPA shell
	MetricsEnabled         bool
}

// LoadConfig reads .env files (if any) and then the process environment.
// A file that exists but cannot be parsed is an error.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	appEnv := getEnv("APP_ENV", "development")

	return &Config{
		AppEnv:                 appEnv,                                                   // Default development
		LogLevel:               getLogLevel(),                                            // Default INFO
		ApiServicePort:         getEnv("API_SERVICE_PORT", "8000"),                       // Default 8000
		ApiGrpcPort:            getEnv("API_GRPC_PORT", "50052"),                         // Default 50052 (health service)
		APIBaseURL:             getEnv("API_BASE_URL", ResolveAPIBaseURL(appEnv)),        // Default per environment
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),      // Default any origin
		DatabaseDriver:         getEnv("DATABASE_DRIVER", "postgres"),                    // Default postgres
		SQLitePath:             getEnv("SQLITE_PATH", "talkback.db"),                     // Default ./talkback.db
		PostgreSQLHost:         getEnv("POSTGRESQL_HOST", "db"),                          // Default db
		PostgreSQLPort:         getEnvAsInt64("POSTGRESQL_PORT", 5432),                   // Default 5432
		PostgreSQLUser:         getEnv("POSTGRESQL_USER", "talkback_user"),               // Default user
		PostgreSQLPassword:     getEnv("POSTGRESQL_PASSWORD", "talkback_password"),       // Default password
		PostgreSQLDatabase:     getEnv("POSTGRESQL_DATABASE", "talkback_db"),             // Default database name
		JWTSecret:              getEnv("JWT_SECRET", "talkback_secret"),                  // Default secret key
		AccessTokenExpiration:  getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 300),            // Default 5 minutes
		RefreshTokenExpiration: getEnvAsInt64("REFRESH_TOKEN_EXPIRATION", 86400),         // Default 1 day
		RedisHost:              getEnv("REDIS_HOST", "redis"),                            // Default redis
		RedisPort:              getEnvAsInt64("REDIS_PORT", 6379),                        // Default 6379
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),                             // Default empty
		RedisDB:                getEnvAsInt64("REDIS_DATABASE", 0),                       // Default 0
		CaptchaTTL:             getEnvAsInt64("CAPTCHA_TTL", 300),                        // Default 5 minutes
		CaptchaLength:          getEnvAsInt64("CAPTCHA_LENGTH", 6),                       // Default 6 characters
		LoginDailyLimit:        getEnvAsInt64("LOGIN_DAILY_LIMIT", 100),                  // Default 100 attempts
		MaxFileSize:            getEnvAsInt64("MAX_FILE_SIZE", 5*1024*1024),              // Default 5 MB
		StorageDriver:          getEnv("STORAGE_DRIVER", "local"),                        // Default local disk
		UploadDir:              getEnv("UPLOAD_DIR", "/tmp/talkback/media"),              // Default /tmp/talkback/media
		MediaURL:               getEnv("MEDIA_URL", "/media"),                            // Default /media
		MinioEndpoint:          getEnv("MINIO_ENDPOINT", "localhost:9000"),               // Default localhost:9000
		MinioAccessKey:         getEnv("MINIO_ACCESS_KEY", "minio"),                      // Default minio
		MinioSecretKey:         getEnv("MINIO_SECRET_KEY", "minio124"),                   // Default minio124
		MinioBucket:            getEnv("MINIO_BUCKET", "talkback"),                       // Default talkback
		MinioPublicURL:         getEnv("MINIO_PUBLIC_ENDPOINT", "http://localhost:9000"), // Default http://localhost:9000
		MinioUseSSL:            getEnvAsBool("MINIO_USE_SSL", false),                     // Default false
		PageSize:               getEnvAsInt64("PAGE_SIZE", 10),                           // Default 10 items
		TokenSweepInterval:     getEnvAsInt64("TOKEN_SWEEP_INTERVAL", 3600),              // Default 1 hour
		SPALightbox:            getEnvAsBool("SPA_LIGHTBOX", true),                       // Default enabled
		MetricsEnabled:         getEnvAsBool("METRICS_ENABLED", true),                    // Default enabled
	}, nil
}

// ResolveAPIBaseURL picks the API base URL for a deployment environment.
// Production maps to the hosted API; any other value maps to the local one.
func ResolveAPIBaseURL(appEnv string) string {
	if IsProduction(appEnv) {
		return endpoints.ProductionBaseURL
	}
	return endpoints.DevelopmentBaseURL
}

// IsProduction reports whether appEnv names the production deployment.
func IsProduction(appEnv string) bool {
	return strings.EqualFold(strings.TrimSpace(appEnv), EnvProduction)
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.PostgreSQLHost,
		c.PostgreSQLUser,
		c.PostgreSQLPassword,
		c.PostgreSQLDatabase,
		c.PostgreSQLPort,
	)
}

// loadEnvFiles loads the given files, or .env when none are given.
// Variables already present in the environment are not overridden; missing
// files are ignored.
func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
