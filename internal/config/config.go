package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	JWTSecret  string
	SessionTTL time.Duration

	// Identities
	SuperAdminEmail    string
	SuperAdminPassword string

	// Auth provider: "local" or "gotrue"
	AuthProvider   string
	AuthURL        string
	AuthAnonKey    string
	AuthServiceKey string

	// Blob storage: "local" or "http"
	StorageProvider string
	StorageDir      string
	StorageURL      string
	StorageBucket   string
	StorageKey      string
	MaxUploadSize   int

	// Change feed relay (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FeedChannel   string

	// Messaging
	AutoReplyMessage string
	AutoReplyDelay   time.Duration

	// Logging
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
	AppEnv      string
	SentryDSN   string

	// Portal file (firm name, table prefix, seed admins)
	PortalConfigPath string
}

func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "portal_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour),

		SuperAdminEmail:    strings.ToLower(strings.TrimSpace(getEnv("SUPER_ADMIN_EMAIL", "admintres@gmail.com"))),
		SuperAdminPassword: getEnv("SUPER_ADMIN_PASSWORD", ""),

		AuthProvider:   getEnv("AUTH_PROVIDER", "local"),
		AuthURL:        getEnv("AUTH_URL", ""),
		AuthAnonKey:    getEnv("AUTH_ANON_KEY", ""),
		AuthServiceKey: getEnv("AUTH_SERVICE_KEY", ""),

		StorageProvider: getEnv("STORAGE_PROVIDER", "local"),
		StorageDir:      getEnv("STORAGE_DIR", "data/blobs"),
		StorageURL:      getEnv("STORAGE_URL", ""),
		StorageBucket:   getEnv("STORAGE_BUCKET", "documents"),
		StorageKey:      getEnv("STORAGE_KEY", ""),
		MaxUploadSize:   parseInt(getEnv("MAX_UPLOAD_SIZE", "20971520"), 20*1024*1024),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		FeedChannel:   getEnv("FEED_CHANNEL", "portal:changes"),

		AutoReplyMessage: lookupEnv("AUTO_REPLY_MESSAGE", "Recibido. Nuestro equipo revisará su mensaje y le contactará a la brevedad."),
		AutoReplyDelay:   parseDuration(getEnv("AUTO_REPLY_DELAY", "2s"), 2*time.Second),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		PortalConfigPath: getEnv("PORTAL_CONFIG_PATH", "portal.yaml"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// lookupEnv is getEnv for keys where an explicitly empty value means "off".
func lookupEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
