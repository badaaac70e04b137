package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Hosted identity service (GoTrue-compatible REST API).
	IdentityURL       string
	IdentityAnonKey   string
	IdentityJWTSecret string
	MagicLinkRedirect string

	// Session bootstrap timing. The safety valve must be strictly longer than
	// the init timeout: it fires only when the inner race itself is stuck.
	AuthInitTimeout    time.Duration
	AuthSafetyValve    time.Duration
	ProfileTimeout     time.Duration
	AuthRefreshTimeout time.Duration
	SessionIdleExpiry  time.Duration

	// File store: "local" or "s3".
	StorageDriver string
	UploadRoot    string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	MaxUploadSize int64
	MontoCuota    int64

	ResendAPIKey string
	EmailFrom    string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 8)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		IdentityURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("IDENTITY_URL")), "/"),
		IdentityAnonKey:   strings.TrimSpace(os.Getenv("IDENTITY_ANON_KEY")),
		IdentityJWTSecret: strings.TrimSpace(os.Getenv("IDENTITY_JWT_SECRET")),
		MagicLinkRedirect: getEnv("MAGIC_LINK_REDIRECT", "http://localhost:5173"),

		AuthInitTimeout:    getDuration("AUTH_INIT_TIMEOUT", 12*time.Second),
		AuthSafetyValve:    getDuration("AUTH_SAFETY_VALVE", 20*time.Second),
		ProfileTimeout:     getDuration("PROFILE_TIMEOUT", 8*time.Second),
		AuthRefreshTimeout: getDuration("AUTH_REFRESH_TIMEOUT", 8*time.Second),
		SessionIdleExpiry:  getDuration("SESSION_IDLE_EXPIRY", 12*time.Hour),

		StorageDriver: getEnv("STORAGE_DRIVER", "local"),
		UploadRoot:    getEnv("UPLOAD_ROOT", "./data/uploads"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		S3Bucket:      strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:    strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey:   strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey:   strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		MaxUploadSize: getInt64("MAX_UPLOAD_SIZE", 5*1024*1024),
		MontoCuota:    getInt64("MONTO_CUOTA", 15000),

		ResendAPIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		EmailFrom:    getEnv("EMAIL_FROM", "Club <avisos@gymclub.local>"),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.IdentityURL == "" {
		return fmt.Errorf("IDENTITY_URL is required")
	}

	if c.IdentityJWTSecret == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}

	if c.AuthInitTimeout <= 0 || c.ProfileTimeout <= 0 || c.AuthRefreshTimeout <= 0 {
		return fmt.Errorf("auth timeouts must be positive")
	}

	if c.AuthSafetyValve <= c.AuthInitTimeout {
		return fmt.Errorf("AUTH_SAFETY_VALVE must exceed AUTH_INIT_TIMEOUT")
	}

	if c.StorageDriver != "local" && c.StorageDriver != "s3" {
		return fmt.Errorf("STORAGE_DRIVER must be \"local\" or \"s3\"")
	}

	if c.StorageDriver == "s3" && c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
