package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port        int
	Environment string
	CORSOrigins []string
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Monitor     MonitorConfig
	Gemini      GeminiConfig
	Uploads     UploadConfig
	S3          S3Config
	Hospital    HospitalConfig
	Notify      NotifyConfig
	NATSURL     string
	Retention   RetentionConfig
	Log         LogConfig

	// Warnings collected while loading, logged once the logger exists
	Warnings []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type         string // postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the draft store connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DraftTTL time.Duration
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	// Requests per minute per IP on /api/auth
	RateLimit int
}

// MonitorConfig holds the vital-signs session settings
type MonitorConfig struct {
	TickInterval    time.Duration
	HistoryCapacity int
	DefaultCasualty string
	Locale          string
	Timezone        string
	TimeLayout      string
	ThresholdsFile  string
	AlertAllSignals bool
}

// GeminiConfig holds the image triage model settings
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// UploadConfig holds local upload settings
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// S3Config holds object storage settings; an empty bucket keeps uploads local
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	PresignedTTL    time.Duration
}

// Enabled reports whether uploads go to S3
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// HospitalConfig holds the hospital transfer endpoint
type HospitalConfig struct {
	APIURL     string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// NotifyConfig holds alert notification targets
type NotifyConfig struct {
	WebhookURL       string
	NtfyServer       string
	NtfyTopic        string
	NtfyToken        string
	NtfyPriority     int
	SlackWebhookURL  string
	TelegramBotToken string
	TelegramChatID   string
}

// RetentionConfig holds purge windows in days
type RetentionConfig struct {
	UploadDays       int
	TreatmentLogDays int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables, reading .env first when present
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "production")
	var warnings []string

	jwtSecret, err := loadJWTSecret(env, &warnings)
	if err != nil {
		return nil, err
	}

	tick, err := getEnvDuration("MONITOR_TICK_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	tokenTTL, err := getEnvDuration("ACCESS_TOKEN_TTL", time.Hour)
	if err != nil {
		return nil, err
	}
	draftTTL, err := getEnvDuration("DRAFT_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := getEnvDuration("GEMINI_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	hospitalTimeout, err := getEnvDuration("HOSPITAL_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	presignedTTL, err := getEnvDuration("S3_PRESIGNED_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: env,
		CORSOrigins: loadCORSOrigins(env, &warnings),
		Database: DatabaseConfig{
			Type:         getEnv("DATABASE_TYPE", "postgres"),
			DSN:          getEnv("DATABASE_DSN", buildPostgresDSN()),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			DraftTTL: draftTTL,
		},
		Auth: AuthConfig{
			JWTSecret:      jwtSecret,
			AccessTokenTTL: tokenTTL,
			RateLimit:      getEnvInt("AUTH_RATE_LIMIT", 20),
		},
		Monitor: MonitorConfig{
			TickInterval:    tick,
			HistoryCapacity: getEnvInt("MONITOR_HISTORY_CAPACITY", 120),
			DefaultCasualty: getEnv("MONITOR_DEFAULT_CASUALTY", "patient1"),
			Locale:          getEnv("MONITOR_LOCALE", "he"),
			Timezone:        getEnv("MONITOR_TIMEZONE", "Asia/Jerusalem"),
			TimeLayout:      getEnv("MONITOR_TIME_LAYOUT", "2006-01-02 15:04:05"),
			ThresholdsFile:  os.Getenv("MONITOR_THRESHOLDS_FILE"),
			AlertAllSignals: getEnvBool("ALERT_ALL_SIGNALS", false),
		},
		Gemini: GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: geminiTimeout,
		},
		Uploads: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "triage"),
			PresignedTTL:    presignedTTL,
		},
		Hospital: HospitalConfig{
			APIURL:     strings.TrimRight(os.Getenv("HOSPITAL_API_URL"), "/"),
			APIKey:     os.Getenv("HOSPITAL_API_KEY"),
			Timeout:    hospitalTimeout,
			RetryCount: getEnvInt("HOSPITAL_RETRY_COUNT", 3),
		},
		Notify: NotifyConfig{
			WebhookURL:       os.Getenv("ALERT_WEBHOOK_URL"),
			NtfyServer:       getEnv("NTFY_SERVER", "https://ntfy.sh"),
			NtfyTopic:        os.Getenv("NTFY_TOPIC"),
			NtfyToken:        os.Getenv("NTFY_TOKEN"),
			NtfyPriority:     getEnvInt("NTFY_PRIORITY", 4),
			SlackWebhookURL:  os.Getenv("SLACK_WEBHOOK_URL"),
			TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},
		NATSURL: os.Getenv("NATS_URL"),
		Retention: RetentionConfig{
			UploadDays:       getEnvInt("UPLOAD_RETENTION_DAYS", 30),
			TreatmentLogDays: getEnvInt("TREATMENT_LOG_RETENTION_DAYS", 90),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Warnings: warnings,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func buildPostgresDSN() string {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "rescuemind")
	password := getEnv("POSTGRES_PASSWORD", "secret")
	dbName := getEnv("POSTGRES_DB", "rescuemind")
	sslMode := getEnv("POSTGRES_SSLMODE", "disable")

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, password),
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   dbName,
	}

	query := u.Query()
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}

		insecureSecrets := []string{
			"change-this-secret-in-production",
			"change-me-in-production",
			"secret",
			"password",
			"changeme",
		}
		for _, insecure := range insecureSecrets {
			if c.Auth.JWTSecret == insecure {
				return fmt.Errorf("JWT_SECRET is set to an insecure default value. Please set a strong random secret")
			}
		}
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("MONITOR_TICK_INTERVAL must be positive")
	}
	if c.Monitor.HistoryCapacity <= 0 {
		return fmt.Errorf("MONITOR_HISTORY_CAPACITY must be positive")
	}
	if c.Monitor.Locale != "he" && c.Monitor.Locale != "en" {
		return fmt.Errorf("unsupported MONITOR_LOCALE: %s", c.Monitor.Locale)
	}
	if _, err := time.LoadLocation(c.Monitor.Timezone); err != nil {
		return fmt.Errorf("invalid MONITOR_TIMEZONE: %w", err)
	}

	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Retention.UploadDays <= 0 || c.Retention.TreatmentLogDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}

	if c.S3.Enabled() && c.S3.Region == "" {
		return fmt.Errorf("S3_REGION is required when S3_BUCKET is set")
	}

	return nil
}

// Location returns the export time zone
func (c MonitorConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadJWTSecret(env string, warnings *[]string) (string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = os.Getenv("ACCESS_TOKEN_SECRET")
	}

	if secret == "" {
		if env == "production" {
			return "", fmt.Errorf("JWT_SECRET environment variable is required in production")
		}

		*warnings = append(*warnings,
			"JWT_SECRET not set. Generating random secret for development.",
			"This secret will change on restart. Set JWT_SECRET in production!")
		return generateRandomSecret()
	}

	if len(secret) < 16 {
		return "", fmt.Errorf("JWT_SECRET must be at least 16 characters long")
	}

	return secret, nil
}

func loadCORSOrigins(env string, warnings *[]string) []string {
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		return splitAndTrim(origins, ",")
	}
	if appURL := getAppURL(); appURL != "" {
		return []string{appURL}
	}

	if env != "development" {
		*warnings = append(*warnings,
			"APP_URL not set. Using default localhost origins.",
			"Set APP_URL environment variable for production deployments.")
	}
	return []string{"http://localhost:3000", "http://localhost:8080"}
}

func splitAndTrim(s, sep string) []string {
	parts := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func generateRandomSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func getAppURL() string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		return ""
	}
	return strings.TrimRight(appURL, "/")
}
