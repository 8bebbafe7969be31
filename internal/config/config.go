package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisAddr      string
	RedisPassword  string
	NotifyQueueKey string
	NotifyWorkers  int
	NotifyBuffer   int

	PostgresDSN string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	ProductName  string
	ProductLink  string

	BcryptCost          int
	GraphRepairSchedule string
	CORSOrigins         []string
}

// ErrMissingMongoURL is returned by Load when no persistence connection
// string is configured. The server cannot start without it.
var ErrMissingMongoURL = errors.New("MONGO_URL is not defined in the environment variables")

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	smtpPort, err := strconv.Atoi(getenv("SMTP_PORT", "587"))
	if err != nil {
		return nil, err
	}
	bcryptCost, err := strconv.Atoi(getenv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, err
	}
	workers, err := strconv.Atoi(getenv("NOTIFY_WORKERS", "2"))
	if err != nil {
		return nil, err
	}
	buffer, err := strconv.Atoi(getenv("NOTIFY_BUFFER", "256"))
	if err != nil {
		return nil, err
	}

	user := getenv("EMAIL_USER", "")
	cfg := &Config{
		Port:                getenv("PORT", "2020"),
		AppEnv:              getenv("APP_ENV", "development"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		MongoURI:            getenv("MONGO_URL", ""),
		MongoDB:             getenv("MONGO_DB", "socialmedia"),
		MongoTransactions:   getenv("MONGO_TRANSACTIONS", "false") == "true",
		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		NotifyQueueKey:      getenv("NOTIFY_QUEUE_KEY", "notifications"),
		NotifyWorkers:       workers,
		NotifyBuffer:        buffer,
		PostgresDSN:         getenv("POSTGRES_DSN", ""),
		MinioEndpoint:       getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey:      getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:      getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:         getenv("MINIO_BUCKET", "profile-pictures"),
		MinioUseSSL:         getenv("MINIO_USE_SSL", "false") == "true",
		SMTPHost:            getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            smtpPort,
		SMTPUser:            user,
		SMTPPassword:        getenv("EMAIL_PASS", ""),
		MailFrom:            getenv("EMAIL_FROM", user),
		ProductName:         getenv("PRODUCT_NAME", "SocialMedia"),
		ProductLink:         getenv("PRODUCT_LINK", "https://yourcompany.com/"),
		BcryptCost:          bcryptCost,
		GraphRepairSchedule: schedule("GRAPH_REPAIR_SCHEDULE", "@every 1h"),
		CORSOrigins:         splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
	}

	if cfg.MongoURI == "" {
		return nil, ErrMissingMongoURL
	}
	return cfg, nil
}

// Pretty reports whether logs should be human-readable.
func (c *Config) Pretty() bool {
	return c.AppEnv != "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// schedule reads a cron spec. Unset means fallback; an empty value or "off"
// disables the job.
func schedule(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if v = strings.TrimSpace(v); strings.EqualFold(v, "off") {
		return ""
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
