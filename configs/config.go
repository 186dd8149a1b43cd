package config

import (
	"os"
	"strconv"
	"time"
)

type Tiktok struct {
	ClientKey     string
	ClientSecret  string
	RedirectURI   string
	APIBaseURL    string
	AuthURL       string
	Mode          string // live, fake
	Timeout       time.Duration
	UploadTimeout time.Duration
	SettleDelay   time.Duration
}

type Storage struct {
	Type      string // local, s3
	UploadDir string
	TempDir   string
	S3        S3
}

type S3 struct {
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Scheduler struct {
	Interval      string
	Window        time.Duration
	StaleAfter    time.Duration
	RefreshEvery  string
	RefreshAhead  time.Duration
	Dispatch      string // inline, queue
	RefreshMargin time.Duration
}

type Config struct {
	Port         string
	PostgresURI  string
	RedisURI     string
	FrontendURL  string
	SecretKey    string
	CookieName   string
	MaxUploadMB  int
	AutoMigrate  bool
	Tiktok       Tiktok
	Storage      Storage
	Scheduler    Scheduler
	SessionHours int
}

func LoadConfig() *Config {
	return &Config{
		Port:         getEnv("PORT", "5000"),
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", ""),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		SecretKey:    getEnv("SECRET_KEY", ""),
		CookieName:   getEnv("COOKIE_NAME", "scheduler_session"),
		MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 500),
		AutoMigrate:  getEnvBool("AUTO_MIGRATE", true),
		SessionHours: getEnvInt("SESSION_HOURS", 24),
		Tiktok: Tiktok{
			ClientKey:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret:  getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:   getEnv("TIKTOK_REDIRECT_URI", "http://localhost:5000/auth/tiktok/callback"),
			APIBaseURL:    getEnv("TIKTOK_API_BASE_URL", "https://open.tiktokapis.com/v2"),
			AuthURL:       getEnv("TIKTOK_AUTH_URL", "https://www.tiktok.com/v2/auth/authorize/"),
			Mode:          getEnv("TIKTOK_MODE", "live"),
			Timeout:       getEnvDuration("TIKTOK_TIMEOUT", 60*time.Second),
			UploadTimeout: getEnvDuration("TIKTOK_UPLOAD_TIMEOUT", 10*time.Minute),
			SettleDelay:   getEnvDuration("TIKTOK_SETTLE_DELAY", 3*time.Second),
		},
		Storage: Storage{
			Type:      getEnv("STORAGE_TYPE", "local"),
			UploadDir: getEnv("UPLOAD_DIR", "uploads/videos"),
			TempDir:   getEnv("TEMP_DIR", "uploads/temp"),
			S3: S3{
				Region:     getEnv("AWS_REGION", "us-east-1"),
				Endpoint:   getEnv("AWS_S3_ENDPOINT", ""),
				AccessKey:  getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
				BucketName: getEnv("AWS_S3_BUCKET_NAME", ""),
			},
		},
		Scheduler: Scheduler{
			Interval:      getEnv("SCHEDULER_INTERVAL", "@every 1m"),
			Window:        getEnvDuration("SCHEDULER_WINDOW", 60*time.Second),
			StaleAfter:    getEnvDuration("SCHEDULER_STALE_AFTER", 15*time.Minute),
			RefreshEvery:  getEnv("TOKEN_REFRESH_INTERVAL", "@every 10m"),
			RefreshAhead:  getEnvDuration("TOKEN_REFRESH_AHEAD", 30*time.Minute),
			Dispatch:      getEnv("PUBLISH_DISPATCH", "inline"),
			RefreshMargin: getEnvDuration("TOKEN_REFRESH_MARGIN", 5*time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
