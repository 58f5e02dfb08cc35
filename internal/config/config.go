package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Storefront HTTP server
	Addr            string
	CorsOrigin      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "json" | "text"

	// Marketplace REST API (also proxies the SkillsFuture directory)
	MarketplaceBaseURL      string
	MarketplaceAssetBaseURL string

	// SkillsFuture external catalog
	SkillsFutureAssetBaseURL  string
	SkillsFutureDetailBaseURL string

	// Outbound HTTP
	HTTPTimeout     time.Duration
	HTTPMaxAttempts int
	HTTPRateRPS     float64
	HTTPRateBurst   int

	// Catalog
	CatalogPageSize      int
	CatalogReviewWorkers int

	// Browser sessions
	SessionLifetime      time.Duration
	SessionCookieSecure  bool
	SessionRedisAddr     string
	SessionRedisPassword string
	SessionRedisDB       int

	// Inbound rate limit for login/registration/contact forms
	FormRateRPS   float64
	FormRateBurst int

	// SFTP (catalog export)
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("STOREFRONT_ADDR", ":8080"),
		CorsOrigin:      os.Getenv("CORS_ORIGIN"),
		ReadTimeout:     getenvDuration("STOREFRONT_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getenvDuration("STOREFRONT_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getenvDuration("STOREFRONT_SHUTDOWN_TIMEOUT", 20*time.Second),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		MarketplaceBaseURL:      strings.TrimRight(getenv("MARKETPLACE_BASE_URL", "http://localhost:5000"), "/"),
		MarketplaceAssetBaseURL: getenv("MARKETPLACE_ASSET_BASE_URL", "http://localhost:5000"),

		SkillsFutureAssetBaseURL:  getenv("SKILLSFUTURE_ASSET_BASE_URL", "https://www.myskillsfuture.gov.sg"),
		SkillsFutureDetailBaseURL: getenv("SKILLSFUTURE_DETAIL_BASE_URL", "https://www.myskillsfuture.gov.sg/content/portal/en/training-exchange/course-directory/course-detail.html"),

		HTTPTimeout:     getenvDuration("HTTP_TIMEOUT", 30*time.Second),
		HTTPMaxAttempts: getenvInt("HTTP_MAX_ATTEMPTS", 3),
		HTTPRateRPS:     getenvFloat("HTTP_RATE_RPS", 20),
		HTTPRateBurst:   getenvInt("HTTP_RATE_BURST", 10),

		CatalogPageSize:      getenvInt("CATALOG_PAGE_SIZE", 15),
		CatalogReviewWorkers: getenvInt("CATALOG_REVIEW_WORKERS", 4),

		SessionLifetime:      getenvDuration("SESSION_LIFETIME", 12*time.Hour),
		SessionCookieSecure:  getenvBool("SESSION_COOKIE_SECURE", false),
		SessionRedisAddr:     os.Getenv("SESSION_REDIS_ADDR"),
		SessionRedisPassword: os.Getenv("SESSION_REDIS_PASSWORD"),
		SessionRedisDB:       getenvInt("SESSION_REDIS_DB", 0),

		FormRateRPS:   getenvFloat("FORM_RATE_RPS", 1),
		FormRateBurst: getenvInt("FORM_RATE_BURST", 5),

		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/inbound"),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", false),
	}
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go durations ("90s") or plain seconds ("90").
func getenvDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
