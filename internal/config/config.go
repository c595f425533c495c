package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Security SecurityConfig
	Images   ImagesConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins
}

type AppConfig struct {
	Env          string // NODE_ENV; "production" selects the strict header profile
	UpstreamURL  string // storefront origin the gateway proxies to
	PublicAppURL string // NEXT_PUBLIC_APP_URL, passed through verbatim
	PublicAPIURL string // NEXT_PUBLIC_API_URL, passed through verbatim
}

type SecurityConfig struct {
	// HeadersEnabled defaults to true; only the literal value "false"
	// disables the header set. Fail-open by design, see DESIGN.md.
	HeadersEnabled bool
	CSPReportURI   string
	// ReportRateLimit submissions per ReportRateWindow per client IP.
	ReportRateLimit  int
	ReportRateWindow time.Duration
	ReportMaxBytes   int64
}

type ImagesConfig struct {
	Formats     []string // accepted output formats, most preferred first
	RemoteHosts []string // hosts the image proxy may fetch from
	DeviceSizes []int    // full-viewport responsive breakpoints
	ImageSizes  []int    // fixed-size image widths
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for managed Postgres, empty for local
}

type AdminConfig struct {
	// APIKeyHash is a bcrypt hash of the operator API key. Empty disables
	// the admin API entirely.
	APIKeyHash string
	// PasetoKey is the symmetric key for admin session tokens (must be
	// 32 bytes for v4.local).
	PasetoKey     []byte
	TokenDuration time.Duration
}

// Load reads configuration from environment variables.
// Call godotenv.Load() before this if using a .env file.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		App: AppConfig{
			Env:          getEnv("NODE_ENV", "development"),
			UpstreamURL:  getEnv("UPSTREAM_URL", "http://localhost:3000"),
			PublicAppURL: getEnv("NEXT_PUBLIC_APP_URL", ""),
			PublicAPIURL: getEnv("NEXT_PUBLIC_API_URL", ""),
		},
		Security: SecurityConfig{
			HeadersEnabled:   os.Getenv("ENABLE_SECURITY_HEADERS") != "false",
			CSPReportURI:     getEnv("CSP_REPORT_URI", "/api/csp-report"),
			ReportRateLimit:  getIntEnv("CSP_REPORT_RATE_LIMIT", 30),
			ReportRateWindow: getDurationEnv("CSP_REPORT_RATE_WINDOW", 60),
			ReportMaxBytes:   int64(getIntEnv("CSP_REPORT_MAX_BYTES", 64*1024)),
		},
		Images: ImagesConfig{
			Formats:     getSliceEnv("IMAGE_FORMATS", []string{"image/avif", "image/webp"}),
			RemoteHosts: getSliceEnv("IMAGE_REMOTE_HOSTS", []string{"images.unsplash.com", "res.cloudinary.com"}),
			DeviceSizes: getIntSliceEnv("IMAGE_DEVICE_SIZES", []int{640, 750, 828, 1080, 1200, 1920, 2048, 3840}),
			ImageSizes:  getIntSliceEnv("IMAGE_SIZES", []int{16, 32, 48, 64, 96, 128, 256, 384}),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "storefront_edge"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
		},
		Admin: AdminConfig{
			APIKeyHash:    getEnv("ADMIN_API_KEY_HASH", ""),
			PasetoKey:     []byte(getEnv("ADMIN_PASETO_KEY", "")),
			TokenDuration: getDurationEnv("ADMIN_TOKEN_DURATION", 3600),
		},
	}

	if _, err := url.Parse(cfg.App.UpstreamURL); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	// Validate the PASETO key only when the admin API is enabled
	if cfg.Admin.Enabled() && len(cfg.Admin.PasetoKey) != 32 {
		return nil, fmt.Errorf("ADMIN_PASETO_KEY must be exactly 32 bytes, got %d", len(cfg.Admin.PasetoKey))
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns the Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether NODE_ENV selects the strict header profile
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// Enabled reports whether the admin API is configured
func (c *AdminConfig) Enabled() bool {
	return c.APIKeyHash != ""
}

// AllowsHost reports whether the image proxy may fetch from the given host
func (c *ImagesConfig) AllowsHost(host string) bool {
	for _, h := range c.RemoteHosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// AllowsWidth reports whether w is one of the configured responsive widths
func (c *ImagesConfig) AllowsWidth(w int) bool {
	for _, s := range c.DeviceSizes {
		if s == w {
			return true
		}
	}
	for _, s := range c.ImageSizes {
		if s == w {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getDurationEnv reads a duration expressed in whole seconds.
func getDurationEnv(key string, defaultSeconds int) time.Duration {
	seconds := getIntEnv(key, defaultSeconds)
	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

func getIntSliceEnv(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		result = append(result, n)
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
