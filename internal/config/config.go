package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrServiceMisconfigured is returned when a required server secret is
// missing. Endpoints that depend on the secret refuse to operate instead
// of falling back to a default.
var ErrServiceMisconfigured = errors.New("service_misconfigured")

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	// Session cookies.
	CookieDomain     string
	AuthCookieSecure bool
	SessionTTL       time.Duration
	RefreshTTL       time.Duration

	// Token Codec signing secret.
	JWTSecret string

	// TOTP secret encryption: master key plus the fixed KDF salt.
	TOTPMasterKey  string
	TOTPKDFSalt    string
	TOTPIssuer     string
	BackupCodeSalt string

	// Cross-domain SSO relay.
	SSOAllowedOrigins []string

	RedisAddr     string
	RedisPassword string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:     getenv("APP_SERVICE", "feltflyt"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		CookieDomain:     strings.TrimSpace(getenv("AUTH_COOKIE_DOMAIN", "")),
		AuthCookieSecure: authCookieSecure,
		SessionTTL:       getenvDuration("SESSION_TTL", 30*24*time.Hour),
		RefreshTTL:       getenvDuration("REFRESH_TTL", 90*24*time.Hour),

		JWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),

		TOTPMasterKey:  strings.TrimSpace(getenv("TOTP_MASTER_KEY", "")),
		TOTPKDFSalt:    strings.TrimSpace(getenv("TOTP_KDF_SALT", "")),
		TOTPIssuer:     getenv("TOTP_ISSUER", "Feltflyt"),
		BackupCodeSalt: strings.TrimSpace(getenv("BACKUP_CODE_SALT", "")),

		SSOAllowedOrigins: splitList(getenv("SSO_ALLOWED_ORIGINS", "")),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "feltflyt"),
		DBUser:            getenv("DATABASE_USER", "feltflyt"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// ValidateTokenSecrets reports whether the Token Codec can operate.
func (c Config) ValidateTokenSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: AUTH_JWT_SECRET is not set", ErrServiceMisconfigured)
	}
	return nil
}

// ValidateTOTPSecrets reports whether the TOTP engine can operate.
// The engine never substitutes defaults for missing key material.
func (c Config) ValidateTOTPSecrets() error {
	var missing []string
	if c.TOTPMasterKey == "" {
		missing = append(missing, "TOTP_MASTER_KEY")
	}
	if c.TOTPKDFSalt == "" {
		missing = append(missing, "TOTP_KDF_SALT")
	}
	if c.BackupCodeSalt == "" {
		missing = append(missing, "BACKUP_CODE_SALT")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrServiceMisconfigured, strings.Join(missing, ", "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
