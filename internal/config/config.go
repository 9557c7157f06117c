package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultJWTSecret is only accepted outside production.
const DefaultJWTSecret = "blabbermouth-dev-secret-change-in-production"

type Config struct {
	APIVersion     string
	JWTSecret      string
	APIPort        string
	WSPort         string
	PostgresURI    string
	RedisURI       string   // empty disables Redis pub/sub and Redis rate limiting
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS (comma separated)
	AllowedHost    string   // ALLOWED_HOST: bare hostname checked in production, empty disables
	Environment    string   // ENV: production, development, etc.
	MetricsEnabled bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	secret := getEnv("API_JWT_SECRET", "")
	if secret == "" && env != "production" {
		secret = DefaultJWTSecret
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173"}
	}

	metrics, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", "false"))

	return &Config{
		APIVersion:     strings.Trim(getEnv("API_VERSION", "v1"), "/"),
		JWTSecret:      secret,
		APIPort:        getEnv("API_PORT", "3000"),
		WSPort:         getEnv("WSS_PORT", "3001"),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/blabbermouth?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", ""),
		AllowedOrigins: allowedOrigins,
		AllowedHost:    strings.TrimSpace(getEnv("ALLOWED_HOST", "")),
		Environment:    env,
		MetricsEnabled: metrics,
	}
}

// Validate reports configuration that the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("API_JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		return errors.New("API_JWT_SECRET must not use the development default in production")
	}
	if c.APIVersion == "" {
		return errors.New("API_VERSION must not be empty")
	}
	for name, port := range map[string]string{"API_PORT": c.APIPort, "WSS_PORT": c.WSPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("%s: invalid port %q", name, port)
		}
	}
	if c.APIPort == c.WSPort {
		return fmt.Errorf("API_PORT and WSS_PORT must differ (both %s)", c.APIPort)
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// RedisEnabled reports whether REDIS_URI was configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisURI) != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
