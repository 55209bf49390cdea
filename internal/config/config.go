// Package config provides application configuration.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at startup
// and passed explicitly to the components that need it.
type Config struct {
	HTTPHost string
	HTTPPort string

	// Database settings. Driver selects the backing store: "postgres" for
	// Cloud SQL / any Postgres instance, "sqlite" for local development.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	PoolMinConns int
	PoolMaxConns int
	DBTimeout    time.Duration

	// Cloud SQL proxy settings. The supervisor runs only when ProxyEnabled
	// is set and a connection name is configured.
	ProxyEnabled           bool
	ProxyPort              int
	CloudSQLConnectionName string

	// Cloud Run network path selection.
	CloudRunMode      bool
	UsePrivateIP      bool
	CloudSQLPrivateIP string

	EnableCORS  bool
	CORSOrigins []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "FinAdvisor"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/statuslog.db"),

		PoolMinConns: getEnvInt("DB_POOL_MIN", 1),
		PoolMaxConns: getEnvInt("DB_POOL_MAX", 10),
		DBTimeout:    time.Duration(getEnvInt("DB_TIMEOUT", 60)) * time.Second,

		ProxyEnabled:           getEnvBool("PROXY_ENABLED", true),
		ProxyPort:              getEnvInt("PROXY_PORT", 5432),
		CloudSQLConnectionName: getEnv("CLOUDSQL_CONNECTION_NAME", ""),

		CloudRunMode:      getEnvBool("CLOUD_RUN_MODE", false),
		UsePrivateIP:      getEnvBool("USE_PRIVATE_IP", false),
		CloudSQLPrivateIP: getEnv("CLOUDSQL_PRIVATE_IP", ""),

		EnableCORS:  getEnvBool("ENABLE_CORS", true),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be \"postgres\" or \"sqlite\", got %q", c.DBDriver)
	}
	if c.DBDriver == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH cannot be empty when DB_DRIVER is sqlite")
	}
	if c.PoolMinConns <= 0 || c.PoolMaxConns < c.PoolMinConns {
		return fmt.Errorf("DB_POOL_MIN/DB_POOL_MAX must satisfy 0 < min <= max")
	}
	if c.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be > 0")
	}
	if c.ProxyPort <= 0 || c.ProxyPort > 65535 {
		return fmt.Errorf("PROXY_PORT must be a valid port number")
	}
	return nil
}

// ProxyRequired returns true if the Cloud SQL proxy must be running before
// the service accepts traffic.
func (c *Config) ProxyRequired() bool {
	return c.ProxyEnabled && c.CloudSQLConnectionName != ""
}

// DatabaseAddr returns the host:port the Postgres driver should dial.
// Private IP wins when running on Cloud Run with private networking; the
// local proxy endpoint is next; the configured host is the fallback for
// environments where the database is directly routable.
func (c *Config) DatabaseAddr() (host, port string) {
	switch {
	case c.CloudRunMode && c.UsePrivateIP && c.CloudSQLPrivateIP != "":
		return c.CloudSQLPrivateIP, c.DBPort
	case c.ProxyRequired():
		return "127.0.0.1", strconv.Itoa(c.ProxyPort)
	default:
		return c.DBHost, c.DBPort
	}
}

// DatabaseURL builds the Postgres DSN from the resolved address.
func (c *Config) DatabaseURL() string {
	host, port := c.DatabaseAddr()
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		url.QueryEscape(c.DBUser),
		url.QueryEscape(c.DBPassword),
		net.JoinHostPort(host, port),
		c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
