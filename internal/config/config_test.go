package config

import (
	"strings"
	"testing"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/test.db")
	t.Setenv("DB_POOL_MAX", "20")
	t.Setenv("ENABLE_CORS", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PROXY_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != "9090" {
		t.Errorf("expected HTTPPort 9090, got %s", cfg.HTTPPort)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.DBDriver)
	}
	if cfg.PoolMaxConns != 20 {
		t.Errorf("expected PoolMaxConns 20, got %d", cfg.PoolMaxConns)
	}
	if cfg.EnableCORS {
		t.Error("expected CORS disabled")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
	if cfg.ProxyEnabled {
		t.Error("expected proxy disabled")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestProxyRequired(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		enabled  bool
		connName string
		want     bool
	}{
		{"enabled with connection", true, "proj:region:instance", true},
		{"enabled without connection", true, "", false},
		{"disabled with connection", false, "proj:region:instance", false},
		{"disabled without connection", false, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{ProxyEnabled: tc.enabled, CloudSQLConnectionName: tc.connName}
			if got := cfg.ProxyRequired(); got != tc.want {
				t.Errorf("ProxyRequired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDatabaseAddrSelection(t *testing.T) {
	t.Parallel()

	base := Config{
		DBHost:                 "db.internal",
		DBPort:                 "5433",
		ProxyEnabled:           true,
		ProxyPort:              5432,
		CloudSQLConnectionName: "proj:region:instance",
	}

	// Private IP wins when running on Cloud Run with private networking.
	cfg := base
	cfg.CloudRunMode = true
	cfg.UsePrivateIP = true
	cfg.CloudSQLPrivateIP = "10.1.2.3"
	if host, port := cfg.DatabaseAddr(); host != "10.1.2.3" || port != "5433" {
		t.Errorf("private IP path: got %s:%s", host, port)
	}

	// Proxy endpoint when the supervisor will run.
	cfg = base
	if host, port := cfg.DatabaseAddr(); host != "127.0.0.1" || port != "5432" {
		t.Errorf("proxy path: got %s:%s", host, port)
	}

	// Direct host when the proxy is switched off entirely.
	cfg = base
	cfg.ProxyEnabled = false
	if host, port := cfg.DatabaseAddr(); host != "db.internal" || port != "5433" {
		t.Errorf("direct path: got %s:%s", host, port)
	}
}

func TestDatabaseURLEscapesCredentials(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		DBHost:     "localhost",
		DBPort:     "5432",
		DBUser:     "svc user",
		DBPassword: "p@ss/word",
		DBName:     "FinAdvisor",
	}
	dsn := cfg.DatabaseURL()
	if strings.Contains(dsn, "p@ss/word") {
		t.Errorf("password not escaped in DSN: %s", dsn)
	}
	if !strings.Contains(dsn, "localhost:5432/FinAdvisor") {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}
