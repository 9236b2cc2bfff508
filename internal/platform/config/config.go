package config

import (
	"os"
	"strconv"
)

// Server captures process-level configuration read once at startup.
type Server struct {
	Addr          string
	MetricsAddr   string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string
	AuditBuffer   int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DAYCARE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	metricsAddr := os.Getenv("DAYCARE_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://postgres@localhost:5432/daycare_planner?sslmode=disable"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditBuffer := 1024
	if raw := os.Getenv("AUDIT_BUFFER"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			auditBuffer = n
		}
	}

	return Server{
		Addr:          addr,
		MetricsAddr:   metricsAddr,
		DatabaseURL:   dbURL,
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSigningKey: jwtSigningKey,
		AuditBuffer:   auditBuffer,
	}
}
