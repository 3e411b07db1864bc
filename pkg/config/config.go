// Package config loads service configuration from environment variables
// and validates it for the health surface and production startup.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DevSigningKey is the documented development default for
// AUDIT_SIGNING_KEY. Production startup refuses it.
const DevSigningKey = "dev-signing-key"

// Config holds server configuration.
type Config struct {
	Port        string
	Environment string // "dev" or "prod"
	DatabaseURL string
	SigningKey  string
	UploadsRoot string
	LogFile     string

	EvidenceRetentionDays int
	PayloadRetentionDays  int

	CORSOrigins  string
	DevSeedToken string
	OpenAIKey    string
	GeminiKey    string
	RedisAddr    string
	JWTSecret    string
	OTLPEndpoint string
}

// Load reads configuration from environment variables, applying defaults.
func Load() *Config {
	return &Config{
		Port:                  envOr("PORT", "8001"),
		Environment:           envOr("APP_ENV", "dev"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SigningKey:            envOr("AUDIT_SIGNING_KEY", DevSigningKey),
		UploadsRoot:           envOr("UPLOADS_ROOT", "./uploads"),
		LogFile:               os.Getenv("LOG_FILE"),
		EvidenceRetentionDays: envInt("EVIDENCE_RETENTION_DAYS", 30),
		PayloadRetentionDays:  envInt("PAYLOAD_RETENTION_DAYS", 90),
		CORSOrigins:           envOr("CORS_ORIGINS", "*"),
		DevSeedToken:          os.Getenv("DEV_SEED_TOKEN"),
		OpenAIKey:             os.Getenv("OPENAI_API_KEY"),
		GeminiKey:             os.Getenv("GEMINI_API_KEY"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// Production reports whether the service runs with production rules.
func (c *Config) Production() bool { return c.Environment == "prod" }

// Report is the environment validation result served by /health/details.
// It never contains secret values, only presence flags.
type Report struct {
	OK          bool            `json:"ok"`
	Environment string          `json:"environment"`
	MissingEnv  []string        `json:"missing_env"`
	Warnings    []string        `json:"warnings"`
	Config      map[string]bool `json:"config"`
}

// Validate checks critical and advisory environment settings.
func (c *Config) Validate() Report {
	rep := Report{
		Environment: c.Environment,
		MissingEnv:  []string{},
		Warnings:    []string{},
		Config: map[string]bool{
			"database_url_set":   c.DatabaseURL != "",
			"signing_key_set":    c.SigningKey != "" && c.SigningKey != DevSigningKey,
			"rag_enabled":        c.OpenAIKey != "" || c.GeminiKey != "",
			"seed_endpoint":      c.DevSeedToken != "",
			"redis_claimer":      c.RedisAddr != "",
			"jwt_auth":           c.JWTSecret != "",
			"metrics_export":     c.OTLPEndpoint != "",
			"log_rotation":       c.LogFile != "",
			"production_profile": c.Production(),
		},
	}

	if c.DatabaseURL == "" {
		rep.MissingEnv = append(rep.MissingEnv, "DATABASE_URL")
	}
	if c.Production() && (c.SigningKey == "" || c.SigningKey == DevSigningKey) {
		rep.MissingEnv = append(rep.MissingEnv, "AUDIT_SIGNING_KEY")
	}

	if c.OpenAIKey == "" && c.GeminiKey == "" {
		rep.Warnings = append(rep.Warnings, "OPENAI_API_KEY/GEMINI_API_KEY absent: RAG features disabled")
	}
	if c.Production() && c.CORSOrigins == "*" {
		rep.Warnings = append(rep.Warnings, "CORS_ORIGINS is '*' in production")
	}
	if c.Production() && c.DevSeedToken == "" {
		rep.Warnings = append(rep.Warnings, "DEV_SEED_TOKEN absent: seed endpoint unavailable")
	}

	rep.OK = len(rep.MissingEnv) == 0
	return rep
}

// CheckStartup returns an error describing why production startup must be
// refused, or nil. Dev startup never fails validation.
func (c *Config) CheckStartup() error {
	if !c.Production() {
		return nil
	}
	rep := c.Validate()
	if !rep.OK {
		return fmt.Errorf("refusing production startup, missing env: %v", rep.MissingEnv)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
