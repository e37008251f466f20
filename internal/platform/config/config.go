package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "enrolldesk/pkg/platform/strings"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string

	KafkaBrokers    []string
	AuditTopic      string
	SESRegion       string
	EmailSender     string
	DispatchTimeout time.Duration
	ResendCooldown  time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("ENROLLDESK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	sender := os.Getenv("EMAIL_SENDER")
	if sender == "" {
		sender = "admissions@localhost"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "enrolldesk.audit"
	}

	return Config{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSigningKey:   jwtSigningKey,
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:      auditTopic,
		SESRegion:       os.Getenv("SES_REGION"),
		EmailSender:     sender,
		DispatchTimeout: durationEnv("DISPATCH_TIMEOUT_SECONDS", 10*time.Second),
		ResendCooldown:  durationEnv("RESEND_COOLDOWN_SECONDS", 5*time.Minute),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(s, ","))
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
