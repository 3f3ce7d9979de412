package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	KeycloakURL          string // Required: base URL of the identity provider
	KeycloakRealm        string // Required: realm the portal manages
	KeycloakClientID     string // Required: service-account client ID
	KeycloakClientSecret string // Required: service-account client secret

	TenantDomain string // Required: email domain of workspace members (e.g. "tenant.example")
	BaseURL      string // Required: public base URL of this portal

	WebmailURL              string // Optional: post-recovery landing page (default: https://webmail.<TenantDomain>)
	CompleteRegistrationURL string // Optional: post-invitation landing page (default: <BaseURL>/complete-registration)

	BeginSetupSecret  string // Optional: dedicated HMAC secret for setup tokens
	SessionSecret     string // Required unless BeginSetupSecret is set: general secret tokens derive from
	InternalAuthToken string // Required: shared secret for operator endpoints

	RedisAddr     string // Optional: Redis address for shared rate limiting (default: in-memory)
	RedisPassword string // Optional

	AuditDatabaseFile string // Optional: path to SQLite audit database (empty disables the audit log)

	MailProvider string // Optional: notification mail provider (console, ses) (default: console)
	MailFrom     string // Required when MailProvider=ses

	StalwartURL           string // Optional: mail server admin API for mailbox provisioning
	StalwartAdminUser     string // Optional
	StalwartAdminPassword string // Optional

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		KeycloakURL:          os.Getenv("KEYCLOAK_URL"),
		KeycloakRealm:        os.Getenv("KEYCLOAK_REALM"),
		KeycloakClientID:     getEnvOrDefault("KEYCLOAK_CLIENT_ID", "account-portal"),
		KeycloakClientSecret: os.Getenv("KEYCLOAK_CLIENT_SECRET"),

		TenantDomain: os.Getenv("TENANT_DOMAIN"),
		BaseURL:      strings.TrimRight(os.Getenv("BASE_URL"), "/"),

		WebmailURL:              os.Getenv("WEBMAIL_URL"),
		CompleteRegistrationURL: os.Getenv("COMPLETE_REGISTRATION_URL"),

		BeginSetupSecret:  os.Getenv("BEGIN_SETUP_SECRET"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		InternalAuthToken: os.Getenv("INTERNAL_AUTH_TOKEN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		AuditDatabaseFile: os.Getenv("AUDIT_DATABASE_FILE"),

		MailProvider: getEnvOrDefault("MAIL_PROVIDER", "console"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		StalwartURL:           os.Getenv("STALWART_URL"),
		StalwartAdminUser:     os.Getenv("STALWART_ADMIN_USER"),
		StalwartAdminPassword: os.Getenv("STALWART_ADMIN_PASSWORD"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.WebmailURL == "" && cfg.TenantDomain != "" {
		cfg.WebmailURL = "https://webmail." + cfg.TenantDomain
	}
	if cfg.CompleteRegistrationURL == "" && cfg.BaseURL != "" {
		cfg.CompleteRegistrationURL = cfg.BaseURL + "/complete-registration"
	}

	return cfg
}

// Validate reports the first missing required setting. Fail fast at
// startup rather than on the first request that needs the value.
func (cfg Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"KEYCLOAK_URL", cfg.KeycloakURL},
		{"KEYCLOAK_REALM", cfg.KeycloakRealm},
		{"KEYCLOAK_CLIENT_SECRET", cfg.KeycloakClientSecret},
		{"TENANT_DOMAIN", cfg.TenantDomain},
		{"BASE_URL", cfg.BaseURL},
		{"INTERNAL_AUTH_TOKEN", cfg.InternalAuthToken},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("missing required environment variable %s", r.name)
		}
	}

	if cfg.BeginSetupSecret == "" && cfg.SessionSecret == "" {
		return fmt.Errorf("either BEGIN_SETUP_SECRET or SESSION_SECRET must be set")
	}
	if cfg.MailProvider == "ses" && cfg.MailFrom == "" {
		return fmt.Errorf("MAIL_FROM is required when MAIL_PROVIDER=ses")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
