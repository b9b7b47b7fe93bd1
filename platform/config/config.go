// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// VoiceProviderConfig provides settings for the outbound voice call provider.
type VoiceProviderConfig interface {
	GetVoiceAPIURL() string
	GetVoiceAPIKey() string
	GetVoiceAgentID() string
	GetVoiceFromNumber() string
	GetVoiceRequestTimeout() time.Duration
	GetVoiceRequestsPerMinute() int
}

// DialerConfig provides pacing and calling-window settings for the dialer engine.
type DialerConfig interface {
	GetDialerLocation() *time.Location
	GetBusinessHourStart() int
	GetBusinessHourEnd() int
	GetMaxCallAttempts() int
	GetPacingMinDelay() time.Duration
	GetPacingMaxDelay() time.Duration
	GetMaxConcurrentCalls() int
	GetDialerBatchSize() int
}

// SchedulerConfig provides settings for the asynq-backed cycle scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCycleCron() string
}

// AlertConfig provides settings for operator alert emails.
type AlertConfig interface {
	GetAlertsEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromAddress() string
	GetAlertFromName() string
	GetAlertRecipient() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	VoiceAPIURL            string
	VoiceAPIKey            string
	VoiceAgentID           string
	VoiceFromNumber        string
	VoiceRequestTimeout    time.Duration
	VoiceRequestsPerMinute int

	DialerLocation     *time.Location
	BusinessHourStart  int
	BusinessHourEnd    int
	MaxCallAttempts    int
	PacingMinDelay     time.Duration
	PacingMaxDelay     time.Duration
	MaxConcurrentCalls int
	DialerBatchSize    int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	CycleCron        string

	AlertsEnabled    bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	AlertFromAddress string
	AlertFromName    string
	AlertRecipient   string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// VoiceProviderConfig implementation
func (c *Config) GetVoiceAPIURL() string                { return c.VoiceAPIURL }
func (c *Config) GetVoiceAPIKey() string                { return c.VoiceAPIKey }
func (c *Config) GetVoiceAgentID() string               { return c.VoiceAgentID }
func (c *Config) GetVoiceFromNumber() string            { return c.VoiceFromNumber }
func (c *Config) GetVoiceRequestTimeout() time.Duration { return c.VoiceRequestTimeout }
func (c *Config) GetVoiceRequestsPerMinute() int        { return c.VoiceRequestsPerMinute }

// DialerConfig implementation
func (c *Config) GetDialerLocation() *time.Location  { return c.DialerLocation }
func (c *Config) GetBusinessHourStart() int          { return c.BusinessHourStart }
func (c *Config) GetBusinessHourEnd() int            { return c.BusinessHourEnd }
func (c *Config) GetMaxCallAttempts() int            { return c.MaxCallAttempts }
func (c *Config) GetPacingMinDelay() time.Duration   { return c.PacingMinDelay }
func (c *Config) GetPacingMaxDelay() time.Duration   { return c.PacingMaxDelay }
func (c *Config) GetMaxConcurrentCalls() int         { return c.MaxConcurrentCalls }
func (c *Config) GetDialerBatchSize() int            { return c.DialerBatchSize }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetCycleCron() string      { return c.CycleCron }

// AlertConfig implementation
func (c *Config) GetAlertsEnabled() bool      { return c.AlertsEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetAlertFromAddress() string { return c.AlertFromAddress }
func (c *Config) GetAlertFromName() string    { return c.AlertFromName }
func (c *Config) GetAlertRecipient() string   { return c.AlertRecipient }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	location, err := time.LoadLocation(getEnv("DIALER_TIMEZONE", "Europe/Madrid"))
	if err != nil {
		return nil, fmt.Errorf("invalid DIALER_TIMEZONE: %w", err)
	}

	smtpHost := getEnv("SMTP_HOST", "")
	alertRecipient := getEnv("ALERT_RECIPIENT", "")
	alertsEnabled := strings.EqualFold(getEnv("ALERTS_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		VoiceAPIURL:            getEnv("VOICE_API_URL", ""),
		VoiceAPIKey:            getEnv("VOICE_API_KEY", ""),
		VoiceAgentID:           getEnv("VOICE_AGENT_ID", ""),
		VoiceFromNumber:        getEnv("VOICE_FROM_NUMBER", ""),
		VoiceRequestTimeout:    mustDuration(getEnv("VOICE_REQUEST_TIMEOUT", "15s")),
		VoiceRequestsPerMinute: mustInt(getEnv("VOICE_REQUESTS_PER_MINUTE", "30")),

		DialerLocation:     location,
		BusinessHourStart:  mustInt(getEnv("DIALER_BUSINESS_HOUR_START", "9")),
		BusinessHourEnd:    mustInt(getEnv("DIALER_BUSINESS_HOUR_END", "20")),
		MaxCallAttempts:    mustInt(getEnv("DIALER_MAX_ATTEMPTS", "3")),
		PacingMinDelay:     time.Duration(mustInt(getEnv("DIALER_MIN_DELAY_MINUTES", "2"))) * time.Minute,
		PacingMaxDelay:     time.Duration(mustInt(getEnv("DIALER_MAX_DELAY_MINUTES", "10"))) * time.Minute,
		MaxConcurrentCalls: mustInt(getEnv("DIALER_MAX_CONCURRENT", "1")),
		DialerBatchSize:    mustInt(getEnv("DIALER_BATCH_SIZE", "10")),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "dialer"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "1")),
		CycleCron:        getEnv("DIALER_CYCLE_CRON", ""),

		AlertsEnabled:    alertsEnabled && smtpHost != "" && alertRecipient != "",
		SMTPHost:         smtpHost,
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		AlertFromAddress: getEnv("ALERT_FROM_ADDRESS", ""),
		AlertFromName:    getEnv("ALERT_FROM_NAME", "Dialer"),
		AlertRecipient:   alertRecipient,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.BusinessHourStart < 0 || cfg.BusinessHourEnd > 24 || cfg.BusinessHourStart >= cfg.BusinessHourEnd {
		return nil, fmt.Errorf("invalid business hour window [%d, %d)", cfg.BusinessHourStart, cfg.BusinessHourEnd)
	}
	if cfg.PacingMinDelay <= 0 || cfg.PacingMaxDelay < cfg.PacingMinDelay {
		return nil, fmt.Errorf("invalid pacing delay bounds")
	}
	if cfg.MaxConcurrentCalls < 1 {
		return nil, fmt.Errorf("DIALER_MAX_CONCURRENT must be at least 1")
	}
	if cfg.MaxCallAttempts < 1 {
		return nil, fmt.Errorf("DIALER_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.DialerBatchSize < 1 {
		return nil, fmt.Errorf("DIALER_BATCH_SIZE must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
