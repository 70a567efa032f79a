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

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig provides settings for outbound email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// IMAPConfig provides settings for the inbound email ingestor.
type IMAPConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	IsIMAPEnabled() bool
}

// WhatsAppConfig provides settings for the WhatsApp gateway client.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// TrelloConfig provides settings for the kanban board client.
type TrelloConfig interface {
	GetTrelloKey() string
	GetTrelloToken() string
	GetTrelloListID(ticketStatus string) string
	IsTrelloEnabled() bool
}

// ZohoConfig provides settings for the Zoho CRM/Books sync client.
type ZohoConfig interface {
	GetZohoAccountsURL() string
	GetZohoCRMURL() string
	GetZohoBooksURL() string
	GetZohoClientID() string
	GetZohoClientSecret() string
	GetZohoRefreshToken() string
	GetZohoOrganizationID() string
	IsZohoEnabled() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO attachment storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketTicketAttachments() string
	IsMinIOEnabled() bool
}

// PortalConfig provides settings for public customer-portal links.
type PortalConfig interface {
	GetAppBaseURL() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string
	AccessTokenTTL  time.Duration

	CORSAllowAll bool
	CORSOrigins  []string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
	IMAPFolder   string

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	TrelloKey   string
	TrelloToken string
	TrelloLists map[string]string

	ZohoAccountsURL    string
	ZohoCRMURL         string
	ZohoBooksURL       string
	ZohoClientID       string
	ZohoClientSecret   string
	ZohoRefreshToken   string
	ZohoOrganizationID string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinIOMaxFileSize        int64
	BucketTicketAttachments string

	AppBaseURL string
}

// Load reads configuration from the environment, with .env as a fallback
// for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		CORSAllowAll: getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitCSV(os.Getenv("CORS_ORIGINS")),

		EmailEnabled:     getBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Helpdesk"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),

		IMAPHost:     os.Getenv("IMAP_HOST"),
		IMAPPort:     getInt("IMAP_PORT", 993),
		IMAPUsername: os.Getenv("IMAP_USERNAME"),
		IMAPPassword: os.Getenv("IMAP_PASSWORD"),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),

		WhatsAppURL:      os.Getenv("WHATSAPP_API_URL"),
		WhatsAppKey:      os.Getenv("WHATSAPP_API_KEY"),
		WhatsAppDeviceID: os.Getenv("WHATSAPP_DEVICE_ID"),

		TrelloKey:   os.Getenv("TRELLO_API_KEY"),
		TrelloToken: os.Getenv("TRELLO_API_TOKEN"),
		TrelloLists: map[string]string{
			"OPEN":     os.Getenv("TRELLO_LIST_OPEN"),
			"PENDING":  os.Getenv("TRELLO_LIST_PENDING"),
			"RESOLVED": os.Getenv("TRELLO_LIST_RESOLVED"),
			"CLOSED":   os.Getenv("TRELLO_LIST_CLOSED"),
		},

		ZohoAccountsURL:    getEnv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.com"),
		ZohoCRMURL:         getEnv("ZOHO_CRM_URL", "https://www.zohoapis.com/crm/v2"),
		ZohoBooksURL:       getEnv("ZOHO_BOOKS_URL", "https://www.zohoapis.com/books/v3"),
		ZohoClientID:       os.Getenv("ZOHO_CLIENT_ID"),
		ZohoClientSecret:   os.Getenv("ZOHO_CLIENT_SECRET"),
		ZohoRefreshToken:   os.Getenv("ZOHO_REFRESH_TOKEN"),
		ZohoOrganizationID: os.Getenv("ZOHO_ORGANIZATION_ID"),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getInt("ASYNQ_CONCURRENCY", 10),

		MinIOEndpoint:           os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:          os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:          os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:             getBool("MINIO_USE_SSL", false),
		MinIOMaxFileSize:        getInt64("MINIO_MAX_FILE_SIZE", 10<<20),
		BucketTicketAttachments: getEnv("MINIO_BUCKET_TICKET_ATTACHMENTS", "ticket-attachments"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:3000"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string      { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetIMAPHost() string     { return c.IMAPHost }
func (c *Config) GetIMAPPort() int        { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string   { return c.IMAPFolder }
func (c *Config) IsIMAPEnabled() bool {
	return c.IMAPHost != "" && c.IMAPUsername != "" && c.IMAPPassword != ""
}

func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

func (c *Config) GetTrelloKey() string   { return c.TrelloKey }
func (c *Config) GetTrelloToken() string { return c.TrelloToken }
func (c *Config) GetTrelloListID(ticketStatus string) string {
	return c.TrelloLists[strings.ToUpper(ticketStatus)]
}
func (c *Config) IsTrelloEnabled() bool {
	return c.TrelloKey != "" && c.TrelloToken != ""
}

func (c *Config) GetZohoAccountsURL() string    { return c.ZohoAccountsURL }
func (c *Config) GetZohoCRMURL() string         { return c.ZohoCRMURL }
func (c *Config) GetZohoBooksURL() string       { return c.ZohoBooksURL }
func (c *Config) GetZohoClientID() string       { return c.ZohoClientID }
func (c *Config) GetZohoClientSecret() string   { return c.ZohoClientSecret }
func (c *Config) GetZohoRefreshToken() string   { return c.ZohoRefreshToken }
func (c *Config) GetZohoOrganizationID() string { return c.ZohoOrganizationID }
func (c *Config) IsZohoEnabled() bool {
	return c.ZohoClientID != "" && c.ZohoClientSecret != "" && c.ZohoRefreshToken != ""
}

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetMinIOEndpoint() string              { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string             { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string             { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                  { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64            { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketTicketAttachments() string { return c.BucketTicketAttachments }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetAppBaseURL() string { return strings.TrimRight(c.AppBaseURL, "/") }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
