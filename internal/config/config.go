package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mailbox providers.
const (
	MailboxGmail = "gmail"
	MailboxIMAP  = "imap"
)

// FooterPatternSeparator separates entries of REPLYDESK_EXTRA_FOOTER_PATTERNS.
const FooterPatternSeparator = ";;"

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	APIToken            string
	LogLevel            string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	Timezone            string

	Mailbox               string
	ReplyFrom             string
	GoogleCredentialsPath string
	OAuthRedirectURL      string
	IMAPServer            string
	IMAPUsername          string
	IMAPPassword          string
	IMAPUseTLS            bool
	IMAPMailbox           string
	SMTPServer            string
	SMTPUsername          string
	SMTPPassword          string
	SMTPImplicitTLS       bool

	LLMAPIKey     string
	LLMBaseURL    string
	LLMModel      string
	AssistantName string
	Organization  string

	AllowedDomains      []string
	AllowedAddresses    []string
	BlockedAddresses    []string
	ExtraFooterPatterns []string

	PollInterval     time.Duration
	MaxBatch         int
	MaxWorkers       int
	CallTimeout      time.Duration
	RunTimeout       time.Duration
	ReextractPartial bool
}

func NewConfig() (*Config, error) {
	env := os.Getenv("REPLYDESK_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	p := &envParser{}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("REPLYDESK_ENCRYPTION_KEY_BASE64"),
		APIToken:            os.Getenv("REPLYDESK_API_TOKEN"),
		LogLevel:            getEnvOrDefault("REPLYDESK_LOG_LEVEL", "info"),
		DBHost:              getEnvOrDefault("REPLYDESK_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("REPLYDESK_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("REPLYDESK_DB_USER", "replydesk"),
		DBPassword:          os.Getenv("REPLYDESK_DB_PASSWORD"),
		DBName:              getEnvOrDefault("REPLYDESK_DB_NAME", "replydesk"),
		DBSSLMode:           getEnvOrDefault("REPLYDESK_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		Timezone:            getEnvOrDefault("TZ", "UTC"),

		Mailbox:               strings.ToLower(getEnvOrDefault("REPLYDESK_MAILBOX", MailboxGmail)),
		ReplyFrom:             os.Getenv("REPLYDESK_REPLY_FROM"),
		GoogleCredentialsPath: getEnvOrDefault("REPLYDESK_GOOGLE_CREDENTIALS_PATH", "credentials/web_client.json"),
		OAuthRedirectURL:      os.Getenv("REPLYDESK_OAUTH_REDIRECT_URL"),
		IMAPServer:            os.Getenv("REPLYDESK_IMAP_SERVER"),
		IMAPUsername:          os.Getenv("REPLYDESK_IMAP_USER"),
		IMAPPassword:          os.Getenv("REPLYDESK_IMAP_PASSWORD"),
		IMAPUseTLS:            p.bool("REPLYDESK_IMAP_TLS", true),
		IMAPMailbox:           getEnvOrDefault("REPLYDESK_IMAP_MAILBOX", "INBOX"),
		SMTPServer:            os.Getenv("REPLYDESK_SMTP_SERVER"),
		SMTPUsername:          os.Getenv("REPLYDESK_SMTP_USER"),
		SMTPPassword:          os.Getenv("REPLYDESK_SMTP_PASSWORD"),
		SMTPImplicitTLS:       p.bool("REPLYDESK_SMTP_IMPLICIT_TLS", false),

		LLMAPIKey:     getEnvOrDefault("REPLYDESK_LLM_API_KEY", os.Getenv("ANTHROPIC_API_KEY")),
		LLMBaseURL:    os.Getenv("REPLYDESK_LLM_BASE_URL"),
		LLMModel:      os.Getenv("REPLYDESK_LLM_MODEL"),
		AssistantName: getEnvOrDefault("REPLYDESK_ASSISTANT_NAME", "Strathy"),
		Organization:  getEnvOrDefault("REPLYDESK_ORGANIZATION", "Strathmore University"),

		AllowedDomains:      getEnvList("REPLYDESK_ALLOWED_DOMAINS", ","),
		AllowedAddresses:    getEnvList("REPLYDESK_ALLOWED_ADDRESSES", ","),
		BlockedAddresses:    getEnvList("REPLYDESK_BLOCKED_ADDRESSES", ","),
		ExtraFooterPatterns: getEnvList("REPLYDESK_EXTRA_FOOTER_PATTERNS", FooterPatternSeparator),

		PollInterval:     p.duration("REPLYDESK_POLL_INTERVAL", 5*time.Minute),
		MaxBatch:         p.int("REPLYDESK_MAX_BATCH", 25),
		MaxWorkers:       p.int("REPLYDESK_MAX_WORKERS", 4),
		CallTimeout:      p.duration("REPLYDESK_CALL_TIMEOUT", 30*time.Second),
		RunTimeout:       p.duration("REPLYDESK_RUN_TIMEOUT", 2*time.Minute),
		ReextractPartial: p.bool("REPLYDESK_REEXTRACT_PARTIAL", false),
	}

	if p.err != nil {
		return nil, p.err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("REPLYDESK_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("REPLYDESK_DB_PASSWORD is required")
	}

	if c.APIToken == "" && c.Environment != "development" {
		return fmt.Errorf("REPLYDESK_API_TOKEN is required outside development")
	}

	if c.ReplyFrom == "" {
		return fmt.Errorf("REPLYDESK_REPLY_FROM is required")
	}

	if c.LLMAPIKey == "" {
		return fmt.Errorf("REPLYDESK_LLM_API_KEY is required")
	}

	switch c.Mailbox {
	case MailboxGmail:
	case MailboxIMAP:
		if c.IMAPServer == "" || c.IMAPUsername == "" {
			return fmt.Errorf("REPLYDESK_IMAP_SERVER and REPLYDESK_IMAP_USER are required for the imap mailbox")
		}
		if c.SMTPServer == "" {
			return fmt.Errorf("REPLYDESK_SMTP_SERVER is required for the imap mailbox")
		}
	default:
		return fmt.Errorf("REPLYDESK_MAILBOX must be %q or %q, got %q", MailboxGmail, MailboxIMAP, c.Mailbox)
	}

	if c.MaxBatch <= 0 || c.MaxWorkers <= 0 {
		return fmt.Errorf("REPLYDESK_MAX_BATCH and REPLYDESK_MAX_WORKERS must be positive")
	}

	if c.PollInterval <= 0 || c.CallTimeout <= 0 || c.RunTimeout <= 0 {
		return fmt.Errorf("REPLYDESK_POLL_INTERVAL, REPLYDESK_CALL_TIMEOUT and REPLYDESK_RUN_TIMEOUT must be positive")
	}

	for _, pattern := range c.ExtraFooterPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid REPLYDESK_EXTRA_FOOTER_PATTERNS entry %q: %w", pattern, err)
		}
	}

	return nil
}

// GetDatabaseURL builds the Postgres URL, escaping credentials.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a list variable, dropping blank entries.
func getEnvList(key, sep string) []string {
	var result []string
	for _, item := range strings.Split(os.Getenv(key), sep) {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// envParser reads typed variables and keeps the first parse error.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *envParser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return n
}

func (p *envParser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return b
}

func (p *envParser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return defaultValue
	}
	return d
}
