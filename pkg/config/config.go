package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

const defaultListenPort = 4002

// Server holds the HTTP listener configuration.
type Server struct {
	ListenAddress string `yaml:"listenAddress"`
	// AdminJWTSecret is the shared HS256 secret protecting the admin
	// listing endpoint. When empty, the admin surface stays disabled.
	AdminJWTSecret string `yaml:"adminJWTSecret"`
}

// Database holds the Postgres connection configuration. Either URL is set
// (hosted deployments, relaxed TLS verification) or the discrete fields are.
type Database struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Mail holds credentials for both notification backends. Which backend is
// active is decided once at startup: APIKey wins, then User/Password.
type Mail struct {
	// SMTP operator account credentials.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// APIKey selects the transactional sending API backend.
	APIKey string `yaml:"apiKey"`
	// SenderAddress overrides the From address. Defaults to User for the
	// SMTP backend; the API backend rejects an unset sender.
	SenderAddress string `yaml:"senderAddress"`
	// Recipient is the operator address notified on each submission.
	Recipient string `yaml:"recipient"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Mail     Mail     `yaml:"mail"`
}

// Load reads the configuration file at path (if it exists) and then applies
// environment overrides. A missing file is not an error: the original
// deployment of this service was configured purely through the environment.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return cfg, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
			}
		case os.IsNotExist(err):
			// env-only configuration
		default:
			return cfg, fmt.Errorf("trying to open intake config file %s: %v", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = fmt.Sprintf(":%d", defaultListenPort)
	}
	return cfg, nil
}

// applyEnv layers the recognized environment variables over the file values.
// Environment always wins so hosted deployments can override a baked-in file.
func (c *Config) applyEnv() {
	if port := getEnvInt("PORT", 0); port > 0 {
		c.Server.ListenAddress = fmt.Sprintf(":%d", port)
	}
	c.Server.AdminJWTSecret = getEnvString("ADMIN_JWT_SECRET", c.Server.AdminJWTSecret)

	c.Database.URL = getEnvString("DATABASE_URL", c.Database.URL)
	c.Database.Host = getEnvString("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnvString("DB_NAME", c.Database.Name)
	c.Database.User = getEnvString("DB_USER", c.Database.User)
	c.Database.Password = getEnvString("DB_PASSWORD", c.Database.Password)

	c.Mail.User = getEnvString("GMAIL_USER", c.Mail.User)
	c.Mail.Password = getEnvString("GMAIL_PASS", c.Mail.Password)
	c.Mail.APIKey = getEnvString("RESEND_API_KEY", c.Mail.APIKey)
	c.Mail.SenderAddress = getEnvString("MAIL_FROM",
		getEnvString("GMAIL_FROM", c.Mail.SenderAddress))
	// NOTIFY_EMAIL preferred, RECIPIENT_EMAIL kept as the legacy fallback.
	c.Mail.Recipient = getEnvString("NOTIFY_EMAIL",
		getEnvString("RECIPIENT_EMAIL", c.Mail.Recipient))
}

// getEnvString returns the value of an environment variable, or the provided default if not set.
func getEnvString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt returns the value of an environment variable as an int, or the
// provided default if not set or not parseable.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}
