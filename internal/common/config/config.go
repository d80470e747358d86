// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether a Postgres host was configured. The audit log is optional.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// AuthConfig holds the identity provider used for privileged endpoints.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// KeycloakEnabled reports whether client-credentials tokens can be requested.
func (a AuthConfig) KeycloakEnabled() bool {
	return a.Keycloak.URL != "" && a.Keycloak.ClientID != ""
}

// IntegrationConfig holds settings for AWS.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds metrics and tracing settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// NotificationConfig holds settings for the notification dispatch subsystem.
type NotificationConfig struct {
	// Remote configuration service exposing /notification-status,
	// /notification-full-config and /admin-emails.
	Remote struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"remote"`

	// Relay values used by the environment fallback when read from the config file.
	Relay struct {
		Provider   string `mapstructure:"provider"` // "emailjs" or "ses"
		URL        string `mapstructure:"url"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		ServiceID  string `mapstructure:"service_id"`
		TemplateID string `mapstructure:"template_id"`
		PublicKey  string `mapstructure:"public_key"`
		PrivateKey string `mapstructure:"private_key"`
		FromName   string `mapstructure:"from_name"`
		FromEmail  string `mapstructure:"from_email"`
	} `mapstructure:"relay"`

	Defaults struct {
		FromName  string `mapstructure:"from_name"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"defaults"`

	AdminDirectory struct {
		CacheTTL int `mapstructure:"cache_ttl"` // seconds
	} `mapstructure:"admin_directory"`

	Alerts struct {
		SNSTopicARN string `mapstructure:"sns_topic_arn"`
	} `mapstructure:"alerts"`

	// DotEnvPath is the .env file read by the environment fallback.
	DotEnvPath string `mapstructure:"dotenv_path"`
}

// RemoteTimeout returns the remote endpoint timeout as a duration.
func (n NotificationConfig) RemoteTimeout() time.Duration {
	return GetDuration(n.Remote.Timeout)
}

// RelayTimeout returns the relay call timeout as a duration.
func (n NotificationConfig) RelayTimeout() time.Duration {
	return GetDuration(n.Relay.Timeout)
}

// AdminCacheTTL returns the admin list cache lifetime.
func (n NotificationConfig) AdminCacheTTL() time.Duration {
	return time.Duration(n.AdminDirectory.CacheTTL) * time.Second
}

// RelayValues exposes the relay section keyed by its YAML names.
func (n NotificationConfig) RelayValues() map[string]string {
	return map[string]string{
		"service_id":  n.Relay.ServiceID,
		"template_id": n.Relay.TemplateID,
		"public_key":  n.Relay.PublicKey,
		"private_key": n.Relay.PrivateKey,
		"from_name":   n.Relay.FromName,
		"from_email":  n.Relay.FromEmail,
	}
}
