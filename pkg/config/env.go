package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Process holds the process level configuration of the service.
type Process struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	PostgresURL   string
	RedisAddr     string
	RedisPassword string

	// BaseURL of this service as seen by the browser, used for form
	// actions and redirect targets.
	BaseURL string

	// StartPageURL is the platform start page users are sent to when
	// no deep link applies.
	StartPageURL string

	LogLevel       string
	MetricsEnabled bool

	// SAML service provider settings for the assertion consumer
	// endpoint. Empty IdP metadata disables the endpoint (attributes
	// then arrive from the host SP via request headers).
	SAMLEntityID    string
	SAMLIdPSSOURL   string
	SAMLIdPIssuer   string
	SAMLIdPCertFile string
}

// LoadProcess loads process configuration from environment variables.
func LoadProcess() (*Process, error) {
	cfg := &Process{
		Host:            getEnv("VHBSHIB_HOST", "0.0.0.0"),
		Port:            getEnv("VHBSHIB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VHBSHIB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VHBSHIB_WRITE_TIMEOUT", 15*time.Second),
		ShutdownTimeout: getEnvDuration("VHBSHIB_SHUTDOWN_TIMEOUT", 30*time.Second),
		PostgresURL:     getEnv("VHBSHIB_POSTGRES_URL", ""),
		RedisAddr:       getEnv("VHBSHIB_REDIS_ADDR", ""),
		RedisPassword:   getEnv("VHBSHIB_REDIS_PASSWORD", ""),
		BaseURL:         getEnv("VHBSHIB_BASE_URL", "http://localhost:8080"),
		StartPageURL:    getEnv("VHBSHIB_START_PAGE_URL", "/"),
		LogLevel:        getEnv("VHBSHIB_LOG_LEVEL", "info"),
		MetricsEnabled:  getEnvBool("VHBSHIB_METRICS_ENABLED", true),
		SAMLEntityID:    getEnv("VHBSHIB_SAML_ENTITY_ID", ""),
		SAMLIdPSSOURL:   getEnv("VHBSHIB_SAML_IDP_SSO_URL", ""),
		SAMLIdPIssuer:   getEnv("VHBSHIB_SAML_IDP_ISSUER", ""),
		SAMLIdPCertFile: getEnv("VHBSHIB_SAML_IDP_CERT_FILE", ""),
	}

	if cfg.PostgresURL == "" {
		return nil, fmt.Errorf("VHBSHIB_POSTGRES_URL is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
