package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"svsp-upload/internal/protocol"
)

type Config struct {
	ServerURL string `yaml:"server_url"`
	// ServerURLConfigured is false when ServerURL is the built-in default.
	ServerURLConfigured bool          `yaml:"-"`
	Endpoint            string        `yaml:"endpoint"`
	Timeout             time.Duration `yaml:"timeout"`
	InsecureTLS         bool          `yaml:"insecure_tls"`
	CAFile              string        `yaml:"ca_file"`

	Port       string `yaml:"port"`
	GatewayTLS bool   `yaml:"gateway_tls"`

	Discovery DiscoveryConfig `yaml:"discovery"`
}

type DiscoveryConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	DefaultServerURL     = "http://localhost:8000"
	DefaultPort          = "8080"
	DefaultDiscoveryAddr = ":9999"
)

func defaults() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Endpoint:  protocol.DefaultEndpoint,
		Port:      DefaultPort,
		Discovery: DiscoveryConfig{
			Addr:    DefaultDiscoveryAddr,
			Timeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, the .env file named by ENV_FILE, and finally the environment.
func Load(path string) (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Could not load %s: %v", envFile, err)
	}

	cfg := defaults()
	cfg.ServerURL = ""
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.ServerURLConfigured = cfg.ServerURL != ""
	if !cfg.ServerURLConfigured {
		cfg.ServerURL = DefaultServerURL
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ServerURL = getEnv("UPLOAD_SERVER_URL", cfg.ServerURL)
	cfg.Endpoint = getEnv("UPLOAD_ENDPOINT", cfg.Endpoint)
	cfg.CAFile = getEnv("UPLOAD_CA_FILE", cfg.CAFile)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Discovery.Addr = getEnv("DISCOVERY_ADDR", cfg.Discovery.Addr)

	var err error
	if cfg.Timeout, err = getDuration("UPLOAD_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.InsecureTLS, err = getBool("UPLOAD_INSECURE_TLS", cfg.InsecureTLS); err != nil {
		return err
	}
	if cfg.GatewayTLS, err = getBool("GATEWAY_TLS", cfg.GatewayTLS); err != nil {
		return err
	}
	if cfg.Discovery.Enabled, err = getBool("DISCOVERY_ENABLED", cfg.Discovery.Enabled); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout)
	}
	if c.Endpoint == "" {
		c.Endpoint = protocol.DefaultEndpoint
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		c.Endpoint = "/" + c.Endpoint
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	return nil
}

// UploadURL is the full address the file is posted to.
func (c *Config) UploadURL() string {
	return c.ServerURL + c.Endpoint
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := getEnv(key, "")
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
