package configs

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultMaxRequestLineBytes is the longest request line an endpoint accepts
// before answering 414.
const DefaultMaxRequestLineBytes = 65536

// DeproxyConfig is the root configuration of a deproxy process.
type DeproxyConfig struct {
	Log       LogConfig        `yaml:"log"`
	Server    ServerConfig     `yaml:"server"`
	Client    ClientConfig     `yaml:"client"`
	Endpoints []EndpointConfig `yaml:"endpoints" validate:"dive"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Archive   ArchiveConfig    `yaml:"archive"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	File  string `yaml:"file"`
}

// ServerConfig applies to every endpoint.
type ServerConfig struct {
	ReadTimeout         time.Duration `yaml:"readTimeout" validate:"gte=0"`
	WriteTimeout        time.Duration `yaml:"writeTimeout" validate:"gte=0"`
	MaxRequestLineBytes int           `yaml:"maxRequestLineBytes" validate:"gte=0"`
	MaxBodyBytes        int64         `yaml:"maxBodyBytes" validate:"gte=0"`
}

// ClientConfig drives the outbound side of MakeRequest.
type ClientConfig struct {
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"`
	RetryAttempts   int           `yaml:"retryAttempts" validate:"gte=0"`
	RetryDelay      time.Duration `yaml:"retryDelay" validate:"gte=0"`
	FollowRedirects bool          `yaml:"followRedirects"`
}

type EndpointConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address" validate:"required"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace"`
}

// ArchiveConfig configures the optional copy of finished chains into
// redis and mysql.
type ArchiveConfig struct {
	Enabled              bool                 `yaml:"enabled"`
	PoolSize             int                  `yaml:"poolSize" validate:"gte=0"`
	RetryCount           int                  `yaml:"retryCount" validate:"gte=0"`
	RetryDelay           time.Duration        `yaml:"retryDelay" validate:"gte=0"`
	RecentLimit          int64                `yaml:"recentLimit" validate:"gte=0"`
	RedisConfig          RedisConfig          `yaml:"redis"`
	DatabaseConfig       DatabaseConfig       `yaml:"database"`
	DatabaseOptionConfig DatabaseOptionConfig `yaml:"databaseConfig"`
}

// DefaultDeproxyConfig returns the configuration used when no file is given.
// Every call builds a fresh value.
func DefaultDeproxyConfig() *DeproxyConfig {
	return &DeproxyConfig{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        30 * time.Second,
			MaxRequestLineBytes: DefaultMaxRequestLineBytes,
			MaxBodyBytes:        10 << 20,
		},
		Client: ClientConfig{
			Timeout:         30 * time.Second,
			RetryAttempts:   1,
			RetryDelay:      100 * time.Millisecond,
			FollowRedirects: true,
		},
		Metrics: MetricsConfig{Namespace: "deproxy"},
		Archive: ArchiveConfig{
			PoolSize:    8,
			RetryCount:  3,
			RetryDelay:  200 * time.Millisecond,
			RecentLimit: 100,
		},
	}
}

// LoadDeproxyConfig reads the YAML file at path (or the resolved default path
// when empty) on top of DefaultDeproxyConfig and validates the result.
func LoadDeproxyConfig(path string) (*DeproxyConfig, error) {
	if path == "" {
		path = getConfigPath()
	}

	configFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseDeproxyConfig(configFile)
}

// ParseDeproxyConfig decodes raw YAML on top of the defaults and validates it.
func ParseDeproxyConfig(data []byte) (*DeproxyConfig, error) {
	config := DefaultDeproxyConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// NewServerConfig, NewClientConfig, NewArchiveConfig and NewMetricsConfig
// expose sections of the root config to wire.
func NewServerConfig(c *DeproxyConfig) *ServerConfig { return &c.Server }

func NewClientConfig(c *DeproxyConfig) *ClientConfig { return &c.Client }

func NewArchiveConfig(c *DeproxyConfig) *ArchiveConfig { return &c.Archive }

func NewMetricsConfig(c *DeproxyConfig) *MetricsConfig { return &c.Metrics }

// getConfigPath resolves the config file path from the environment.
func getConfigPath() string {
	if path := os.Getenv("DEPROXY_CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("DEPROXY_ENV")
	if env == "" {
		env = "local"
	}

	return fmt.Sprintf("deproxy.%s.yaml", env)
}

var validate = validator.New()

// Validate checks struct tags first, then the cross-field rules tags cannot
// express.
func (c *DeproxyConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if _, _, err := net.SplitHostPort(ep.Address); err != nil {
			return fmt.Errorf("endpoint %d: invalid address %q: %w", i, ep.Address, err)
		}
		if ep.Name == "" {
			continue
		}
		if _, dup := seen[ep.Name]; dup {
			return fmt.Errorf("endpoint %d: duplicate name %q", i, ep.Name)
		}
		seen[ep.Name] = struct{}{}
	}

	if c.Client.RetryAttempts > 1 && c.Client.RetryDelay == 0 {
		return fmt.Errorf("client retryDelay is required when retryAttempts > 1")
	}

	if c.Archive.Enabled {
		if c.Archive.PoolSize <= 0 {
			return fmt.Errorf("archive poolSize must be positive")
		}
		if c.Archive.RedisConfig.Host == "" {
			return fmt.Errorf("archive redis host is required")
		}
		if err := c.Archive.DatabaseConfig.validate(); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if err := c.Archive.DatabaseOptionConfig.validate(); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	return nil
}
