package cardinal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a registry and its adapters.
type Config struct {
	// LogDeserializationWarnings enables warnings for tree entries that do
	// not match a component of their owner.
	LogDeserializationWarnings bool `yaml:"log_deserialization_warnings"`

	// MaxDeserializationWarnings bounds the warnings logged per component id.
	// A negative value logs every warning.
	MaxDeserializationWarnings int `yaml:"max_deserialization_warnings"`

	// TickRate is the interval at which hosts run server tick hooks.
	TickRate time.Duration `yaml:"tick_rate"`

	// InspectAddr is the listen address of the inspection endpoint.
	InspectAddr string `yaml:"inspect_addr"`

	// Store configures the persistence backend.
	Store StoreConfig `yaml:"store"`
}

// StoreConfig configures where owner trees are persisted.
// An empty Table disables persistence.
type StoreConfig struct {
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// Static credentials. When empty the default AWS credential chain is
	// used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogDeserializationWarnings: true,
		MaxDeserializationWarnings: 5,
		TickRate:                   50 * time.Millisecond, // 20 TPS
		InspectAddr:                ":9464",
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, then
// applies CARDINAL_* environment variables. envFiles are loaded into the
// environment first; missing files are ignored. An empty path skips the
// YAML step.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Non-fatal: .env files are optional.
		_ = godotenv.Load(f)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("CARDINAL_LOG_DESERIALIZATION_WARNINGS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CARDINAL_LOG_DESERIALIZATION_WARNINGS: %w", err)
		}
		c.LogDeserializationWarnings = b
	}
	if v, ok := os.LookupEnv("CARDINAL_MAX_DESERIALIZATION_WARNINGS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARDINAL_MAX_DESERIALIZATION_WARNINGS: %w", err)
		}
		c.MaxDeserializationWarnings = n
	}
	if v, ok := os.LookupEnv("CARDINAL_TICK_RATE"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CARDINAL_TICK_RATE: %w", err)
		}
		c.TickRate = d
	}
	c.InspectAddr = env("CARDINAL_INSPECT_ADDR", c.InspectAddr)
	c.Store.Table = env("CARDINAL_STORE_TABLE", c.Store.Table)
	c.Store.Region = env("CARDINAL_STORE_REGION", c.Store.Region)
	c.Store.Endpoint = env("CARDINAL_STORE_ENDPOINT", c.Store.Endpoint)
	c.Store.AccessKeyID = env("CARDINAL_STORE_ACCESS_KEY_ID", c.Store.AccessKeyID)
	c.Store.SecretAccessKey = env("CARDINAL_STORE_SECRET_ACCESS_KEY", c.Store.SecretAccessKey)
	return nil
}

func env(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}
