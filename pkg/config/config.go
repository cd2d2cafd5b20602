package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TABLESIDE_"

// Storage backends
const (
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds runtime settings. Precedence, lowest first: defaults, YAML
// file, .env file, process environment, command line flags.
type Config struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	DataDir string      `yaml:"data_dir"`
	Storage string      `yaml:"storage"`
	Redis   RedisConfig `yaml:"redis"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	RefreshInterval        time.Duration `yaml:"refresh_interval"`
	WireOrderItems         bool          `yaml:"wire_order_items"`
	SerializeJournalWrites bool          `yaml:"serialize_journal_writes"`
	CatalogFile            string        `yaml:"catalog_file"`
	Locale                 string        `yaml:"locale"`
}

// RedisConfig selects the redis journal backend
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the built-in configuration
func Default() Config {
	dataDir := "./tableside-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".tableside")
	}

	return Config{
		APIBaseURL:      "http://localhost:8000/api",
		RequestTimeout:  10 * time.Second,
		DataDir:         dataDir,
		Storage:         StorageBolt,
		Redis:           RedisConfig{Addr: "localhost:6379", Prefix: "tableside"},
		LogLevel:        "info",
		RefreshInterval: 30 * time.Second,
		Locale:          "vi-VN",
	}
}

// Load builds the configuration from an optional YAML file and the environment.
// envFile is loaded with godotenv when present; a missing file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"API_BASE_URL":   &c.APIBaseURL,
		"TOKEN":          &c.Token,
		"DATA_DIR":       &c.DataDir,
		"STORAGE":        &c.Storage,
		"REDIS_ADDR":     &c.Redis.Addr,
		"REDIS_PASSWORD": &c.Redis.Password,
		"REDIS_PREFIX":   &c.Redis.Prefix,
		"LOG_LEVEL":      &c.LogLevel,
		"CATALOG_FILE":   &c.CatalogFile,
		"LOCALE":         &c.Locale,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"LOG_JSON":                 &c.LogJSON,
		"WIRE_ORDER_ITEMS":         &c.WireOrderItems,
		"SERIALIZE_JOURNAL_WRITES": &c.SerializeJournalWrites,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid bool for %s%s: %q", EnvPrefix, key, v)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"REQUEST_TIMEOUT":  &c.RequestTimeout,
		"REFRESH_INTERVAL": &c.RefreshInterval,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration for %s%s: %q", EnvPrefix, key, v)
			}
			*dst = d
		}
	}

	if v, ok := lookup("REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid int for %sREDIS_DB: %q", EnvPrefix, v)
		}
		c.Redis.DB = n
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Validate checks the settings that would otherwise fail late
func (c Config) Validate() error {
	switch c.Storage {
	case StorageBolt, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (want bolt, redis or memory)", c.Storage)
	}
	if c.Storage == StorageBolt && c.DataDir == "" {
		return errors.New("data_dir is required for bolt storage")
	}
	if c.Storage == StorageRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for redis storage")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be positive")
	}
	return nil
}
