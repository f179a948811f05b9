// Package config loads the host configuration file (actscript.yaml).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/actscript/pkg/domain"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "actscript.yaml"

// EnvEncryptionKey overrides security.encryption_key.
const EnvEncryptionKey = "ACTSCRIPT_ENCRYPTION_KEY"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Script loaders.
const (
	LoaderFile = "file"
	LoaderLoam = "loam"
)

// Config is the host configuration shared by the CLI, HTTP and MCP hosts.
type Config struct {
	// Scripts is the script library directory.
	Scripts string `yaml:"scripts" json:"scripts"`
	// Loader selects how the library is read: "file" (*.scenario) or "loam" (Markdown).
	Loader string `yaml:"loader" json:"loader"`

	Parser   domain.ParserConfig `yaml:"parser" json:"parser"`
	Store    StoreConfig         `yaml:"store" json:"store"`
	Log      LogConfig           `yaml:"log" json:"log"`
	HTTP     HTTPConfig          `yaml:"http" json:"http"`
	Security SecurityConfig      `yaml:"security" json:"security"`
}

type StoreConfig struct {
	Backend string       `yaml:"backend" json:"backend"`
	Dir     string       `yaml:"dir" json:"dir"`
	Redis   RedisConfig  `yaml:"redis" json:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite" json:"sqlite"`
	// LockTTL bounds distributed session locks (redis backend only).
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type SecurityConfig struct {
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys"`
	// PIIKeys are regular expressions matched against context keys.
	PIIKeys []string `yaml:"pii_keys" json:"pii_keys"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Scripts: ".",
		Loader:  LoaderFile,
		Parser:  domain.DefaultParserConfig(),
		Store: StoreConfig{
			Backend: BackendFile,
			Dir:     filepath.Join(".actscript", "sessions"),
			Redis:   RedisConfig{Addr: "localhost:6379"},
			SQLite:  SQLiteConfig{Path: filepath.Join(".actscript", "sessions.db")},
			LockTTL: 30 * time.Second,
		},
		Log:  LogConfig{Level: "info"},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads a YAML or JSON configuration file over the defaults. A missing
// file yields the defaults unless the path was given explicitly.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}

	if key := os.Getenv(EnvEncryptionKey); key != "" {
		cfg.Security.EncryptionKey = key
	}
	// Unset parser fields fall back to the defaults.
	cfg.Parser = domain.DefaultParserConfig().Merge(cfg.Parser)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the backend and loader names.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Loader {
	case LoaderFile, LoaderLoam:
	default:
		return fmt.Errorf("unknown script loader %q", c.Loader)
	}
	if c.Store.Backend == BackendRedis && c.Store.Redis.Addr == "" {
		return errors.New("store.redis.addr is required for the redis backend")
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLite.Path == "" {
		return errors.New("store.sqlite.path is required for the sqlite backend")
	}
	return nil
}
