// Package config loads server settings: defaults, then a TOML file, then
// environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/youruser/cardsmith/internal/ai"
	"github.com/youruser/cardsmith/internal/assets"
	"github.com/youruser/cardsmith/internal/logger"
)

// EnvConfigPath names the config file when -config is not given.
const EnvConfigPath = "CARDSMITH_CONFIG"

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Log      logger.Config  `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Assets   AssetsConfig   `toml:"assets"`
	AI       ai.Config      `toml:"ai"`
	Symbols  SymbolsConfig  `toml:"symbols"`
	Export   ExportConfig   `toml:"export"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Mode string `toml:"mode"` // gin mode: debug, release, test
	// PublicURL is the externally visible base URL used in share links.
	PublicURL string `toml:"public_url"`
	// DataDir holds frames and other static render inputs.
	DataDir string `toml:"data_dir"`
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	TokenTTL  string `toml:"token_ttl"` // e.g. "24h"
}

type AssetsConfig struct {
	Backend     string          `toml:"backend"` // "fs" or "s3"
	Dir         string          `toml:"dir"`
	MaxUploadMB int             `toml:"max_upload_mb"`
	S3          assets.S3Config `toml:"s3"`
}

type SymbolsConfig struct {
	IconDir string `toml:"icon_dir"`
	Watch   bool   `toml:"watch"`
}

type ExportConfig struct {
	JobTTL      string `toml:"job_ttl"`
	Supersample int    `toml:"supersample"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Mode: "release", PublicURL: "http://localhost:8080", DataDir: "data", CORSOrigins: []string{"http://localhost:*"}},
		Log:      logger.Config{Level: "info", Stdout: true, MaxSizeMB: 10},
		Database: DatabaseConfig{Path: "data/cardsmith.db"},
		Auth:     AuthConfig{TokenTTL: "24h"},
		Assets:   AssetsConfig{Backend: "fs", Dir: "data/assets", MaxUploadMB: 16},
		AI:       ai.Config{RequestsPerMinute: 10},
		Symbols:  SymbolsConfig{IconDir: "data/symbols"},
		Export:   ExportConfig{JobTTL: "30m", Supersample: 2},
	}
}

// Load builds the configuration for the given command-line arguments
// (without the program name).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("cardsmith", flag.ContinueOnError)
	path := fs.String("config", os.Getenv(EnvConfigPath), "path to a TOML config file")
	port := fs.Int("port", 0, "HTTP port")
	dbPath := fs.String("db", "", "SQLite database path")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *path != "" {
		if err := cfg.loadFile(*path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
		if c.AI.Provider == "" {
			c.AI.Provider = "openai"
		}
	}
	if v := getenv("OLLAMA_URL"); v != "" {
		c.AI.BaseURL = v
		if c.AI.Provider == "" {
			c.AI.Provider = "ollama"
		}
	}
	if v := getenv("PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	return nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return fmt.Errorf("invalid token ttl %q: %w", c.Auth.TokenTTL, err)
	}
	if _, err := c.JobTTL(); err != nil {
		return fmt.Errorf("invalid job ttl %q: %w", c.Export.JobTTL, err)
	}
	switch c.Assets.Backend {
	case "fs":
		if c.Assets.Dir == "" {
			return errors.New("assets.dir is required for the fs backend")
		}
	case "s3":
		if c.Assets.S3.Bucket == "" {
			return errors.New("assets.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown assets backend %q", c.Assets.Backend)
	}
	if c.Assets.MaxUploadMB < 0 {
		return fmt.Errorf("assets.max_upload_mb cannot be negative: %d", c.Assets.MaxUploadMB)
	}
	return nil
}

func (c *Config) TokenTTL() (time.Duration, error) {
	return time.ParseDuration(c.Auth.TokenTTL)
}

func (c *Config) JobTTL() (time.Duration, error) {
	return time.ParseDuration(c.Export.JobTTL)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
