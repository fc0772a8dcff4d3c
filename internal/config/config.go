package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Graph backends.
const (
	GraphMemory = "memory"
	GraphNeo4j  = "neo4j"
)

// Config holds all service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Database  DatabaseConfig  `yaml:"database"`
	Graph     GraphConfig     `yaml:"graph"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Report    ReportConfig    `yaml:"report"`
	Coverage  CoverageConfig  `yaml:"coverage"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string { return ":" + c.Port }

type KnowledgeConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig enables Postgres-backed sessions and feedback when URL is set.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MigrationsPath string `yaml:"migrations_path"`
}

type GraphConfig struct {
	Backend  string `yaml:"backend"` // "memory" or "neo4j"
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// AuthConfig maps user names to bcrypt hashes. Empty means the demo account.
type AuthConfig struct {
	Users map[string]string `yaml:"users"`
}

type SessionConfig struct {
	CookieName   string        `yaml:"cookie_name"`
	SecureCookie bool          `yaml:"secure_cookie"`
	TTL          time.Duration `yaml:"ttl"`
}

type TelegramConfig struct {
	Token          string `yaml:"token"`
	FeedbackChatID int64  `yaml:"feedback_chat_id"`
}

type ReportConfig struct {
	// FontPaths name TrueType-outline fonts (.ttf, or .ttc whose first face
	// is used). Empty means report.DefaultFontPaths.
	FontPaths []string `yaml:"font_paths"`
}

type CoverageConfig struct {
	LowThreshold float64 `yaml:"low_threshold"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP:      HTTPConfig{Port: "8080"},
		Knowledge: KnowledgeConfig{Path: "data/sleep_knowledge_graph.json"},
		Database:  DatabaseConfig{MigrationsPath: "file://migrations"},
		Graph:     GraphConfig{Backend: GraphMemory, URI: "bolt://localhost:7687", Username: "neo4j"},
		Session:   SessionConfig{CookieName: "sleepdx_session", TTL: 24 * time.Hour},
		Coverage:  CoverageConfig{LowThreshold: 50},
		Log:       LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, then environment variables, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTP.Port = getenv("PORT", cfg.HTTP.Port)
	cfg.HTTP.CORSOrigin = getenv("CORS_ALLOWED_ORIGIN", cfg.HTTP.CORSOrigin)
	cfg.Knowledge.Path = getenv("KB_PATH", cfg.Knowledge.Path)
	cfg.Database.URL = getenv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MigrationsPath = getenv("MIGRATIONS_PATH", cfg.Database.MigrationsPath)
	cfg.Graph.Backend = getenv("GRAPH_BACKEND", cfg.Graph.Backend)
	cfg.Graph.URI = getenv("NEO4J_URI", cfg.Graph.URI)
	cfg.Graph.Username = getenv("NEO4J_USERNAME", cfg.Graph.Username)
	cfg.Graph.Password = getenv("NEO4J_PASSWORD", cfg.Graph.Password)
	cfg.Graph.Database = getenv("NEO4J_DATABASE", cfg.Graph.Database)
	cfg.Session.CookieName = getenv("SESSION_COOKIE", cfg.Session.CookieName)
	cfg.Telegram.Token = getenv("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)

	if v := os.Getenv("AUTH_USERS"); v != "" {
		users, err := parseUsers(v)
		if err != nil {
			return fmt.Errorf("AUTH_USERS: %w", err)
		}
		cfg.Auth.Users = users
	}
	if v := os.Getenv("REPORT_FONT_PATHS"); v != "" {
		cfg.Report.FontPaths = strings.Split(v, string(os.PathListSeparator))
	}

	var err error
	if cfg.Session.SecureCookie, err = getenvBool("SESSION_SECURE_COOKIE", cfg.Session.SecureCookie); err != nil {
		return err
	}
	if cfg.Log.Development, err = getenvBool("LOG_DEVELOPMENT", cfg.Log.Development); err != nil {
		return err
	}
	if cfg.Session.TTL, err = getenvDuration("SESSION_TTL", cfg.Session.TTL); err != nil {
		return err
	}
	if cfg.Coverage.LowThreshold, err = getenvFloat("COVERAGE_LOW_THRESHOLD", cfg.Coverage.LowThreshold); err != nil {
		return err
	}
	if cfg.Telegram.FeedbackChatID, err = getenvInt64("FEEDBACK_CHAT_ID", cfg.Telegram.FeedbackChatID); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Knowledge.Path == "" {
		errs = append(errs, errors.New("knowledge base path is required"))
	}
	if c.HTTP.Port == "" {
		errs = append(errs, errors.New("http port is required"))
	}
	switch c.Graph.Backend {
	case GraphMemory:
	case GraphNeo4j:
		if c.Graph.URI == "" {
			errs = append(errs, errors.New("neo4j uri is required for the neo4j graph backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown graph backend %q", c.Graph.Backend))
	}
	if c.Session.TTL < 0 {
		errs = append(errs, errors.New("session ttl must not be negative"))
	}
	if c.Coverage.LowThreshold < 0 || c.Coverage.LowThreshold > 100 {
		errs = append(errs, fmt.Errorf("coverage low threshold %v outside [0, 100]", c.Coverage.LowThreshold))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getenvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// parseUsers reads "user:hash,user2:hash". Everything after the first ':'
// is the hash.
func parseUsers(spec string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, hash, ok := strings.Cut(entry, ":")
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("invalid user entry %q, want user:hash", entry)
		}
		users[user] = hash
	}
	return users, nil
}
