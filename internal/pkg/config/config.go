package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables; "__" separates levels.
const EnvPrefix = "UDA_"

// DefaultPath is read when Load is given an empty path.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Security  SecurityConfig  `koanf:"security"`
	Engine    EngineConfig    `koanf:"engine"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Validator ValidatorConfig `koanf:"validator"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
	Provider  string          `koanf:"provider"`
	ModelName string          `koanf:"model_name"`
}

type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	Type    string       `koanf:"type"` // sqlite, memory
	Dir     string       `koanf:"dir"`
	DLQFile string       `koanf:"dlq_file"`
	SQLite  SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// DLQPath resolves the queue file, defaulting to <dir>/dlq.jsonl.
func (s StorageConfig) DLQPath() string {
	if s.DLQFile != "" {
		return s.DLQFile
	}
	return filepath.Join(s.Dir, "dlq.jsonl")
}

// SQLitePath resolves the ledger database, defaulting to <dir>/runs.db.
func (s StorageConfig) SQLitePath() string {
	if s.SQLite.Path != "" {
		return s.SQLite.Path
	}
	return filepath.Join(s.Dir, "runs.db")
}

type SecurityConfig struct {
	// DefaultTags are stamped on evidence that carries none.
	DefaultTags []string `koanf:"default_tags"`
}

type EngineConfig struct {
	Backend string `koanf:"backend"` // auto, graph, sequential
}

type RetrievalConfig struct {
	TopK       int    `koanf:"top_k"`
	CorpusFile string `koanf:"corpus_file"`
	Watch      bool   `koanf:"watch"`
}

type ValidatorConfig struct {
	Webhook WebhookConfig `koanf:"webhook"`
}

type WebhookConfig struct {
	URL     string            `koanf:"url"`
	Timeout time.Duration     `koanf:"timeout"`
	Retries int               `koanf:"retries"`
	OnError string            `koanf:"on_error"` // stub, fail
	Headers map[string]string `koanf:"headers"`
	// BlockPrivate refuses webhook connections to loopback and private ranges.
	BlockPrivate bool `koanf:"block_private"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// listKeys are split on commas when set from the environment.
var listKeys = map[string]bool{
	"security.default_tags": true,
}

// envValue maps UDA_SECURITY__DEFAULT_TAGS=a,b to security.default_tags=[a b].
func envValue(name, value string) (string, any) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "__", ".")
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var defaults = map[string]any{
	"server.host":                "127.0.0.1",
	"server.port":                8000,
	"server.timeout":             "30s",
	"storage.type":               "sqlite",
	"storage.dir":                "./storage",
	"security.default_tags":      []string{"public"},
	"engine.backend":             "auto",
	"retrieval.top_k":            5,
	"validator.webhook.timeout":  "5s",
	"validator.webhook.on_error": "stub",
	"logging.level":              "info",
	"provider":                   "local",
	"model_name":                 "stub-model",
}

// Load reads path (config.yaml when empty; a missing file is fine), then
// UDA_-prefixed environment variables, then fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Validator.Webhook.URL = substituteEnvVars(cfg.Validator.Webhook.URL)
	for name, val := range cfg.Validator.Webhook.Headers {
		cfg.Validator.Webhook.Headers[name] = substituteEnvVars(val)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the rest of the system cannot act on.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config: storage.type %q: want sqlite or memory", c.Storage.Type)
	}
	switch strings.ToLower(strings.TrimSpace(c.Engine.Backend)) {
	case "", "auto", "graph", "sequential":
	default:
		return fmt.Errorf("config: engine.backend %q: want auto, graph or sequential", c.Engine.Backend)
	}
	switch c.Validator.Webhook.OnError {
	case "", "stub", "fail":
	default:
		return fmt.Errorf("config: validator.webhook.on_error %q: want stub or fail", c.Validator.Webhook.OnError)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	return nil
}

// ParseLevel maps logging.level onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: logging.level %q: %w", s, err)
	}
	return level, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
