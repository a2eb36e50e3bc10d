package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-auth/internal/constants"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadSize  int64    `yaml:"max_upload_size" validate:"min=1"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	URL          string `yaml:"url" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns int    `yaml:"max_idle_conns" validate:"min=0"` // 0 closes connections after each operation
}

// Backend identifies the storage engine selected by a database URL.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMariaDB  Backend = "mariadb"
)

// Backend returns the storage engine selected by URL. Anything that is not
// a postgres or mysql URL is treated as a SQLite file path.
func (c *DatabaseConfig) Backend() Backend {
	switch {
	case strings.HasPrefix(c.URL, "postgres://"), strings.HasPrefix(c.URL, "postgresql://"):
		return BackendPostgres
	case strings.HasPrefix(c.URL, "mysql://"):
		return BackendMariaDB
	default:
		return BackendSQLite
	}
}

type EmbeddingConfig struct {
	URL            string `yaml:"url" validate:"required,url"`
	Dim            int    `yaml:"dim" validate:"min=1"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"min=1"`
	MaxImageSize   int    `yaml:"max_image_size" validate:"min=0"` // longest edge in pixels, 0 sends the original
}

type MatcherConfig struct {
	Tolerance float64 `yaml:"tolerance" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           constants.DefaultPort,
			AllowedOrigins: []string{"http://192.168.1.9:8080", "http://localhost:8080"},
			MaxUploadSize:  constants.MaxUploadSize,
		},
		Database: DatabaseConfig{
			URL:          constants.DefaultDatabaseURL,
			MaxOpenConns: 5,
			MaxIdleConns: 0,
		},
		Embedding: EmbeddingConfig{
			URL:            constants.DefaultEmbeddingURL,
			Dim:            constants.DefaultDescriptorDim,
			TimeoutSeconds: constants.DefaultEmbeddingTimeoutSeconds,
		},
		Matcher: MatcherConfig{
			Tolerance: constants.DefaultTolerance,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// envInt reads an environment variable and parses it as a non-negative integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat is envInt for non-negative finite floats.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Server.Host = envString("WEB_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("WEB_PORT", cfg.Server.Port)
	cfg.Server.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.MaxUploadSize = int64(envInt("MAX_UPLOAD_SIZE", int(cfg.Server.MaxUploadSize)))

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Embedding.URL = envString("EMBEDDING_URL", cfg.Embedding.URL)
	cfg.Embedding.Dim = envInt("EMBEDDING_DIM", cfg.Embedding.Dim)
	cfg.Embedding.TimeoutSeconds = envInt("EMBEDDING_TIMEOUT_SECONDS", cfg.Embedding.TimeoutSeconds)
	cfg.Embedding.MaxImageSize = envInt("EMBEDDING_MAX_IMAGE_SIZE", cfg.Embedding.MaxImageSize)

	cfg.Matcher.Tolerance = envFloat("MATCH_TOLERANCE", cfg.Matcher.Tolerance)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = envBool("LOG_PRETTY", cfg.Log.Pretty)

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
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ErrNonFiniteTolerance is returned when the match tolerance is NaN or infinite.
var ErrNonFiniteTolerance = errors.New("matcher tolerance must be a finite number")

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if t := c.Matcher.Tolerance; math.IsInf(t, 0) || math.IsNaN(t) {
		return fmt.Errorf("invalid configuration: %w", ErrNonFiniteTolerance)
	}
	return nil
}
