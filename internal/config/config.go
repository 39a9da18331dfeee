package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/onionpan/internal/logger"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultEnvFile        = ".env"
	DefaultAPIIDEnv       = "TELEGRAM_API_ID"
	DefaultAPIHashEnv     = "TELEGRAM_API_HASH"
	DefaultChannel        = "toronionlinks"
	DefaultSessionDir     = "session"
	DefaultScriptFile     = "collector_onion.py"
	DefaultPythonPath     = "python3"
	DefaultOutputPath     = "onion_links.json"
	DefaultCheckpointPath = "last_message_id.txt"
	DefaultLimit          = 100
	DefaultMaxRetries     = 3
	DefaultMaxWait        = 5 * time.Minute
	DefaultRequestTimeout = 2 * time.Minute
)

// ErrMissingCredentials means the Telegram API id or hash did not resolve.
var ErrMissingCredentials = errors.New("telegram api credentials are required")

// Duration wraps time.Duration for YAML unmarshaling from strings like "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Output     OutputConfig     `yaml:"output"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Log        LogConfig        `yaml:"log"`
}

type TelegramConfig struct {
	APIIDEnv   string `yaml:"api_id_env"`
	APIHashEnv string `yaml:"api_hash_env"`
	SessionDir string `yaml:"session_dir"`
	Channel    string `yaml:"channel"`
	Script     string `yaml:"script"`
	PythonPath string `yaml:"python_path"`

	// Resolved from env vars at load time.
	APIID   string `yaml:"-"`
	APIHash string `yaml:"-"`
}

type FetchConfig struct {
	Limit          int      `yaml:"limit"`
	MaxRetries     int      `yaml:"max_retries"`
	MaxWait        Duration `yaml:"max_wait"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type CheckpointConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads config.yaml from dir, applies defaults, resolves credentials
// from the environment (and dir/.env), and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := loadEnvFile(filepath.Join(dir, DefaultEnvFile)); err != nil {
		return nil, err
	}

	applyDefaults(&cfg, dir)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads path into the process env without overriding set vars.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills unset fields. Session and script default to the config dir.
func applyDefaults(cfg *Config, dir string) {
	if cfg.Telegram.APIIDEnv == "" {
		cfg.Telegram.APIIDEnv = DefaultAPIIDEnv
	}
	if cfg.Telegram.APIHashEnv == "" {
		cfg.Telegram.APIHashEnv = DefaultAPIHashEnv
	}
	if cfg.Telegram.SessionDir == "" {
		cfg.Telegram.SessionDir = filepath.Join(dir, DefaultSessionDir)
	}
	if cfg.Telegram.Channel == "" {
		cfg.Telegram.Channel = DefaultChannel
	}
	if cfg.Telegram.Script == "" {
		cfg.Telegram.Script = filepath.Join(dir, DefaultScriptFile)
	}
	if cfg.Telegram.PythonPath == "" {
		cfg.Telegram.PythonPath = DefaultPythonPath
	}
	if cfg.Fetch.Limit == 0 {
		cfg.Fetch.Limit = DefaultLimit
	}
	if cfg.Fetch.MaxRetries == 0 {
		cfg.Fetch.MaxRetries = DefaultMaxRetries
	}
	if cfg.Fetch.MaxWait.Duration == 0 {
		cfg.Fetch.MaxWait.Duration = DefaultMaxWait
	}
	if cfg.Fetch.RequestTimeout.Duration == 0 {
		cfg.Fetch.RequestTimeout.Duration = DefaultRequestTimeout
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = DefaultOutputPath
	}
	if cfg.Checkpoint.Path == "" {
		cfg.Checkpoint.Path = DefaultCheckpointPath
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = logger.DefaultLevel
	}
}

func resolveEnv(cfg *Config) {
	cfg.Telegram.APIID = strings.TrimSpace(os.Getenv(cfg.Telegram.APIIDEnv))
	cfg.Telegram.APIHash = strings.TrimSpace(os.Getenv(cfg.Telegram.APIHashEnv))
}

func validate(cfg *Config) error {
	if cfg.Telegram.APIID == "" || cfg.Telegram.APIHash == "" {
		return fmt.Errorf("%w: set %s and %s", ErrMissingCredentials, cfg.Telegram.APIIDEnv, cfg.Telegram.APIHashEnv)
	}

	if strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.Channel), "@") == "" {
		return errors.New("telegram.channel: must not be empty")
	}

	if cfg.Fetch.Limit < 0 {
		return fmt.Errorf("fetch.limit: must be positive, got %d", cfg.Fetch.Limit)
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries: must be positive, got %d", cfg.Fetch.MaxRetries)
	}
	if cfg.Fetch.MaxWait.Duration < 0 {
		return fmt.Errorf("fetch.max_wait: must be positive, got %s", cfg.Fetch.MaxWait.Duration)
	}

	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
