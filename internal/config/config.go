// Package config loads runtime settings from the environment (optionally a
// .env file) and the agent's JSON LLM config file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/muhammadolammi/jobmatchassistant/internal/memory"
	"github.com/muhammadolammi/jobmatchassistant/internal/storage"
)

var (
	// ErrMissingCredential reports a required key absent from the environment.
	ErrMissingCredential = errors.New("missing credential")
	// ErrMissingConfig reports that the agent config file does not exist.
	ErrMissingConfig = errors.New("missing llm config file")
)

const (
	ProviderKimi   = "kimi"
	ProviderGemini = "gemini"

	DefaultKimiBaseURL = "https://api.moonshot.cn/v1"
	DefaultConfigPath  = "config/agent_llm_config.json"

	defaultKimiModel   = "moonshot-v1-32k"
	defaultGeminiModel = "gemini-2.5-pro"
	defaultTemperature = 0.7
	defaultTimeout     = 600
	defaultHTTPPort    = "8080"
	defaultWorkers     = 3
)

// LLM is the "config" object of the agent config file.
type LLM struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
	// Timeout is in seconds.
	Timeout   int    `json:"timeout,omitempty"`
	Streaming *bool  `json:"streaming,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type agentFile struct {
	Config LLM    `json:"config"`
	SP     string `json:"sp"`
}

type Config struct {
	LLM          LLM
	SystemPrompt string

	KimiAPIKey   string
	KimiBaseURL  string
	GoogleAPIKey string
	BraveAPIKey  string

	DBURL       string
	RabbitMQURL string
	// R2 is nil when object storage is not configured.
	R2 *storage.R2Config

	HTTPPort       string
	TracingEnabled bool
	MaxMessages    int
	Workers        int
}

func (l LLM) TemperatureOrDefault() float64 {
	if l.Temperature == nil {
		return defaultTemperature
	}
	return *l.Temperature
}

func (l LLM) TimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

func (l LLM) StreamingEnabled() bool {
	return l.Streaming == nil || *l.Streaming
}

// Load reads .env (when present), the environment and the agent config file.
// The file path is LLM_CONFIG relative to WORKSPACE_PATH, defaulting to
// DefaultConfigPath in the working directory. A missing file is
// ErrMissingConfig.
func Load() (Config, error) {
	_ = godotenv.Load()

	path := getenv("LLM_CONFIG", DefaultConfigPath)
	if !filepath.IsAbs(path) {
		path = filepath.Join(getenv("WORKSPACE_PATH", "."), path)
	}
	file, err := readAgentFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		LLM:          file.Config,
		SystemPrompt: file.SP,
		KimiAPIKey:   os.Getenv("KIMI_API_KEY"),
		KimiBaseURL:  getenv("KIMI_BASE_URL", DefaultKimiBaseURL),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		BraveAPIKey:  os.Getenv("BRAVE_API_KEY"),
		DBURL:        os.Getenv("DB_URL"),
		RabbitMQURL:  os.Getenv("RABBITMQ_URL"),
		HTTPPort:     getenv("HTTP_PORT", defaultHTTPPort),
	}
	if cfg.TracingEnabled, err = envBool("TRACING_ENABLED"); err != nil {
		return Config{}, err
	}
	if cfg.MaxMessages, err = envInt("MAX_MESSAGES", memory.DefaultMaxMessages); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = envInt("WORKER_COUNT", defaultWorkers); err != nil {
		return Config{}, err
	}
	if cfg.R2, err = r2FromEnv(); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func readAgentFile(path string) (agentFile, error) {
	var file agentFile
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return file, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return file, fmt.Errorf("error reading llm config: %w", err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("error decoding llm config %s: %w", path, err)
	}
	return file, nil
}

func (c *Config) applyDefaults() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderKimi
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultKimiModel
		if c.LLM.Provider == ProviderGemini {
			c.LLM.Model = defaultGeminiModel
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = defaultTimeout
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
}

// Validate checks that the selected provider has its key. The search key is
// optional: without it searches run in simulated mode.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderKimi:
		if c.KimiAPIKey == "" {
			return fmt.Errorf("empty KIMI_API_KEY in environment: %w", ErrMissingCredential)
		}
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("empty GOOGLE_API_KEY in environment: %w", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

func r2FromEnv() (*storage.R2Config, error) {
	accountID := os.Getenv("R2_ACCCOUNT_ID")
	if accountID == "" {
		return nil, nil
	}
	r2 := &storage.R2Config{
		AccountID: accountID,
		Bucket:    os.Getenv("R2_BUCKET"),
		AccessKey: os.Getenv("R2_ACCESS_KEY"),
		SecretKey: os.Getenv("R2_SECRET_KEY"),
	}
	for name, v := range map[string]string{
		"R2_BUCKET":     r2.Bucket,
		"R2_ACCESS_KEY": r2.AccessKey,
		"R2_SECRET_KEY": r2.SecretKey,
	} {
		if v == "" {
			return nil, fmt.Errorf("empty %s in environment: %w", name, ErrMissingCredential)
		}
	}
	return r2, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
