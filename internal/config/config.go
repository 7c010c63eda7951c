package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the BrandLens server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Detection DetectionConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	LogLevel           string
	RateLimitPerMinute int
	// BootstrapAdminKey, when set, is installed as an admin API key at startup
	// if no key with its prefix exists yet.
	BootstrapAdminKey string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// AIConfig lists the providers to configure and their credentials.
type AIConfig struct {
	Providers      []string
	RequestTimeout time.Duration
	RateLimitRPM   int
	OpenAI         OpenAICompatConfig
	DeepSeek       OpenAICompatConfig
	Doubao         OpenAICompatConfig
	VLLM           OpenAICompatConfig
	Anthropic      AnthropicConfig
	Ollama         OllamaConfig
}

// OpenAICompatConfig configures any vendor that speaks the OpenAI chat completions API.
type OpenAICompatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type DetectionConfig struct {
	Mode            string
	Strategy        string
	MaxTokens       int
	Temperature     float64
	RateBasis       string
	FailOnAllErrors bool
	CheckTimeout    time.Duration
}

type AnalyticsConfig struct {
	CacheTTL time.Duration
}

var validProviders = map[string]bool{
	"openai":    true,
	"deepseek":  true,
	"doubao":    true,
	"vllm":      true,
	"anthropic": true,
	"ollama":    true,
}

var (
	validModes      = map[string]bool{"parallel": true, "sequential": true}
	validStrategies = map[string]bool{"simple": true, "improved": true, "hybrid": true}
	validRateBases  = map[string]bool{"requested": true, "responded": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("BRANDLENS_PORT", 8080),
			Env:                envString("BRANDLENS_ENV", "development"),
			LogLevel:           strings.ToLower(envString("LOG_LEVEL", "info")),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			BootstrapAdminKey:  os.Getenv("BRANDLENS_BOOTSTRAP_ADMIN_KEY"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			Providers:      envList("AI_PROVIDERS"),
			RequestTimeout: envDurationSecs("AI_REQUEST_TIMEOUT_SECS", 60*time.Second),
			RateLimitRPM:   envInt("AI_RATE_LIMIT_RPM", 0),
			OpenAI: OpenAICompatConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			DeepSeek: OpenAICompatConfig{
				APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
				BaseURL: envString("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
				Model:   envString("DEEPSEEK_MODEL", "deepseek-chat"),
			},
			Doubao: OpenAICompatConfig{
				APIKey:  os.Getenv("DOUBAO_API_KEY"),
				BaseURL: envString("DOUBAO_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
				Model:   envString("DOUBAO_MODEL", "doubao-1-5-lite-32k-250115"),
			},
			VLLM: OpenAICompatConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			Anthropic: AnthropicConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
		},
		Detection: DetectionConfig{
			Mode:            envString("DETECTION_MODE", "parallel"),
			Strategy:        envString("DETECTION_STRATEGY", "improved"),
			MaxTokens:       envInt("DETECTION_MAX_TOKENS", 300),
			Temperature:     envFloat("DETECTION_TEMPERATURE", 0.3),
			RateBasis:       envString("DETECTION_RATE_BASIS", "requested"),
			FailOnAllErrors: envBool("DETECTION_FAIL_ON_ALL_ERRORS", true),
			CheckTimeout:    envDurationSecs("DETECTION_CHECK_TIMEOUT_SECS", 0),
		},
		Analytics: AnalyticsConfig{
			CacheTTL: envDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if k := c.Server.BootstrapAdminKey; k != "" && len(k) < 16 {
		return fmt.Errorf("BRANDLENS_BOOTSTRAP_ADMIN_KEY must be at least 16 characters")
	}

	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if len(c.AI.Providers) == 0 {
		return fmt.Errorf("AI_PROVIDERS is required")
	}
	for _, p := range c.AI.Providers {
		if !validProviders[p] {
			return fmt.Errorf("AI_PROVIDERS entries must be one of openai, deepseek, doubao, vllm, anthropic, ollama; got %q", p)
		}
		if err := c.AI.requireCredentials(p); err != nil {
			return err
		}
	}
	if c.AI.RateLimitRPM < 0 {
		return fmt.Errorf("AI_RATE_LIMIT_RPM must be >= 0, got %d", c.AI.RateLimitRPM)
	}

	if !validModes[c.Detection.Mode] {
		return fmt.Errorf("DETECTION_MODE must be parallel or sequential; got %q", c.Detection.Mode)
	}
	if !validStrategies[c.Detection.Strategy] {
		return fmt.Errorf("DETECTION_STRATEGY must be one of simple, improved, hybrid; got %q", c.Detection.Strategy)
	}
	if !validRateBases[c.Detection.RateBasis] {
		return fmt.Errorf("DETECTION_RATE_BASIS must be requested or responded; got %q", c.Detection.RateBasis)
	}
	if c.Detection.MaxTokens <= 0 {
		return fmt.Errorf("DETECTION_MAX_TOKENS must be > 0, got %d", c.Detection.MaxTokens)
	}
	if c.Detection.Temperature < 0 || c.Detection.Temperature > 2 {
		return fmt.Errorf("DETECTION_TEMPERATURE must be within [0, 2], got %v", c.Detection.Temperature)
	}

	return nil
}

func (a AIConfig) requireCredentials(provider string) error {
	switch provider {
	case "openai":
		if a.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when openai is enabled")
		}
	case "deepseek":
		if a.DeepSeek.APIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required when deepseek is enabled")
		}
	case "doubao":
		if a.Doubao.APIKey == "" {
			return fmt.Errorf("DOUBAO_API_KEY is required when doubao is enabled")
		}
	case "anthropic":
		if a.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when anthropic is enabled")
		}
	case "vllm":
		if a.VLLM.Model == "" {
			return fmt.Errorf("VLLM_MODEL is required when vllm is enabled")
		}
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// envList splits a comma separated variable, dropping blanks and lowercasing entries.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
