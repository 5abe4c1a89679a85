package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image edit providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Malformed provider output policies
const (
	// PolicyLegacy answers 500 on /analyze-image and 400 on /generate-image
	PolicyLegacy = "legacy"
	// PolicyConsistent answers 502 on both endpoints
	PolicyConsistent = "consistent"
)

// GroqConfig holds the vision provider configuration
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// ImageEditConfig holds the image-editing provider configuration
type ImageEditConfig struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIURL    string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiURL    string
	GeminiModel  string
}

// Config holds all configuration for the application
type Config struct {
	HTTPAddr            string
	AllowedOrigins      []string
	ProviderTimeout     time.Duration
	MaxUploadBytes      int64
	UpstreamErrorPolicy string
	LogLevel            string
	LogFormat           string
	Groq                GroqConfig
	ImageEdit           ImageEditConfig
}

// DefaultAllowedOrigins are the local development front-end origins
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Load loads the configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	// Load .env file, the process environment alone is enough when it is absent
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return FromEnv()
}

// FromEnv builds the configuration from environment variables only
func FromEnv() (*Config, error) {
	config := &Config{
		HTTPAddr:            getString("HTTP_ADDR", ":8000"),
		AllowedOrigins:      getList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		UpstreamErrorPolicy: strings.ToLower(getString("UPSTREAM_ERROR_POLICY", PolicyLegacy)),
		LogLevel:            getString("LOG_LEVEL", "info"),
		LogFormat:           getString("LOG_FORMAT", "json"),
	}

	if timeout, err := strconv.Atoi(os.Getenv("PROVIDER_TIMEOUT")); err == nil {
		config.ProviderTimeout = time.Duration(timeout) * time.Second
	} else {
		config.ProviderTimeout = 2 * time.Minute // default value
	}

	if maxBytes, err := strconv.ParseInt(os.Getenv("MAX_UPLOAD_BYTES"), 10, 64); err == nil {
		config.MaxUploadBytes = maxBytes
	} else {
		config.MaxUploadBytes = 20 * 1024 * 1024 // default value
	}

	// Load vision provider configuration
	groq := GroqConfig{
		APIKey:  os.Getenv("GROQ_API_KEY"),
		BaseURL: getString("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:   getString("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
	}

	if temperature, err := strconv.ParseFloat(os.Getenv("GROQ_TEMPERATURE"), 32); err == nil {
		groq.Temperature = float32(temperature)
	} else {
		groq.Temperature = 1 // default value
	}

	if topP, err := strconv.ParseFloat(os.Getenv("GROQ_TOP_P"), 32); err == nil {
		groq.TopP = float32(topP)
	} else {
		groq.TopP = 1 // default value
	}

	if maxTokens, err := strconv.Atoi(os.Getenv("GROQ_MAX_TOKENS")); err == nil {
		groq.MaxTokens = maxTokens
	} else {
		groq.MaxTokens = 4192 // default value
	}

	config.Groq = groq

	// Load image edit provider configuration
	config.ImageEdit = ImageEditConfig{
		Provider:     strings.ToLower(getString("IMAGE_EDIT_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIURL:    getString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:  getString("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiURL:    os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:  getString("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required secrets and enumerated settings
func (c *Config) Validate() error {
	if c.Groq.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}

	switch c.ImageEdit.Provider {
	case ProviderOpenAI:
		if c.ImageEdit.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.ImageEdit.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when IMAGE_EDIT_PROVIDER is %s", ProviderGemini)
		}
	default:
		return fmt.Errorf("IMAGE_EDIT_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.ImageEdit.Provider)
	}

	if c.UpstreamErrorPolicy != PolicyLegacy && c.UpstreamErrorPolicy != PolicyConsistent {
		return fmt.Errorf("UPSTREAM_ERROR_POLICY must be %q or %q, got %q", PolicyLegacy, PolicyConsistent, c.UpstreamErrorPolicy)
	}

	if c.Groq.MaxTokens <= 0 {
		return fmt.Errorf("GROQ_MAX_TOKENS must be positive")
	}

	return nil
}

func getString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
