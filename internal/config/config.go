package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting of the service. It is built once at
// startup and treated as read-only afterwards.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	AI       AIConfig
	Pipeline PipelineConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	pipeline, err := loadPipelineConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Store: store, AI: ai, Pipeline: pipeline}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	LogLevel       string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", "info")
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port, LogLevel: logLevel, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, LogLevel: logLevel, AllowedOrigins: origins}, nil
}

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// StoreConfig selects and configures the message store.
type StoreConfig struct {
	Backend          string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisSessionTTL  time.Duration
	RedisMaxMessages int64
}

func loadStoreConfig() (StoreConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreMemory))
	switch backend {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_BACKEND value %q", backend)
	}

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return StoreConfig{}, err
	}

	ttlHours, err := parseIntEnv("REDIS_SESSION_TTL_HOURS", 0)
	if err != nil {
		return StoreConfig{}, err
	}

	maxMessages, err := parseIntEnv("REDIS_MAX_MESSAGES", 0)
	if err != nil {
		return StoreConfig{}, err
	}

	cfg := StoreConfig{
		Backend:          backend,
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		RedisSessionTTL:  time.Duration(max(ttlHours, 0)) * time.Hour,
		RedisMaxMessages: int64(max(maxMessages, 0)),
	}

	if cfg.Backend == StorePostgres && cfg.DatabaseURL == "" {
		return StoreConfig{}, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	return cfg, nil
}

// AI providers.
const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// AIConfig describes the text-generation provider.
type AIConfig struct {
	Provider     string
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

// ArkEnabled reports whether Ark credentials and a model are configured.
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// GeminiEnabled reports whether a Gemini API key is configured.
func (c AIConfig) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// ResolvedProvider returns the provider to use. An explicit AI_PROVIDER wins;
// otherwise Ark is preferred over Gemini, and none when neither has credentials.
func (c AIConfig) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.ArkEnabled():
		return ProviderArk
	case c.GeminiEnabled():
		return ProviderGemini
	default:
		return ProviderNone
	}
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	switch provider {
	case "", ProviderArk, ProviderGemini, ProviderNone:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeoutSeconds, err := parseIntEnv("AI_TIMEOUT_SECONDS", 15)
	if err != nil {
		return AIConfig{}, err
	}
	if timeoutSeconds < 1 {
		timeoutSeconds = 1
	}

	return AIConfig{
		Provider:     provider,
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-flash-latest"),
		Timeout:      time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// PipelineConfig holds the conversation window sizes and prompt override.
type PipelineConfig struct {
	ContextLimit       int
	PromptContextLimit int
	SystemInstruction  string
}

func loadPipelineConfig() (PipelineConfig, error) {
	contextLimit, err := parseIntEnv("CONTEXT_LIMIT", 10)
	if err != nil {
		return PipelineConfig{}, err
	}
	if contextLimit < 1 {
		return PipelineConfig{}, fmt.Errorf("invalid CONTEXT_LIMIT value %d: must be positive", contextLimit)
	}

	promptLimit, err := parseIntEnv("PROMPT_CONTEXT_LIMIT", 8)
	if err != nil {
		return PipelineConfig{}, err
	}
	if promptLimit < 1 {
		return PipelineConfig{}, fmt.Errorf("invalid PROMPT_CONTEXT_LIMIT value %d: must be positive", promptLimit)
	}

	return PipelineConfig{
		ContextLimit:       contextLimit,
		PromptContextLimit: promptLimit,
		SystemInstruction:  strings.TrimSpace(os.Getenv("PROMPT_SYSTEM_INSTRUCTION")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if val == nil {
		return defaultValue, nil
	}
	return *val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
