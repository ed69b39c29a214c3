// Package config loads service configuration from the environment with an
// optional YAML file overlay. The resulting Config value is passed explicitly
// into every constructor; nothing reads the environment after startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort string

	// SurrealDB connection (durable turn store)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Pinecone vector index
	PineconeHost   string
	PineconeAPIKey string

	// Chat model
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Embeddings (used by the vector index)
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// Pipeline feature flags, read once per request by the orchestrator.
	RetrievalEnabled     bool
	SummarizationEnabled bool
	ModelEnabled         bool
	TopK                 int

	// Directive is the fixed behavior instruction placed between the
	// retrieved context and the live user message.
	Directive string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// DefaultDirective is used when no directive is configured.
const DefaultDirective = "You are a helpful assistant. Use the provided " +
	"conversation context when it is relevant, and answer concisely."

// Load reads configuration from environment variables. If CONVERSE_CONFIG
// points at a YAML file, values from that file override the environment.
func Load() (Config, error) {
	cfg := Config{
		ServerPort: getEnv("CONVERSE_SERVER_PORT", "8383"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "converse"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "chat"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		PineconeHost:   getEnv("PINECONE_HOST", ""),
		PineconeAPIKey: getEnv("PINECONE_API_KEY", ""),

		LLMProvider:     Provider(getEnv("CONVERSE_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("CONVERSE_LLM_MODEL", "llama3.1"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		EmbedProvider:  Provider(getEnv("CONVERSE_EMBED_PROVIDER", string(ProviderOllama))),
		EmbedModel:     getEnv("CONVERSE_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("CONVERSE_EMBED_DIMENSION", 384),

		RetrievalEnabled:     getEnvBool("CONVERSE_RETRIEVAL_ENABLED", true),
		SummarizationEnabled: getEnvBool("CONVERSE_SUMMARIZATION_ENABLED", true),
		ModelEnabled:         getEnvBool("CONVERSE_MODEL_ENABLED", true),
		TopK:                 getEnvInt("CONVERSE_TOP_K", 10),

		Directive: getEnv("CONVERSE_DIRECTIVE", DefaultDirective),

		LogFile:  getEnv("CONVERSE_LOG_FILE", "/tmp/converse.log"),
		LogLevel: parseLogLevel(getEnv("CONVERSE_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("CONVERSE_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if cfg.TopK < 1 {
		return Config{}, fmt.Errorf("top-k must be a positive integer, got %d", cfg.TopK)
	}
	return cfg, nil
}

// fileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type fileConfig struct {
	ServerPort *string `yaml:"server_port"`

	SurrealDB struct {
		URL       *string `yaml:"url"`
		Namespace *string `yaml:"namespace"`
		Database  *string `yaml:"database"`
		User      *string `yaml:"user"`
		Pass      *string `yaml:"pass"`
	} `yaml:"surrealdb"`

	Pinecone struct {
		Host   *string `yaml:"host"`
		APIKey *string `yaml:"api_key"`
	} `yaml:"pinecone"`

	LLM struct {
		Provider *string `yaml:"provider"`
		Model    *string `yaml:"model"`
	} `yaml:"llm"`

	Retrieval     *bool   `yaml:"retrieval"`
	Summarization *bool   `yaml:"summarization"`
	Model         *bool   `yaml:"model"`
	TopK          *int    `yaml:"top_k"`
	Directive     *string `yaml:"directive"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString(&cfg.ServerPort, f.ServerPort)
	setString(&cfg.SurrealDBURL, f.SurrealDB.URL)
	setString(&cfg.SurrealDBNamespace, f.SurrealDB.Namespace)
	setString(&cfg.SurrealDBDatabase, f.SurrealDB.Database)
	setString(&cfg.SurrealDBUser, f.SurrealDB.User)
	setString(&cfg.SurrealDBPass, f.SurrealDB.Pass)
	setString(&cfg.PineconeHost, f.Pinecone.Host)
	setString(&cfg.PineconeAPIKey, f.Pinecone.APIKey)
	setString(&cfg.LLMModel, f.LLM.Model)
	setString(&cfg.Directive, f.Directive)
	if f.LLM.Provider != nil {
		cfg.LLMProvider = Provider(*f.LLM.Provider)
	}
	if f.Retrieval != nil {
		cfg.RetrievalEnabled = *f.Retrieval
	}
	if f.Summarization != nil {
		cfg.SummarizationEnabled = *f.Summarization
	}
	if f.Model != nil {
		cfg.ModelEnabled = *f.Model
	}
	if f.TopK != nil {
		cfg.TopK = *f.TopK
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
