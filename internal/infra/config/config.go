package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	ServiceName string
	LogLevel    string
	Server      ServerConfig
	Corpus      CorpusConfig
	Retrieval   RetrievalConfig
	Guardrail   GuardrailConfig
	Embedder    EmbedderConfig
	Generator   GeneratorConfig
	Cache       CacheConfig
	OTel        OTelConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type CorpusConfig struct {
	Dir string
	// Require disables the placeholder corpus.
	Require       bool
	Watch         bool
	WatchDebounce time.Duration
}

type RetrievalConfig struct {
	DefaultK           int
	MaxK               int
	MaxQuestionChars   int
	ContextBudgetChars int
	Tokenizer          string
	EmbedTimeout       time.Duration
	GenerateTimeout    time.Duration
}

type GuardrailConfig struct {
	// RulesFile is an optional YAML file of extra masking rules.
	RulesFile string
}

type EmbedderConfig struct {
	Kind              string
	Dimension         int
	OllamaURL         string
	Model             string
	APIKey            string
	TimeoutSeconds    int
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
}

type GeneratorConfig struct {
	Kind           string
	Model          string
	APIBase        string
	APIKey         string
	PromptVersion  string
	MaxTokens      int
	TimeoutSeconds int
}

type CacheConfig struct {
	QueryEmbeddingSize int
	QueryEmbeddingTTL  time.Duration
}

type OTelConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceVersion string
	SampleRatio    float64
}

const (
	EmbedderHashing = "hashing"
	EmbedderOllama  = "ollama"

	GeneratorTemplate = "template"
	GeneratorOllama   = "ollama"
)

func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		ServiceName: getEnv("SERVICE_NAME", "rag-governor"),
		LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8000"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Corpus: CorpusConfig{
			Dir:           getEnv("CORPUS_DIR", "data/sample_docs"),
			Require:       getEnvBool("CORPUS_REQUIRE", false),
			Watch:         getEnvBool("CORPUS_WATCH", true),
			WatchDebounce: getEnvDuration("CORPUS_WATCH_DEBOUNCE", 500*time.Millisecond),
		},
		Retrieval: RetrievalConfig{
			DefaultK:           getEnvInt("RAG_DEFAULT_K", 6),
			MaxK:               getEnvInt("RAG_MAX_K", 100),
			MaxQuestionChars:   getEnvInt("RAG_MAX_QUESTION_CHARS", 4000),
			ContextBudgetChars: getEnvInt("RAG_CONTEXT_BUDGET_CHARS", 6000),
			Tokenizer:          getEnv("RAG_TOKENIZER", "simple"),
			EmbedTimeout:       getEnvDuration("RAG_EMBED_TIMEOUT", 10*time.Second),
			GenerateTimeout:    getEnvDuration("RAG_GENERATE_TIMEOUT", 60*time.Second),
		},
		Guardrail: GuardrailConfig{
			RulesFile: getEnv("GUARDRAIL_RULES_FILE", ""),
		},
		Embedder: EmbedderConfig{
			Kind:              strings.ToLower(getEnv("EMBEDDER", EmbedderHashing)),
			Dimension:         getEnvInt("EMBEDDING_DIMENSION", 256),
			OllamaURL:         getEnvWithAlt("EMBEDDING_API_BASE", "LLM_API_BASE", "http://localhost:11434"),
			Model:             getEnv("EMBEDDING_MODEL", "embeddinggemma"),
			APIKey:            getSecret("EMBEDDING_API_KEY", "EMBEDDING_API_KEY_FILE", ""),
			TimeoutSeconds:    getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30),
			BatchSize:         getEnvInt("EMBEDDING_BATCH_SIZE", 16),
			Concurrency:       getEnvInt("EMBEDDING_CONCURRENCY", 2),
			RequestsPerSecond: getEnvFloat64("EMBEDDING_RPS", 0),
		},
		Generator: GeneratorConfig{
			Kind:           strings.ToLower(getEnv("GENERATOR", GeneratorTemplate)),
			Model:          getEnv("LLM_MODEL", ""),
			APIBase:        getEnv("LLM_API_BASE", "http://localhost:11434"),
			APIKey:         getSecret("LLM_API_KEY", "LLM_API_KEY_FILE", ""),
			PromptVersion:  getEnv("RAG_PROMPT_VERSION", "governor-v1"),
			MaxTokens:      getEnvInt("RAG_MAX_TOKENS", 768),
			TimeoutSeconds: getEnvInt("LLM_TIMEOUT_SECONDS", 120),
		},
		Cache: CacheConfig{
			QueryEmbeddingSize: getEnvInt("QUERY_EMBEDDING_CACHE_SIZE", 1024),
			QueryEmbeddingTTL:  getEnvDuration("QUERY_EMBEDDING_CACHE_TTL", 10*time.Minute),
		},
		OTel: OTelConfig{
			Enabled:        getEnvBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			ServiceVersion: getEnv("SERVICE_VERSION", "0.1.0"),
			SampleRatio:    getEnvFloat64("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		},
	}
}

// Validate catches common misconfigurations before anything is wired.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %s", c.LogLevel))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Retrieval.MaxK <= 0 {
		errs = append(errs, fmt.Errorf("RAG_MAX_K must be positive, got %d", c.Retrieval.MaxK))
	}
	if c.Retrieval.DefaultK <= 0 || c.Retrieval.DefaultK > c.Retrieval.MaxK {
		errs = append(errs, fmt.Errorf("RAG_DEFAULT_K must be in [1, %d], got %d", c.Retrieval.MaxK, c.Retrieval.DefaultK))
	}
	if c.Retrieval.MaxQuestionChars <= 0 {
		errs = append(errs, fmt.Errorf("RAG_MAX_QUESTION_CHARS must be positive, got %d", c.Retrieval.MaxQuestionChars))
	}
	switch c.Retrieval.Tokenizer {
	case "simple", "kagome":
	default:
		errs = append(errs, fmt.Errorf("unknown RAG_TOKENIZER: %s", c.Retrieval.Tokenizer))
	}

	switch c.Embedder.Kind {
	case EmbedderHashing:
		if c.Embedder.Dimension <= 0 {
			errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Embedder.Dimension))
		}
	case EmbedderOllama:
		if c.Embedder.OllamaURL == "" || c.Embedder.Model == "" {
			errs = append(errs, errors.New("EMBEDDING_API_BASE and EMBEDDING_MODEL are required for the ollama embedder"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDER: %s", c.Embedder.Kind))
	}
	if c.Embedder.BatchSize <= 0 || c.Embedder.Concurrency <= 0 {
		errs = append(errs, errors.New("EMBEDDING_BATCH_SIZE and EMBEDDING_CONCURRENCY must be positive"))
	}

	switch c.Generator.Kind {
	case GeneratorTemplate:
	case GeneratorOllama:
		if c.Generator.Model == "" {
			errs = append(errs, errors.New("LLM_MODEL is required for the ollama generator"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GENERATOR: %s", c.Generator.Kind))
	}

	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_TRACE_SAMPLE_RATIO must be in [0, 1], got %v", c.OTel.SampleRatio))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat64(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
