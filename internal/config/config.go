package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"docrag/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	MaxRetries  int    `yaml:"max_retries" validate:"gte=0"`
}

// GeminiEmbedderConfig holds configuration for the Gemini embedder.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type string `yaml:"type" validate:"oneof=openai gemini hashing"`
	// Dimension must match the vector store schema.
	Dimension int                   `yaml:"dimension" validate:"gte=0"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini    *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how pages are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" validate:"oneof=sentence"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" validate:"gt=0"`
	OverlapSentences  int    `yaml:"overlap_sentences" validate:"gte=0"`
	MaxTokens         int    `yaml:"max_tokens" validate:"gte=0"`
	MinTokens         int    `yaml:"min_tokens" validate:"gte=0"`
	// Encoding names the tokenizer; "words" counts whitespace-separated words.
	Encoding string `yaml:"encoding"`
}

// PipelineConfig controls batching during ingestion.
type PipelineConfig struct {
	EmbedBatchSize   int `yaml:"embed_batch_size" validate:"gt=0"`
	InsertBatchSize  int `yaml:"insert_batch_size" validate:"gt=0"`
	EmbedConcurrency int `yaml:"embed_concurrency" validate:"gt=0"`
}

// IngestConfig names the document to ingest and its stable id.
type IngestConfig struct {
	DocID  string `yaml:"doc_id"`
	Source string `yaml:"source"`
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	TopK   int           `yaml:"top_k" validate:"gt=0"`
	Filter domain.Filter `yaml:"filter"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string          `yaml:"type" validate:"oneof=memory qdrant chromem pgvector"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Chromem  *ChromemConfig  `yaml:"chromem,omitempty"`
	Pgvector *PgvectorConfig `yaml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// ChromemConfig configures the embedded persistent store.
type ChromemConfig struct {
	Path       string `yaml:"path" validate:"required"`
	Collection string `yaml:"collection" validate:"required"`
	Compress   bool   `yaml:"compress"`
}

// PgvectorConfig configures the Postgres/pgvector store.
type PgvectorConfig struct {
	DSNEnv string `yaml:"dsn_env" validate:"required"`
	Table  string `yaml:"table" validate:"required"`
	// AutoMigrate creates the extension and table when missing.
	AutoMigrate bool `yaml:"auto_migrate"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Query       QueryConfig       `yaml:"query"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	cfg := base()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./docrag.yaml first, then ~/.config/docrag/config.yaml.
// If neither exists, it returns defaults without writing anything.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "docrag.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/docrag/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := base()
	applyConfigDefaults(cfg)
	return cfg
}

// base holds the type-independent defaults; sections that depend on the
// selected embedder or store are filled by applyConfigDefaults.
func base() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{Type: "openai"},
		Chunker: ChunkerConfig{
			Type:              "sentence",
			SentencesPerChunk: 20,
			OverlapSentences:  2,
			MaxTokens:         1300,
			MinTokens:         50,
			Encoding:          "cl100k_base",
		},
		Pipeline:    PipelineConfig{EmbedBatchSize: 100, InsertBatchSize: 200, EmbedConcurrency: 1},
		Query:       QueryConfig{TopK: 3},
		VectorStore: VectorStoreConfig{Type: "chromem"},
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

// Validate checks field constraints and cross-field rules.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.Chunker.MaxTokens > 0 && c.Chunker.MinTokens > c.Chunker.MaxTokens {
		return fmt.Errorf("%w: chunker.min_tokens (%d) exceeds chunker.max_tokens (%d)",
			domain.ErrInvalidConfig, c.Chunker.MinTokens, c.Chunker.MaxTokens)
	}
	return nil
}

var defaultDimensions = map[string]int{
	"openai":  1536,
	"gemini":  768,
	"hashing": 512,
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 20
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = defaultDimensions[cfg.Embedder.Type]
	}
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 5
		}
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "text-embedding-004"
		}
	}
	switch cfg.VectorStore.Type {
	case "chromem":
		if cfg.VectorStore.Chromem == nil {
			cfg.VectorStore.Chromem = &ChromemConfig{}
		}
		if cfg.VectorStore.Chromem.Path == "" {
			cfg.VectorStore.Chromem.Path = "./docrag.db"
		}
		if cfg.VectorStore.Chromem.Collection == "" {
			cfg.VectorStore.Chromem.Collection = "chunks"
		}
	case "pgvector":
		if cfg.VectorStore.Pgvector == nil {
			cfg.VectorStore.Pgvector = &PgvectorConfig{}
		}
		if cfg.VectorStore.Pgvector.DSNEnv == "" {
			cfg.VectorStore.Pgvector.DSNEnv = "DATABASE_URL"
		}
		if cfg.VectorStore.Pgvector.Table == "" {
			cfg.VectorStore.Pgvector.Table = "chunks"
		}
	case "qdrant":
		if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "chunks"
		}
	}
}
