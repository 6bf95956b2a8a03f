package config

import (
	"fmt"
	"log"

	"github.com/gradnav/gradnav/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Embedding service: any OpenAI-compatible endpoint. The default model
	// matches the corpus the store was built with; changing it invalidates
	// stored vectors.
	EmbeddingBaseURL    string `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey     string `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"bge-m3"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1024"`

	// Cross-encoder rerank endpoint (Cohere-compatible /v2/rerank).
	RerankBaseURL string `envconfig:"RERANK_BASE_URL"`
	RerankAPIKey  string `envconfig:"RERANK_API_KEY"`
	RerankModel   string `envconfig:"RERANK_MODEL" default:"bge-reranker-v2-m3"`

	// Generative model used for answers, paraphrases and the agent loop.
	ChatBaseURL string `envconfig:"CHAT_BASE_URL"`
	ChatAPIKey  string `envconfig:"CHAT_API_KEY"`
	ChatModel   string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`

	// Retrieval tuning. Oversample and the rerank-skip threshold are
	// empirical, not derived from a cost model; treat them as knobs.
	SearchTopK       int `envconfig:"SEARCH_TOP_K" default:"5"`
	OversampleFactor int `envconfig:"OVERSAMPLE_FACTOR" default:"3"`
	ExpandParaphrase int `envconfig:"EXPAND_PARAPHRASES" default:"3"`
	AgentMaxSteps    int `envconfig:"AGENT_MAX_STEPS" default:"5"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"gradnav-pages"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("GRADNAV", &cfg); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration,
			"failed to process config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.EmbeddingDimensions <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration,
			fmt.Sprintf("invalid embedding dimensions %d", c.EmbeddingDimensions))
	}
	if c.OversampleFactor < 1 {
		c.OversampleFactor = 1
	}
	if c.AgentMaxSteps < 1 {
		c.AgentMaxSteps = 1
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasRerank() bool {
	return c.RerankBaseURL != ""
}
