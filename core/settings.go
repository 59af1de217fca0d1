package core

import "time"

// SettingsKind identifies a provider configuration family. Each kind has at
// most one row with IsActive=true at any time.
type SettingsKind string

const (
	SettingsKindLLM       SettingsKind = "llm"
	SettingsKindEmbedding SettingsKind = "embedding"
	SettingsKindChunking  SettingsKind = "chunking"
	SettingsKindVectorDB  SettingsKind = "vectordb"
	SettingsKindPrompt    SettingsKind = "prompt"
)

// Chunking strategies.
const (
	ChunkingStrategyFixed     = "fixed"
	ChunkingStrategySeparator = "separator"
	ChunkingStrategyParagraph = "paragraph"
)

// Vector similarity metrics.
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
	MetricL2     = "l2"
)

// Vector store providers.
const (
	VectorDBProviderBadger   = "badger"
	VectorDBProviderPGVector = "pgvector"
)

// LLMSettings configures the active text generation provider.
type LLMSettings struct {
	Id               string
	Provider         string
	ModelName        string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	ApiKey           string
	ApiBase          string
	IsActive         bool
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// EmbeddingSettings configures the active embedding provider.
type EmbeddingSettings struct {
	Id         string
	Provider   string
	ModelName  string
	Dimensions int
	ApiKey     string
	ApiBase    string
	IsActive   bool
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ChunkingSettings configures how documents are split during ingestion.
// ChunkOverlap must be strictly less than ChunkSize; this is enforced when the
// row is saved, never re-checked at ingestion time.
type ChunkingSettings struct {
	Id           string
	Strategy     string
	ChunkSize    int
	ChunkOverlap int
	Separator    string
	IsActive     bool
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// VectorDBSettings configures the active vector index backend.
type VectorDBSettings struct {
	Id               string
	Provider         string
	ConnectionString string
	CollectionName   string
	Dimensions       int
	Metric           string
	IsActive         bool
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// SystemPrompt is the instruction text prepended to every assembled prompt.
// The row with IsDefault=true is the active one.
type SystemPrompt struct {
	Id          string
	Name        string
	Content     string
	Description string
	IsDefault   bool
	InsertedAt  time.Time
	UpdatedAt   time.Time
}
