package core

import "time"

// DocumentStatus describes where a document is in its ingestion lifecycle.
type DocumentStatus string

const (
	// DocumentStatusPending means the document has been uploaded but not processed.
	DocumentStatusPending DocumentStatus = "pending"
	// DocumentStatusProcessing means the ingestion pipeline is working on the document.
	DocumentStatusProcessing DocumentStatus = "processing"
	// DocumentStatusReady means the document is fully indexed and retrievable.
	DocumentStatusReady DocumentStatus = "ready"
	// DocumentStatusFailed means ingestion failed; ErrorMessage records the step.
	DocumentStatusFailed DocumentStatus = "failed"
)

// IngestionStage identifies the pipeline step a status update refers to.
type IngestionStage string

const (
	StageChunking  IngestionStage = "chunking"
	StageEmbedding IngestionStage = "embedding"
	StageIndexing  IngestionStage = "indexing"
)

// Document is an uploaded knowledge source. Its text content is stored
// separately from the metadata record (see storage.DocumentRepository).
type Document struct {
	Id           string
	Title        string
	Description  string
	FileName     string
	MimeType     string
	Status       DocumentStatus
	ErrorMessage string
	UserId       string
	TagIds       []string
	ChunkCount   int
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// StatusUpdate is a single progress event emitted by the ingestion pipeline.
type StatusUpdate struct {
	DocumentId string
	Status     DocumentStatus
	Stage      IngestionStage
	Progress   float64 // 0.0 - 1.0 within the current ingestion run
	Error      string
	UpdatedAt  time.Time
}

// Chunk is a bounded-length slice of a document's text, produced transiently
// during ingestion. It is never persisted as an entity; its embedding is what
// ends up in the vector index, keyed by a deterministic chunk ID.
type Chunk struct {
	Id         ID
	DocumentId string
	Ordinal    int
	Text       string
}

// IndexedVector is the vector index's stored unit. Title denormalizes the
// owning document's title so sources can be built without a document lookup.
type IndexedVector struct {
	ChunkId    ID
	DocumentId string
	Title      string
	Vector     []float32
	Text       string
	Ordinal    int
	Page       int // 0 when unknown
}

// VectorMatch is a raw nearest-neighbor hit as returned by a vector index.
// Score semantics depend on the index metric; the retriever normalizes them.
type VectorMatch struct {
	Vector *IndexedVector
	Score  float32
}

// RetrievedChunk is a candidate passage after access filtering and score
// normalization. Score is always in [0,1], higher is better.
type RetrievedChunk struct {
	Vector *IndexedVector
	Score  float64
}

// Tag labels a document and carries the set of roles allowed to retrieve
// from documents bearing it. A document with no tags is readable by every
// authenticated user.
type Tag struct {
	Id           string
	Name         string
	Color        string
	Description  string
	AllowedRoles []string
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// RoleAdmin bypasses tag-based access checks.
const RoleAdmin = "admin"

// Source is a retrieval result attached to an assistant message. It is
// immutable once created and must correspond to a chunk that was actually
// part of the prompt sent to the generator.
type Source struct {
	Id         string
	DocumentId string
	Title      string
	Content    string
	Page       int
	Score      float64
}

// Message roles as persisted with conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ConversationTurn is an ordered (role, content) pair already persisted by the
// conversation collaborator. The pipeline reads recent turns, never mutates them.
type ConversationTurn struct {
	Role    string
	Content string
}

// Message is a persisted conversation message, optionally carrying the
// sources that grounded an assistant answer.
type Message struct {
	Id             string
	ConversationId string
	Role           string
	Content        string
	Sources        []Source
	CreatedAt      time.Time
}

// Conversation groups messages for a single user dialog.
type Conversation struct {
	Id         string
	UserId     string
	Title      string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// User identifies a requester for access filtering purposes.
type User struct {
	Id   string
	Role string
}
