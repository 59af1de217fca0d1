package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// MarshalLLMSettings serializes an LLMSettings row to bytes.
func MarshalLLMSettings(s *core.LLMSettings) []byte {
	size := ord.String.Size(s.Id) +
		ord.String.Size(s.Provider) +
		ord.String.Size(s.ModelName) +
		varint.Int.Size(s.MaxTokens) +
		varint.Float64.Size(s.Temperature) +
		varint.Float64.Size(s.TopP) +
		varint.Float64.Size(s.FrequencyPenalty) +
		varint.Float64.Size(s.PresencePenalty) +
		ord.String.Size(s.ApiKey) +
		ord.String.Size(s.ApiBase) +
		ord.Bool.Size(s.IsActive) +
		timeSize(s.InsertedAt) +
		timeSize(s.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(s.Id, buf)
	n += ord.String.Marshal(s.Provider, buf[n:])
	n += ord.String.Marshal(s.ModelName, buf[n:])
	n += varint.Int.Marshal(s.MaxTokens, buf[n:])
	n += varint.Float64.Marshal(s.Temperature, buf[n:])
	n += varint.Float64.Marshal(s.TopP, buf[n:])
	n += varint.Float64.Marshal(s.FrequencyPenalty, buf[n:])
	n += varint.Float64.Marshal(s.PresencePenalty, buf[n:])
	n += ord.String.Marshal(s.ApiKey, buf[n:])
	n += ord.String.Marshal(s.ApiBase, buf[n:])
	n += ord.Bool.Marshal(s.IsActive, buf[n:])
	n += marshalTime(s.InsertedAt, buf[n:])
	marshalTime(s.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalLLMSettings deserializes an LLMSettings row from bytes.
func UnmarshalLLMSettings(data []byte) (*core.LLMSettings, error) {
	s := &core.LLMSettings{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Provider, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ModelName, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.MaxTokens, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { s.Temperature, m, err = varint.Float64.Unmarshal(data[n:]); return err },
		func() error { s.TopP, m, err = varint.Float64.Unmarshal(data[n:]); return err },
		func() error { s.FrequencyPenalty, m, err = varint.Float64.Unmarshal(data[n:]); return err },
		func() error { s.PresencePenalty, m, err = varint.Float64.Unmarshal(data[n:]); return err },
		func() error { s.ApiKey, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ApiBase, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.IsActive, m, err = ord.Bool.Unmarshal(data[n:]); return err },
		func() error { s.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { s.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: llm settings: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return s, nil
}

// MarshalEmbeddingSettings serializes an EmbeddingSettings row to bytes.
func MarshalEmbeddingSettings(s *core.EmbeddingSettings) []byte {
	size := ord.String.Size(s.Id) +
		ord.String.Size(s.Provider) +
		ord.String.Size(s.ModelName) +
		varint.Int.Size(s.Dimensions) +
		ord.String.Size(s.ApiKey) +
		ord.String.Size(s.ApiBase) +
		ord.Bool.Size(s.IsActive) +
		timeSize(s.InsertedAt) +
		timeSize(s.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(s.Id, buf)
	n += ord.String.Marshal(s.Provider, buf[n:])
	n += ord.String.Marshal(s.ModelName, buf[n:])
	n += varint.Int.Marshal(s.Dimensions, buf[n:])
	n += ord.String.Marshal(s.ApiKey, buf[n:])
	n += ord.String.Marshal(s.ApiBase, buf[n:])
	n += ord.Bool.Marshal(s.IsActive, buf[n:])
	n += marshalTime(s.InsertedAt, buf[n:])
	marshalTime(s.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalEmbeddingSettings deserializes an EmbeddingSettings row from bytes.
func UnmarshalEmbeddingSettings(data []byte) (*core.EmbeddingSettings, error) {
	s := &core.EmbeddingSettings{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Provider, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ModelName, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Dimensions, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { s.ApiKey, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ApiBase, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.IsActive, m, err = ord.Bool.Unmarshal(data[n:]); return err },
		func() error { s.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { s.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: embedding settings: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return s, nil
}

// MarshalChunkingSettings serializes a ChunkingSettings row to bytes.
func MarshalChunkingSettings(s *core.ChunkingSettings) []byte {
	size := ord.String.Size(s.Id) +
		ord.String.Size(s.Strategy) +
		varint.Int.Size(s.ChunkSize) +
		varint.Int.Size(s.ChunkOverlap) +
		ord.String.Size(s.Separator) +
		ord.Bool.Size(s.IsActive) +
		timeSize(s.InsertedAt) +
		timeSize(s.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(s.Id, buf)
	n += ord.String.Marshal(s.Strategy, buf[n:])
	n += varint.Int.Marshal(s.ChunkSize, buf[n:])
	n += varint.Int.Marshal(s.ChunkOverlap, buf[n:])
	n += ord.String.Marshal(s.Separator, buf[n:])
	n += ord.Bool.Marshal(s.IsActive, buf[n:])
	n += marshalTime(s.InsertedAt, buf[n:])
	marshalTime(s.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalChunkingSettings deserializes a ChunkingSettings row from bytes.
func UnmarshalChunkingSettings(data []byte) (*core.ChunkingSettings, error) {
	s := &core.ChunkingSettings{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Strategy, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ChunkSize, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { s.ChunkOverlap, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { s.Separator, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.IsActive, m, err = ord.Bool.Unmarshal(data[n:]); return err },
		func() error { s.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { s.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: chunking settings: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return s, nil
}

// MarshalVectorDBSettings serializes a VectorDBSettings row to bytes.
func MarshalVectorDBSettings(s *core.VectorDBSettings) []byte {
	size := ord.String.Size(s.Id) +
		ord.String.Size(s.Provider) +
		ord.String.Size(s.ConnectionString) +
		ord.String.Size(s.CollectionName) +
		varint.Int.Size(s.Dimensions) +
		ord.String.Size(s.Metric) +
		ord.Bool.Size(s.IsActive) +
		timeSize(s.InsertedAt) +
		timeSize(s.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(s.Id, buf)
	n += ord.String.Marshal(s.Provider, buf[n:])
	n += ord.String.Marshal(s.ConnectionString, buf[n:])
	n += ord.String.Marshal(s.CollectionName, buf[n:])
	n += varint.Int.Marshal(s.Dimensions, buf[n:])
	n += ord.String.Marshal(s.Metric, buf[n:])
	n += ord.Bool.Marshal(s.IsActive, buf[n:])
	n += marshalTime(s.InsertedAt, buf[n:])
	marshalTime(s.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalVectorDBSettings deserializes a VectorDBSettings row from bytes.
func UnmarshalVectorDBSettings(data []byte) (*core.VectorDBSettings, error) {
	s := &core.VectorDBSettings{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Provider, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.ConnectionString, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.CollectionName, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Dimensions, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { s.Metric, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.IsActive, m, err = ord.Bool.Unmarshal(data[n:]); return err },
		func() error { s.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { s.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: vector db settings: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return s, nil
}

// MarshalSystemPrompt serializes a SystemPrompt row to bytes.
func MarshalSystemPrompt(s *core.SystemPrompt) []byte {
	size := ord.String.Size(s.Id) +
		ord.String.Size(s.Name) +
		ord.String.Size(s.Content) +
		ord.String.Size(s.Description) +
		ord.Bool.Size(s.IsDefault) +
		timeSize(s.InsertedAt) +
		timeSize(s.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(s.Id, buf)
	n += ord.String.Marshal(s.Name, buf[n:])
	n += ord.String.Marshal(s.Content, buf[n:])
	n += ord.String.Marshal(s.Description, buf[n:])
	n += ord.Bool.Marshal(s.IsDefault, buf[n:])
	n += marshalTime(s.InsertedAt, buf[n:])
	marshalTime(s.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalSystemPrompt deserializes a SystemPrompt row from bytes.
func UnmarshalSystemPrompt(data []byte) (*core.SystemPrompt, error) {
	s := &core.SystemPrompt{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Name, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Content, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.Description, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { s.IsDefault, m, err = ord.Bool.Unmarshal(data[n:]); return err },
		func() error { s.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { s.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: system prompt: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return s, nil
}
