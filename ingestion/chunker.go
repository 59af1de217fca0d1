package ingestion

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// Chunker splits document text into bounded, overlapping chunks according to
// the active chunking configuration. Chunk IDs are derived from the document
// ID and the chunk ordinal, so re-ingesting a document overwrites its old
// vectors instead of duplicating them.
type Chunker struct {
	splitter textsplitter.TextSplitter
	logger   *slog.Logger
}

// NewChunker builds a chunker from a validated chunking settings row.
// Settings are validated when saved, not here.
func NewChunker(settings *core.ChunkingSettings) (*Chunker, error) {
	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(settings.ChunkSize),
		textsplitter.WithChunkOverlap(settings.ChunkOverlap),
	}

	switch settings.Strategy {
	case core.ChunkingStrategyFixed:
		// Default separators degrade gracefully from paragraphs to characters.
	case core.ChunkingStrategySeparator:
		separator := settings.Separator
		if separator == "" {
			separator = "\n"
		}
		opts = append(opts, textsplitter.WithSeparators([]string{separator, ""}))
	case core.ChunkingStrategyParagraph:
		opts = append(opts, textsplitter.WithSeparators([]string{"\n\n", "\n", ""}))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChunkingStrategy, settings.Strategy)
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(opts...),
		logger:   slog.Default().With("component", "chunker"),
	}, nil
}

// Split cuts the document text into chunks with deterministic IDs.
func (c *Chunker) Split(documentId string, text string) ([]core.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	chunks := make([]core.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		ordinal := len(chunks)
		chunks = append(chunks, core.Chunk{
			Id:         core.ChunkID(documentId, ordinal),
			DocumentId: documentId,
			Ordinal:    ordinal,
			Text:       piece,
		})
	}

	c.logger.Debug("document chunked", "document", documentId, "chunks", len(chunks))
	return chunks, nil
}
