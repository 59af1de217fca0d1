// Copyright 2025 Son Le
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ingestion turns uploaded documents into indexed vectors.
//
// Each document moves through chunking, embedding, and indexing, with the
// document's status record updated at every stage and progress streamed to
// the caller. Embedding runs with bounded parallelism on a shared worker
// pool. Chunk IDs are deterministic, so re-ingesting a document after a
// failure overwrites its vectors rather than duplicating them.
//
// Deleting a document while it is being ingested cancels the in-flight run
// and waits for it to wind down before removing index entries, so a delete
// never leaves orphaned vectors behind.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/settings"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

const (
	defaultBatchSize   = 16
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// docGuard tracks one in-flight ingestion run so a concurrent delete can
// cancel it and wait it out.
type docGuard struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Pipeline orchestrates document ingestion.
type Pipeline struct {
	documents       storage.DocumentRepository
	index           storage.VectorIndex
	resolver        *settings.Resolver
	embedderFactory ai.EmbedderFactory

	embedPool   *ants.Pool
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration

	mu     sync.Mutex
	guards map[string]*docGuard

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.embedPool != nil {
			p.embedPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embedPool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per provider call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithRetry configures embedding retry attempts and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			p.baseDelay = baseDelay
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	index storage.VectorIndex,
	resolver *settings.Resolver,
	embedderFactory ai.EmbedderFactory,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if embedderFactory == nil {
		return nil, ErrProviderFactoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents:       documents,
		index:           index,
		resolver:        resolver,
		embedderFactory: embedderFactory,
		embedPool:       pool,
		batchSize:       defaultBatchSize,
		maxAttempts:     defaultMaxAttempts,
		baseDelay:       defaultBaseDelay,
		guards:          make(map[string]*docGuard),
		logger:          slog.Default().With("component", "ingestion-pipeline"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// IngestDocument runs the full ingestion for one document asynchronously and
// returns a channel of status updates. The channel is closed when the run
// reaches a terminal status. Configuration problems surface immediately as an
// error instead of a stream. Cancelling ctx stops status delivery but not the
// run itself; use DeleteDocument to abort an ingestion.
func (p *Pipeline) IngestDocument(ctx context.Context, documentId string) (<-chan core.StatusUpdate, error) {
	snapshot, err := p.resolver.IngestionSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := p.documents.GetDocument(ctx, documentId)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	guard := &docGuard{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	if _, busy := p.guards[documentId]; busy {
		p.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrIngestionInProgress, documentId)
	}
	p.guards[documentId] = guard
	p.mu.Unlock()

	updates := make(chan core.StatusUpdate, 8)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.guards, documentId)
			p.mu.Unlock()
			close(guard.done)
			close(updates)
			cancel()
		}()
		p.run(runCtx, ctx, snapshot, doc, updates)
	}()
	return updates, nil
}

// DeleteDocument removes a document, its stored content, and every vector it
// contributed to the index. An in-flight ingestion run for the document is
// cancelled and waited out first, so no vectors are written after the index
// sweep.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentId string) error {
	p.mu.Lock()
	guard := p.guards[documentId]
	p.mu.Unlock()
	if guard != nil {
		p.logger.Info("cancelling in-flight ingestion before delete", "document", documentId)
		guard.cancel()
		select {
		case <-guard.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := p.index.DeleteByDocument(ctx, documentId); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return p.documents.DeleteDocument(ctx, documentId)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embedPool != nil {
		p.embedPool.Release()
	}
}

// run executes one ingestion. ctx governs the work; consumer is the caller's
// context from IngestDocument and only gates status delivery, so an abandoned
// stream cannot stall the run.
func (p *Pipeline) run(ctx, consumer context.Context, snapshot *settings.Snapshot, doc *core.Document, updates chan<- core.StatusUpdate) {
	logger := p.logger.With("document", doc.Id)

	emit := func(status core.DocumentStatus, stage core.IngestionStage, progress float64, errMsg string) {
		update := core.StatusUpdate{
			DocumentId: doc.Id,
			Status:     status,
			Stage:      stage,
			Progress:   progress,
			Error:      errMsg,
			UpdatedAt:  time.Now(),
		}
		// Progress updates are advisory: a slow consumer loses intermediate
		// updates rather than stalling the run.
		if status == core.DocumentStatusProcessing {
			select {
			case updates <- update:
			default:
			}
			return
		}
		select {
		case updates <- update:
		case <-ctx.Done():
		case <-consumer.Done():
		}
	}

	fail := func(stage core.IngestionStage, err error) {
		logger.Error("ingestion failed", "stage", stage, "err", err)
		doc.Status = core.DocumentStatusFailed
		doc.ErrorMessage = err.Error()
		if _, updateErr := p.documents.UpdateDocument(context.Background(), doc); updateErr != nil {
			logger.Error("recording failure status failed", "err", updateErr)
		}
		emit(core.DocumentStatusFailed, stage, 0, err.Error())
	}

	// Chunking.
	doc.Status = core.DocumentStatusProcessing
	doc.ErrorMessage = ""
	if _, err := p.documents.UpdateDocument(ctx, doc); err != nil {
		fail(core.StageChunking, err)
		return
	}
	emit(core.DocumentStatusProcessing, core.StageChunking, 0, "")

	content, err := p.documents.GetDocumentContent(ctx, doc.Id)
	if err != nil {
		fail(core.StageChunking, err)
		return
	}
	chunker, err := NewChunker(snapshot.Chunking)
	if err != nil {
		fail(core.StageChunking, err)
		return
	}
	chunks, err := chunker.Split(doc.Id, content)
	if err != nil {
		fail(core.StageChunking, err)
		return
	}
	emit(core.DocumentStatusProcessing, core.StageChunking, 1, "")

	// Embedding with bounded parallelism.
	vectors, err := p.embedChunks(ctx, snapshot, doc, chunks, func(completed int) {
		emit(core.DocumentStatusProcessing, core.StageEmbedding, float64(completed)/float64(len(chunks)), "")
	})
	if err != nil {
		fail(core.StageEmbedding, err)
		return
	}

	// Indexing. Writes for one document are serialized so cancellation
	// leaves a clean prefix that a later delete can sweep.
	emit(core.DocumentStatusProcessing, core.StageIndexing, 0, "")
	for start := 0; start < len(vectors); start += p.batchSize {
		if ctx.Err() != nil {
			fail(core.StageIndexing, ctx.Err())
			return
		}
		end := min(start+p.batchSize, len(vectors))
		if err := p.index.Upsert(ctx, vectors[start:end]...); err != nil {
			fail(core.StageIndexing, err)
			return
		}
		emit(core.DocumentStatusProcessing, core.StageIndexing, float64(end)/float64(len(vectors)), "")
	}

	doc.Status = core.DocumentStatusReady
	doc.ChunkCount = len(chunks)
	if _, err := p.documents.UpdateDocument(ctx, doc); err != nil {
		fail(core.StageIndexing, err)
		return
	}
	emit(core.DocumentStatusReady, core.StageIndexing, 1, "")
	logger.Info("document ingested", "chunks", len(chunks))
}

// embedChunks embeds all chunks in batches on the worker pool. The first
// batch failure cancels the rest. onProgress is called with the cumulative
// number of embedded chunks.
func (p *Pipeline) embedChunks(ctx context.Context, snapshot *settings.Snapshot, doc *core.Document, chunks []core.Chunk, onProgress func(completed int)) ([]*core.IndexedVector, error) {
	embedder, err := p.embedderFactory(snapshot.Embedding)
	if err != nil {
		return nil, err
	}

	normalize := snapshot.VectorDB.Metric != core.MetricL2
	vectors := make([]*core.IndexedVector, len(chunks))

	batchCtx, cancelBatches := context.WithCancel(ctx)
	defer cancelBatches()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		completed int
	)
	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]
		offset := start

		wg.Add(1)
		submitErr := p.embedPool.Submit(func() {
			defer wg.Done()
			if batchCtx.Err() != nil {
				return
			}

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			var embedded [][]float32
			err := ai.RetryWithBackoff(batchCtx, func() error {
				var embedErr error
				embedded, embedErr = embedder.EmbedTexts(batchCtx, texts)
				return embedErr
			}, p.maxAttempts, p.baseDelay, ai.IsTransient)
			if err == nil && len(embedded) != len(batch) {
				err = fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(embedded))
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("embedding chunks %d-%d: %w", offset, offset+len(batch)-1, err)
				}
				mu.Unlock()
				cancelBatches()
				return
			}

			for i, chunk := range batch {
				vector := embedded[i]
				if normalize {
					vector = core.NormalizeVector(vector)
				}
				vectors[offset+i] = &core.IndexedVector{
					ChunkId:    chunk.Id,
					DocumentId: chunk.DocumentId,
					Title:      doc.Title,
					Vector:     vector,
					Text:       chunk.Text,
					Ordinal:    chunk.Ordinal,
				}
			}

			mu.Lock()
			completed += len(batch)
			done := completed
			mu.Unlock()
			if onProgress != nil {
				onProgress(done)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
			cancelBatches()
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
