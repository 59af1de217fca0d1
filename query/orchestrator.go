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


// Package query orchestrates the retrieval-augmented answer pipeline.
//
// A query moves through a fixed sequence of states:
//
//	Received -> Filtering -> Embedding -> Retrieving -> Assembling -> Generating -> Completed | Failed
//
// Only configuration-integrity failures abort a query. Everything downstream
// degrades: embedding or retrieval failures shrink the source set to zero,
// and generation failures produce a deterministic fallback answer. The
// Failed state is internal bookkeeping that selects the fallback; callers
// always receive an answer.
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lethanhson9903/rag-assistant-api-core/access"
	"github.com/lethanhson9903/rag-assistant-api-core/ai"
	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/prompt"
	"github.com/lethanhson9903/rag-assistant-api-core/retrieval"
	"github.com/lethanhson9903/rag-assistant-api-core/settings"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// State is a stage of the query pipeline.
type State string

const (
	StateReceived   State = "received"
	StateFiltering  State = "filtering"
	StateEmbedding  State = "embedding"
	StateRetrieving State = "retrieving"
	StateAssembling State = "assembling"
	StateGenerating State = "generating"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

const (
	// NoKnowledgeAnswer is returned when there is nothing to search and the
	// query cannot even be embedded. Absence of knowledge is not an error.
	NoKnowledgeAnswer = "I don't have any information to answer that question."

	// FallbackAnswer is returned when generation fails after retries. The
	// underlying error goes to the log, never to the end user.
	FallbackAnswer = "I'm sorry, I wasn't able to produce an answer right now. Please try again."

	// DefaultTopK is the number of chunks requested from retrieval.
	DefaultTopK = 5

	// DefaultTokenBudget bounds the assembled prompt size.
	DefaultTokenBudget = 3000

	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Result is the terminal outcome of a query: the answer text, the sources
// that grounded it, and the terminal state reached.
type Result struct {
	Answer  string
	Sources []core.Source
	State   State
}

// Orchestrator runs queries end to end.
type Orchestrator struct {
	resolver        *settings.Resolver
	filter          *access.Filter
	index           storage.VectorIndex
	providerFactory ai.ProviderFactory
	conversations   storage.ConversationRepository
	assembler       *prompt.Assembler

	topK        int
	tokenBudget int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTopK sets how many chunks retrieval returns.
func WithTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithTokenBudget sets the prompt token budget.
func WithTokenBudget(budget int) Option {
	return func(o *Orchestrator) {
		if budget > 0 {
			o.tokenBudget = budget
		}
	}
}

// WithRetry configures provider retry attempts and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(o *Orchestrator) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			o.baseDelay = baseDelay
		}
	}
}

// WithAssembler overrides the prompt assembler.
func WithAssembler(a *prompt.Assembler) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.assembler = a
		}
	}
}

// NewOrchestrator wires the pipeline. conversations may be nil, in which case
// history is skipped and answers are not persisted.
func NewOrchestrator(
	resolver *settings.Resolver,
	filter *access.Filter,
	index storage.VectorIndex,
	providerFactory ai.ProviderFactory,
	conversations storage.ConversationRepository,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		resolver:        resolver,
		filter:          filter,
		index:           index,
		providerFactory: providerFactory,
		conversations:   conversations,
		assembler:       prompt.NewAssembler(),
		topK:            DefaultTopK,
		tokenBudget:     DefaultTokenBudget,
		maxAttempts:     defaultMaxAttempts,
		baseDelay:       defaultBaseDelay,
		logger:          slog.Default().With("component", "query-orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessQuery runs one query through the full pipeline and returns the
// answer with its sources. Configuration errors and context cancellation are
// the only failures returned as errors; provider and infrastructure failures
// degrade to fewer (or zero) sources or a fallback answer.
func (o *Orchestrator) ProcessQuery(ctx context.Context, queryText string, conversationId string, user core.User, tagFilter []string) (*Result, error) {
	logger := o.logger.With("conversation", conversationId, "role", user.Role)
	state := StateReceived
	step := func(next State) {
		logger.Debug("query state transition", "from", state, "to", next)
		state = next
	}

	// Settings snapshot is taken once; the whole query runs against it.
	snapshot, err := o.resolver.QuerySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := o.providerFactory(snapshot.LLM, snapshot.Embedding)
	if err != nil {
		return nil, err
	}
	defer provider.Close()

	step(StateFiltering)
	permitted, err := o.filter.PermittedDocuments(ctx, user.Role, tagFilter)
	if err != nil {
		// Degraded visibility means nothing is retrievable, not a failure.
		logger.Error("access filtering failed, continuing without sources", "err", err)
		permitted = map[string]bool{}
	}

	step(StateEmbedding)
	var chunks []*core.RetrievedChunk
	queryVector, embedErr := o.embedQuery(ctx, provider.Embedder(), queryText)
	if embedErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if len(permitted) == 0 {
			// Nothing to search and no way to search it. Absence of
			// knowledge is a valid outcome, not a failure.
			logger.Warn("embedding failed with no permitted documents, answering without knowledge", "err", embedErr)
			result := &Result{Answer: NoKnowledgeAnswer, Sources: []core.Source{}, State: StateCompleted}
			o.persistTurn(ctx, conversationId, user, queryText, result)
			return result, nil
		}
		logger.Error("query embedding failed, continuing without sources", "err", embedErr)
	} else if len(permitted) > 0 {
		step(StateRetrieving)
		retriever := retrieval.NewRetriever(o.index, retrieval.WithMetric(snapshot.VectorDB.Metric))
		chunks, err = retriever.Retrieve(ctx, queryVector, permitted, o.topK)
		if err != nil {
			logger.Error("retrieval failed, continuing without sources", "err", err)
			chunks = nil
		}
	}

	step(StateAssembling)
	history := o.recentTurns(ctx, conversationId)
	systemPrompt := ""
	if snapshot.SystemPrompt != nil {
		systemPrompt = snapshot.SystemPrompt.Content
	}
	assembled := o.assembler.Assemble(queryText, history, chunks, systemPrompt, o.tokenBudget)

	step(StateGenerating)
	answer, genErr := o.generate(ctx, provider.Generator(), assembled.Messages)
	var result *Result
	if genErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		step(StateFailed)
		logger.Error("generation failed, returning fallback answer", "err", genErr)
		result = &Result{Answer: FallbackAnswer, Sources: []core.Source{}, State: StateFailed}
	} else {
		step(StateCompleted)
		result = &Result{Answer: answer, Sources: assembled.Sources, State: StateCompleted}
	}

	o.persistTurn(ctx, conversationId, user, queryText, result)
	logger.Info("query processed",
		"state", result.State,
		"sources", len(result.Sources))
	return result, nil
}

// embedQuery embeds the query text with bounded retries. Only provider
// failures are retried.
func (o *Orchestrator) embedQuery(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	var vector []float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vector, embedErr = embedder.EmbedText(ctx, text)
		return embedErr
	}, o.maxAttempts, o.baseDelay, ai.IsTransient)
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// generate invokes the generator with bounded retries on transient failures.
// Fatal provider errors are surfaced immediately.
func (o *Orchestrator) generate(ctx context.Context, generator ai.Generator, messages []core.PromptMessage) (string, error) {
	var answer string
	err := ai.RetryWithBackoff(ctx, func() error {
		var genErr error
		answer, genErr = generator.Generate(ctx, messages)
		return genErr
	}, o.maxAttempts, o.baseDelay, func(err error) bool {
		return errors.Is(err, core.ErrGeneratorTransient)
	})
	return answer, err
}

func (o *Orchestrator) recentTurns(ctx context.Context, conversationId string) []core.ConversationTurn {
	if o.conversations == nil || conversationId == "" {
		return nil
	}
	turns, err := o.conversations.GetRecentTurns(ctx, conversationId, prompt.DefaultTurnCap)
	if err != nil {
		o.logger.Warn("loading conversation history failed, continuing without it",
			"conversation", conversationId, "err", err)
		return nil
	}
	return turns
}

// persistTurn appends the user question and the assistant answer (with its
// sources) to the conversation. Persistence failures are logged; the caller
// still gets the answer.
func (o *Orchestrator) persistTurn(ctx context.Context, conversationId string, user core.User, queryText string, result *Result) {
	if o.conversations == nil || conversationId == "" {
		return
	}
	now := time.Now()
	userMsg := &core.Message{
		Id:             uuid.NewString(),
		ConversationId: conversationId,
		Role:           core.RoleUser,
		Content:        queryText,
		CreatedAt:      now,
	}
	if _, err := o.conversations.AddMessage(ctx, userMsg); err != nil {
		o.logger.Warn("persisting user message failed", "conversation", conversationId, "err", err)
		return
	}
	assistantMsg := &core.Message{
		Id:             uuid.NewString(),
		ConversationId: conversationId,
		Role:           core.RoleAssistant,
		Content:        result.Answer,
		Sources:        result.Sources,
		CreatedAt:      now.Add(time.Millisecond),
	}
	if _, err := o.conversations.AddMessage(ctx, assistantMsg); err != nil {
		o.logger.Warn("persisting assistant message failed", "conversation", conversationId, "err", err)
	}
}
