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


// Package prompt assembles the chat prompt sent to the generator.
//
// Assembly is budgeted: retrieved chunks are included greedily in descending
// score order until the token budget is reached, with score ties broken by
// shorter content first. The system prompt and the user question are always
// included; when the budget is tight, chunks are trimmed before conversation
// history, and history is dropped oldest first.
//
// The assembler returns the Source list alongside the messages, and the two
// always agree: every Source was part of the prompt, and every included chunk
// appears as a Source.
package prompt

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

const (
	// DefaultTurnCap is the maximum number of recent conversation turns
	// carried into the prompt.
	DefaultTurnCap = 10

	// DefaultSystemPrompt is used when no default prompt row is configured.
	DefaultSystemPrompt = "You are a helpful assistant. Answer the question using only the provided context. If the context does not contain the answer, say you do not know."

	// tokenizerModel selects the tokenizer for budget estimation. Estimation
	// only needs to be roughly right, so one tokenizer serves all providers.
	tokenizerModel = "gpt-3.5-turbo"
)

// TokenCounter estimates the token cost of a piece of text.
type TokenCounter func(text string) int

func defaultTokenCounter(text string) int {
	return llms.CountTokens(tokenizerModel, text)
}

// Assembler builds budgeted prompts from retrieved chunks and history.
type Assembler struct {
	countTokens TokenCounter
	turnCap     int
	logger      *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTokenCounter overrides the token estimation function.
func WithTokenCounter(counter TokenCounter) AssemblerOption {
	return func(a *Assembler) {
		if counter != nil {
			a.countTokens = counter
		}
	}
}

// WithTurnCap overrides the conversation turn cap.
func WithTurnCap(cap int) AssemblerOption {
	return func(a *Assembler) {
		if cap > 0 {
			a.turnCap = cap
		}
	}
}

// NewAssembler creates an assembler with the default tokenizer and turn cap.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		countTokens: defaultTokenCounter,
		turnCap:     DefaultTurnCap,
		logger:      slog.Default().With("component", "prompt-assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the prompt for a query. The returned Sources list exactly
// matches the chunks included in the prompt, in inclusion order.
func (a *Assembler) Assemble(query string, turns []core.ConversationTurn, chunks []*core.RetrievedChunk, systemPrompt string, tokenBudget int) *core.Prompt {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	// Fixed cost: system prompt and the question are never trimmed.
	baseCost := a.countTokens(systemPrompt) + a.countTokens(query)

	// Most recent turns up to the cap, oldest dropped first when over budget.
	history := turns
	if len(history) > a.turnCap {
		history = history[len(history)-a.turnCap:]
	}
	historyCost := 0
	for _, turn := range history {
		historyCost += a.countTokens(turn.Content)
	}
	for len(history) > 0 && baseCost+historyCost > tokenBudget {
		historyCost -= a.countTokens(history[0].Content)
		history = history[1:]
	}

	included := a.selectChunks(chunks, tokenBudget-baseCost-historyCost)

	messages := make([]core.PromptMessage, 0, len(history)+2)
	messages = append(messages, core.PromptMessage{
		Role:    core.RoleSystem,
		Content: renderSystemMessage(systemPrompt, included),
	})
	for _, turn := range history {
		messages = append(messages, core.PromptMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, core.PromptMessage{Role: core.RoleUser, Content: query})

	sources := make([]core.Source, 0, len(included))
	for _, chunk := range included {
		sources = append(sources, core.Source{
			Id:         fmt.Sprintf("%d", chunk.Vector.ChunkId),
			DocumentId: chunk.Vector.DocumentId,
			Title:      chunk.Vector.Title,
			Content:    chunk.Vector.Text,
			Page:       chunk.Vector.Page,
			Score:      chunk.Score,
		})
	}

	a.logger.Debug("prompt assembled",
		"chunks_offered", len(chunks),
		"chunks_included", len(included),
		"history_turns", len(history),
		"token_budget", tokenBudget)
	return &core.Prompt{Messages: messages, Sources: sources}
}

// selectChunks greedily includes chunks by descending score within the
// remaining budget. Ties in score prefer shorter content, which leaves room
// for more sources.
func (a *Assembler) selectChunks(chunks []*core.RetrievedChunk, budget int) []*core.RetrievedChunk {
	if budget <= 0 || len(chunks) == 0 {
		return nil
	}

	ranked := append([]*core.RetrievedChunk(nil), chunks...)
	slices.SortStableFunc(ranked, func(a, b *core.RetrievedChunk) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return len(a.Vector.Text) - len(b.Vector.Text)
	})

	var included []*core.RetrievedChunk
	used := 0
	for _, chunk := range ranked {
		cost := a.countTokens(chunk.Vector.Text)
		if used+cost > budget {
			break
		}
		used += cost
		included = append(included, chunk)
	}
	return included
}

func renderSystemMessage(systemPrompt string, chunks []*core.RetrievedChunk) string {
	if len(chunks) == 0 {
		return systemPrompt
	}
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nContext:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, chunk.Vector.Text)
	}
	return b.String()
}
