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


// Package retrieval finds the passages nearest to a query vector within a
// permitted document set.
//
// The retriever prefers an index with native document filtering. Against a
// plain index it over-fetches and post-filters. Either way the fetch size
// grows over a bounded number of rounds while capped results fall short of k,
// returning fewer than k results rather than looping. Results are deduplicated
// per document with a configurable cap and scores are normalized to [0,1] with
// higher always better, regardless of the index's native metric.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

const (
	// DefaultPerDocumentCap limits how many chunks a single document may
	// contribute so one document cannot dominate the context.
	DefaultPerDocumentCap = 3

	// defaultOverFetchMultiplier sizes the first fetch against an index
	// without native filtering.
	defaultOverFetchMultiplier = 4

	// maxFetchRounds bounds the over-fetch loop.
	maxFetchRounds = 3
)

// Retriever performs filtered nearest-neighbor retrieval over a vector index.
type Retriever struct {
	index     storage.VectorIndex
	metric    string
	perDocCap int
	logger    *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMetric sets the index's native metric so scores can be normalized.
// Defaults to cosine.
func WithMetric(metric string) RetrieverOption {
	return func(r *Retriever) {
		r.metric = metric
	}
}

// WithPerDocumentCap overrides the per-document chunk cap.
func WithPerDocumentCap(cap int) RetrieverOption {
	return func(r *Retriever) {
		if cap > 0 {
			r.perDocCap = cap
		}
	}
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index storage.VectorIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		index:     index,
		metric:    core.MetricCosine,
		perDocCap: DefaultPerDocumentCap,
		logger:    slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// normalizeScore maps a native index score to [0,1], higher is better.
// Similarity metrics land in [-1,1] for unit vectors; L2 is a distance.
func (r *Retriever) normalizeScore(native float32) float64 {
	switch r.metric {
	case core.MetricL2:
		d := float64(native)
		if d < 0 {
			d = 0
		}
		return 1.0 / (1.0 + d)
	default:
		s := (float64(native) + 1.0) / 2.0
		if s < 0 {
			return 0
		}
		if s > 1 {
			return 1
		}
		return s
	}
}

// Retrieve returns up to k scored chunks from permitted documents, best first.
// An empty permitted set or an empty index yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryVector []float32, permitted map[string]bool, k int) ([]*core.RetrievedChunk, error) {
	if k <= 0 || len(permitted) == 0 {
		return []*core.RetrievedChunk{}, nil
	}

	// Similarity metrics compare against unit-normalized stored vectors, so
	// the query must be normalized too. Harmless for L2.
	if r.metric != core.MetricL2 {
		queryVector = core.NormalizeVector(queryVector)
	}

	var matches []*core.VectorMatch
	var err error
	if filtered, ok := r.index.(storage.FilteredVectorIndex); ok {
		// Fetch beyond k so the per-document cap can still fill k slots. The
		// cap discards surplus chunks from dominant documents, so the fetch
		// still needs to grow when capped results fall short of k.
		matches, err = r.growingFetch(ctx, permitted, k, k*r.perDocCap,
			func(ctx context.Context, limit int) ([]*core.VectorMatch, error) {
				return filtered.SearchByDocuments(ctx, queryVector, limit, permitted)
			})
	} else {
		matches, err = r.growingFetch(ctx, permitted, k, k*defaultOverFetchMultiplier,
			func(ctx context.Context, limit int) ([]*core.VectorMatch, error) {
				return r.index.Search(ctx, queryVector, limit)
			})
	}
	if err != nil {
		return nil, err
	}

	results := r.capAndTruncate(matches, permitted, k)
	r.logger.Debug("retrieval complete",
		"requested", k,
		"returned", len(results),
		"permitted_docs", len(permitted))
	return results, nil
}

// growingFetch runs search with a growing fetch size until k capped results
// are available or rounds run out. Both the filtered and the post-filtered
// path use it: permission filtering and the per-document cap can each shrink a
// full batch below k.
func (r *Retriever) growingFetch(ctx context.Context, permitted map[string]bool, k, fetch int, search func(ctx context.Context, limit int) ([]*core.VectorMatch, error)) ([]*core.VectorMatch, error) {
	for round := 1; ; round++ {
		matches, err := search(ctx, fetch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrRetrievalUnavailable, err)
		}

		kept := r.capAndTruncate(matches, permitted, k)
		// Fewer matches than requested means the index is exhausted.
		if len(kept) >= k || len(matches) < fetch || round >= maxFetchRounds {
			return matches, nil
		}
		fetch *= 2
		r.logger.Debug("fetch round fell short, growing fetch",
			"round", round, "kept", len(kept), "next_fetch", fetch)
	}
}

// capAndTruncate filters matches to permitted documents, enforces the
// per-document cap, normalizes scores, and truncates to k. Matches arrive
// best-first from the index, so a single pass preserves ranking.
func (r *Retriever) capAndTruncate(matches []*core.VectorMatch, permitted map[string]bool, k int) []*core.RetrievedChunk {
	results := make([]*core.RetrievedChunk, 0, k)
	perDoc := make(map[string]int)
	for _, match := range matches {
		docId := match.Vector.DocumentId
		if !permitted[docId] {
			continue
		}
		if perDoc[docId] >= r.perDocCap {
			continue
		}
		perDoc[docId]++
		results = append(results, &core.RetrievedChunk{
			Vector: match.Vector,
			Score:  r.normalizeScore(match.Score),
		})
		if len(results) == k {
			break
		}
	}
	return results
}
