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


package badger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// VectorIndex implements storage.FilteredVectorIndex for BadgerDB with a
// brute-force scan. Good enough for the document counts a single assistant
// instance serves; larger deployments configure the pgvector backend instead.
type VectorIndex struct {
	backend    *Backend
	dimensions int
	metric     string
}

var _ storage.FilteredVectorIndex = (*VectorIndex)(nil)

// VectorIndexOption configures a VectorIndex.
type VectorIndexOption func(*VectorIndex)

// WithMetric sets the similarity metric (cosine, dot, l2). Default is cosine.
func WithMetric(metric string) VectorIndexOption {
	return func(v *VectorIndex) {
		v.metric = metric
	}
}

// WithDimensions enforces a fixed vector dimensionality on upsert and search.
// Zero disables the check.
func WithDimensions(d int) VectorIndexOption {
	return func(v *VectorIndex) {
		v.dimensions = d
	}
}

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend, opts ...VectorIndexOption) (*VectorIndex, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	v := &VectorIndex{
		backend: backend,
		metric:  core.MetricCosine,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Close is a no-op; the index holds no resources beyond the backend.
func (v *VectorIndex) Close() error {
	return nil
}

func (v *VectorIndex) checkDimensions(vec []float32) error {
	if v.dimensions > 0 && len(vec) != v.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, v.dimensions, len(vec))
	}
	return nil
}

// Upsert stores vectors keyed by chunk ID, overwriting existing entries.
// Re-ingesting a document therefore replaces its vectors instead of
// duplicating them.
func (v *VectorIndex) Upsert(ctx context.Context, vectors ...*core.IndexedVector) error {
	for _, vec := range vectors {
		if err := v.checkDimensions(vec.Vector); err != nil {
			return err
		}
	}
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, vec := range vectors {
			if err := tx.Set(makeVectorKey(vec.ChunkId), storage.MarshalIndexedVector(vec)); err != nil {
				return err
			}
			// Secondary index: document -> chunk IDs.
			if err := tx.Set(makeVectorDocKey(vec.DocumentId, vec.ChunkId), storage.MarshalID(vec.ChunkId)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search returns up to limit nearest neighbors in the configured metric.
func (v *VectorIndex) Search(ctx context.Context, query []float32, limit int) ([]*core.VectorMatch, error) {
	return v.SearchByDocuments(ctx, query, limit, nil)
}

// SearchByDocuments behaves like Search restricted to permitted documents.
// A nil permitted set means no restriction.
func (v *VectorIndex) SearchByDocuments(ctx context.Context, query []float32, limit int, permitted map[string]bool) ([]*core.VectorMatch, error) {
	if err := v.checkDimensions(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*core.VectorMatch{}, nil
	}

	var matches []*core.VectorMatch
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var vec *core.IndexedVector
			err := iter.Item().Value(func(val []byte) error {
				var err error
				vec, err = storage.UnmarshalIndexedVector(val)
				return err
			})
			if err != nil {
				return err
			}
			if permitted != nil && !permitted[vec.DocumentId] {
				continue
			}
			matches = append(matches, &core.VectorMatch{
				Vector: vec,
				Score:  v.score(query, vec.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b *core.VectorMatch) int {
		if v.better(a.Score, b.Score) {
			return -1
		}
		if v.better(b.Score, a.Score) {
			return 1
		}
		return 0
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []*core.VectorMatch{}
	}
	return matches, nil
}

// DeleteByDocument removes every vector belonging to the document.
func (v *VectorIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		chunkIds, err := v.chunkIds(tx, documentId)
		if err != nil {
			return err
		}
		for _, id := range chunkIds {
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorDocKey(documentId, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountByDocument returns the number of vectors stored for the document.
func (v *VectorIndex) CountByDocument(ctx context.Context, documentId string) (int, error) {
	var count int
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := v.chunkIds(tx, documentId)
		if err != nil {
			return err
		}
		count = len(ids)
		return nil
	}, false)
	return count, err
}

func (v *VectorIndex) chunkIds(tx *badger.Txn, documentId string) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeVectorDocPrefix(documentId)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	prefixLen := len(makeVectorDocPrefix(documentId))
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if len(key) < prefixLen+8 {
			continue
		}
		var raw [8]byte
		copy(raw[:], key[prefixLen:])
		ids = append(ids, core.ID(uint64FromBigEndian(raw)))
	}
	return ids, nil
}

func uint64FromBigEndian(b [8]byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// score computes the native-metric score for a candidate.
func (v *VectorIndex) score(query, candidate []float32) float32 {
	switch v.metric {
	case core.MetricL2:
		return l2Distance(query, candidate)
	default:
		// cosine assumes unit-normalized vectors, making it a dot product
		return dotProduct(query, candidate)
	}
}

// better reports whether score a beats score b in the configured metric.
func (v *VectorIndex) better(a, b float32) bool {
	if v.metric == core.MetricL2 {
		return a < b
	}
	return a > b
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// l2Distance calculates the Euclidean distance between two vectors.
func l2Distance(a, b []float32) float32 {
	var sum float32
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}
