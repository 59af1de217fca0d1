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


// Package pgvector provides a PostgreSQL-backed vector index using the
// pgvector extension. Unlike the badger index it filters by document natively
// in SQL, so the retriever never needs to over-fetch.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// Index implements storage.FilteredVectorIndex on PostgreSQL + pgvector.
type Index struct {
	db         *sql.DB
	collection string // raw name, used to derive further identifiers
	table      string // quoted identifier, safe to splice into SQL
	metric     string
	logger     *slog.Logger
}

var _ storage.FilteredVectorIndex = (*Index)(nil)

// Open connects to PostgreSQL and ensures the collection table exists.
// The table is named after the collection and sized to dimensions.
func Open(connectionString, collection string, dimensions int, metric string) (*Index, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		db:         db,
		collection: collection,
		table:      pq.QuoteIdentifier(collection),
		metric:     metric,
		logger:     slog.Default().With("component", "pgvector-index"),
	}
	if err := idx.ensureSchema(dimensions); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (i *Index) ensureSchema(dimensions int) error {
	if _, err := i.db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		chunk_id    BIGINT PRIMARY KEY,
		document_id TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		embedding   vector(%d) NOT NULL,
		content     TEXT NOT NULL,
		ordinal     INT NOT NULL,
		page        INT NOT NULL DEFAULT 0
	)`, i.table, dimensions)
	if _, err := i.db.Exec(stmt); err != nil {
		return err
	}
	_, err := i.db.Exec(fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
		pq.QuoteIdentifier("idx_"+i.collection+"_document"), i.table))
	return err
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

// operator returns the pgvector distance operator for the configured metric.
func (i *Index) operator() string {
	switch i.metric {
	case core.MetricL2:
		return "<->"
	case core.MetricDot:
		return "<#>"
	default:
		return "<=>"
	}
}

// score converts the operator's distance output to the index's native score:
// similarity for cosine, inner product for dot, distance for l2.
func (i *Index) score(distance float64) float32 {
	switch i.metric {
	case core.MetricL2:
		return float32(distance)
	case core.MetricDot:
		// <#> yields negative inner product
		return float32(-distance)
	default:
		return float32(1 - distance)
	}
}

// Upsert stores vectors keyed by chunk ID, overwriting existing entries.
func (i *Index) Upsert(ctx context.Context, vectors ...*core.IndexedVector) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %s (chunk_id, document_id, title, embedding, content, ordinal, page)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			title       = EXCLUDED.title,
			embedding   = EXCLUDED.embedding,
			content     = EXCLUDED.content,
			ordinal     = EXCLUDED.ordinal,
			page        = EXCLUDED.page`, i.table)

	for _, v := range vectors {
		_, err := tx.ExecContext(ctx, stmt,
			int64(v.ChunkId),
			v.DocumentId,
			v.Title,
			pgv.NewVector(v.Vector),
			v.Text,
			v.Ordinal,
			v.Page,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns up to limit nearest neighbors in the configured metric.
func (i *Index) Search(ctx context.Context, query []float32, limit int) ([]*core.VectorMatch, error) {
	return i.SearchByDocuments(ctx, query, limit, nil)
}

// SearchByDocuments behaves like Search restricted to permitted documents.
// A nil permitted set means no restriction.
func (i *Index) SearchByDocuments(ctx context.Context, query []float32, limit int, permitted map[string]bool) ([]*core.VectorMatch, error) {
	if limit <= 0 {
		return []*core.VectorMatch{}, nil
	}

	var docFilter interface{}
	if permitted != nil {
		ids := make([]string, 0, len(permitted))
		for id, ok := range permitted {
			if ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []*core.VectorMatch{}, nil
		}
		docFilter = pq.Array(ids)
	}

	stmt := fmt.Sprintf(`SELECT chunk_id, document_id, title, content, ordinal, page, embedding %s $1 AS distance
		FROM %s
		WHERE $3::text[] IS NULL OR document_id = ANY($3)
		ORDER BY distance ASC
		LIMIT $2`, i.operator(), i.table)

	rows, err := i.db.QueryContext(ctx, stmt, pgv.NewVector(query), limit, docFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []*core.VectorMatch{}
	for rows.Next() {
		var (
			chunkId  int64
			vec      core.IndexedVector
			distance float64
		)
		if err := rows.Scan(&chunkId, &vec.DocumentId, &vec.Title, &vec.Text, &vec.Ordinal, &vec.Page, &distance); err != nil {
			return nil, err
		}
		vec.ChunkId = core.ID(chunkId)
		matches = append(matches, &core.VectorMatch{
			Vector: &vec,
			Score:  i.score(distance),
		})
	}
	return matches, rows.Err()
}

// DeleteByDocument removes every vector belonging to the document.
func (i *Index) DeleteByDocument(ctx context.Context, documentId string) error {
	_, err := i.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, i.table), documentId)
	return err
}

// CountByDocument returns the number of vectors stored for the document.
func (i *Index) CountByDocument(ctx context.Context, documentId string) (int, error) {
	var count int
	err := i.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE document_id = $1`, i.table), documentId).Scan(&count)
	return count, err
}
