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


// Package access computes which documents a user may retrieve from.
//
// Visibility is tag-based: a tag carries a set of allowed roles, and a user
// may read a tagged document when their role appears in the union of the
// document's tags' allowed-role sets. Untagged documents are readable by any
// authenticated user, and the admin role bypasses the role check entirely.
// An explicit tag filter narrows the result to documents carrying one of the
// requested tags, on top of the role check.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
	"github.com/lethanhson9903/rag-assistant-api-core/storage"
)

// Filter evaluates tag-based document visibility for a role.
type Filter struct {
	documents storage.DocumentRepository
	tags      storage.TagRepository
	logger    *slog.Logger
}

// NewFilter creates a filter over the given repositories.
func NewFilter(documents storage.DocumentRepository, tags storage.TagRepository) *Filter {
	return &Filter{
		documents: documents,
		tags:      tags,
		logger:    slog.Default().With("component", "access-filter"),
	}
}

// roleAllowed reports whether role appears in the union of the allowed-role
// sets of the given tags. A tag ID with no stored tag row grants nothing.
func (f *Filter) roleAllowed(ctx context.Context, role string, tagIds []string) (bool, error) {
	tags, err := f.tags.GetTags(ctx, tagIds...)
	if err != nil {
		return false, fmt.Errorf("loading tags: %w", err)
	}
	for _, tag := range tags {
		if slices.Contains(tag.AllowedRoles, role) {
			return true, nil
		}
	}
	return false, nil
}

func matchesTagFilter(doc *core.Document, tagFilter []string) bool {
	if len(tagFilter) == 0 {
		return true
	}
	for _, want := range tagFilter {
		if slices.Contains(doc.TagIds, want) {
			return true
		}
	}
	return false
}

// PermittedDocuments returns the set of document IDs the role may retrieve
// from, optionally narrowed to documents carrying one of the tagFilter tags.
// The returned map is never nil; an empty map means nothing is visible.
func (f *Filter) PermittedDocuments(ctx context.Context, role string, tagFilter []string) (map[string]bool, error) {
	docs, err := f.documents.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	permitted := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if !matchesTagFilter(doc, tagFilter) {
			continue
		}
		ok, err := f.allowed(ctx, role, doc)
		if err != nil {
			return nil, err
		}
		if ok {
			permitted[doc.Id] = true
		}
	}

	f.logger.Debug("computed permitted document set",
		"role", role,
		"tag_filter", len(tagFilter),
		"permitted", len(permitted),
		"total", len(docs))
	return permitted, nil
}

func (f *Filter) allowed(ctx context.Context, role string, doc *core.Document) (bool, error) {
	if role == core.RoleAdmin {
		return true, nil
	}
	// Untagged documents are readable by any authenticated user.
	if len(doc.TagIds) == 0 {
		return true, nil
	}
	return f.roleAllowed(ctx, role, doc.TagIds)
}

// CheckDocument gates a single-document fetch. Unlike bulk retrieval, which
// silently excludes invisible documents, a direct fetch of a document the role
// may not read returns ErrAccessDenied.
func (f *Filter) CheckDocument(ctx context.Context, role string, documentId string) (*core.Document, error) {
	doc, err := f.documents.GetDocument(ctx, documentId)
	if err != nil {
		return nil, err
	}
	ok, err := f.allowed(ctx, role, doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: document %s", core.ErrAccessDenied, documentId)
	}
	return doc, nil
}
