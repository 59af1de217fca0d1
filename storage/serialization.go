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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// MUS serializers for stored values. Serializers are composed by hand from
// mus-go primitives; every struct field is written in declaration order.
var (
	vectorSer  = ord.NewSliceSer[float32](raw.Float32)
	stringsSer = ord.NewSliceSer[string](ord.String)
)

// marshalTime writes a time as Unix microseconds.
func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func timeSize(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalIndexedVector serializes an IndexedVector to bytes.
func MarshalIndexedVector(v *core.IndexedVector) []byte {
	size := varint.Uint64.Size(uint64(v.ChunkId)) +
		ord.String.Size(v.DocumentId) +
		ord.String.Size(v.Title) +
		vectorSer.Size(v.Vector) +
		ord.String.Size(v.Text) +
		varint.Int.Size(v.Ordinal) +
		varint.Int.Size(v.Page)
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(uint64(v.ChunkId), buf)
	n += ord.String.Marshal(v.DocumentId, buf[n:])
	n += ord.String.Marshal(v.Title, buf[n:])
	n += vectorSer.Marshal(v.Vector, buf[n:])
	n += ord.String.Marshal(v.Text, buf[n:])
	n += varint.Int.Marshal(v.Ordinal, buf[n:])
	varint.Int.Marshal(v.Page, buf[n:])
	return buf
}

// UnmarshalIndexedVector deserializes an IndexedVector from bytes.
func UnmarshalIndexedVector(data []byte) (*core.IndexedVector, error) {
	v := &core.IndexedVector{}
	chunkId, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk id: %w", ErrSerializationFailed, err)
	}
	v.ChunkId = core.ID(chunkId)
	var m int
	if v.DocumentId, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: document id: %w", ErrSerializationFailed, err)
	}
	n += m
	if v.Title, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: title: %w", ErrSerializationFailed, err)
	}
	n += m
	if v.Vector, m, err = vectorSer.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	n += m
	if v.Text, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrSerializationFailed, err)
	}
	n += m
	if v.Ordinal, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: ordinal: %w", ErrSerializationFailed, err)
	}
	n += m
	if v.Page, _, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: page: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(d *core.Document) []byte {
	size := ord.String.Size(d.Id) +
		ord.String.Size(d.Title) +
		ord.String.Size(d.Description) +
		ord.String.Size(d.FileName) +
		ord.String.Size(d.MimeType) +
		ord.String.Size(string(d.Status)) +
		ord.String.Size(d.ErrorMessage) +
		ord.String.Size(d.UserId) +
		stringsSer.Size(d.TagIds) +
		varint.Int.Size(d.ChunkCount) +
		timeSize(d.InsertedAt) +
		timeSize(d.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(d.Id, buf)
	n += ord.String.Marshal(d.Title, buf[n:])
	n += ord.String.Marshal(d.Description, buf[n:])
	n += ord.String.Marshal(d.FileName, buf[n:])
	n += ord.String.Marshal(d.MimeType, buf[n:])
	n += ord.String.Marshal(string(d.Status), buf[n:])
	n += ord.String.Marshal(d.ErrorMessage, buf[n:])
	n += ord.String.Marshal(d.UserId, buf[n:])
	n += stringsSer.Marshal(d.TagIds, buf[n:])
	n += varint.Int.Marshal(d.ChunkCount, buf[n:])
	n += marshalTime(d.InsertedAt, buf[n:])
	marshalTime(d.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	d := &core.Document{}
	var (
		n, m   int
		err    error
		status string
	)
	fields := []func() error{
		func() error { d.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.Title, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.Description, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.FileName, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.MimeType, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { status, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.ErrorMessage, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.UserId, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { d.TagIds, m, err = stringsSer.Unmarshal(data[n:]); return err },
		func() error { d.ChunkCount, m, err = varint.Int.Unmarshal(data[n:]); return err },
		func() error { d.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { d.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: document: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	d.Status = core.DocumentStatus(status)
	if len(d.TagIds) == 0 {
		// The slice serializer decodes zero elements as an empty slice;
		// a nil input must round-trip to nil.
		d.TagIds = nil
	}
	return d, nil
}

// MarshalTag serializes a Tag to bytes.
func MarshalTag(t *core.Tag) []byte {
	size := ord.String.Size(t.Id) +
		ord.String.Size(t.Name) +
		ord.String.Size(t.Color) +
		ord.String.Size(t.Description) +
		stringsSer.Size(t.AllowedRoles) +
		timeSize(t.InsertedAt) +
		timeSize(t.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(t.Id, buf)
	n += ord.String.Marshal(t.Name, buf[n:])
	n += ord.String.Marshal(t.Color, buf[n:])
	n += ord.String.Marshal(t.Description, buf[n:])
	n += stringsSer.Marshal(t.AllowedRoles, buf[n:])
	n += marshalTime(t.InsertedAt, buf[n:])
	marshalTime(t.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalTag deserializes a Tag from bytes.
func UnmarshalTag(data []byte) (*core.Tag, error) {
	t := &core.Tag{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { t.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { t.Name, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { t.Color, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { t.Description, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { t.AllowedRoles, m, err = stringsSer.Unmarshal(data[n:]); return err },
		func() error { t.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { t.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: tag: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	if len(t.AllowedRoles) == 0 {
		t.AllowedRoles = nil
	}
	return t, nil
}

// MarshalConversation serializes a Conversation to bytes.
func MarshalConversation(c *core.Conversation) []byte {
	size := ord.String.Size(c.Id) +
		ord.String.Size(c.UserId) +
		ord.String.Size(c.Title) +
		timeSize(c.InsertedAt) +
		timeSize(c.UpdatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(c.Id, buf)
	n += ord.String.Marshal(c.UserId, buf[n:])
	n += ord.String.Marshal(c.Title, buf[n:])
	n += marshalTime(c.InsertedAt, buf[n:])
	marshalTime(c.UpdatedAt, buf[n:])
	return buf
}

// UnmarshalConversation deserializes a Conversation from bytes.
func UnmarshalConversation(data []byte) (*core.Conversation, error) {
	c := &core.Conversation{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { c.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { c.UserId, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { c.Title, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { c.InsertedAt, m, err = unmarshalTime(data[n:]); return err },
		func() error { c.UpdatedAt, m, err = unmarshalTime(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: conversation: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	return c, nil
}

func sourceSize(s *core.Source) int {
	return ord.String.Size(s.Id) +
		ord.String.Size(s.DocumentId) +
		ord.String.Size(s.Title) +
		ord.String.Size(s.Content) +
		varint.Int.Size(s.Page) +
		varint.Float64.Size(s.Score)
}

func marshalSource(s *core.Source, bs []byte) int {
	n := ord.String.Marshal(s.Id, bs)
	n += ord.String.Marshal(s.DocumentId, bs[n:])
	n += ord.String.Marshal(s.Title, bs[n:])
	n += ord.String.Marshal(s.Content, bs[n:])
	n += varint.Int.Marshal(s.Page, bs[n:])
	n += varint.Float64.Marshal(s.Score, bs[n:])
	return n
}

func unmarshalSource(bs []byte) (core.Source, int, error) {
	s := core.Source{}
	var (
		n, m int
		err  error
	)
	fields := []func() error{
		func() error { s.Id, m, err = ord.String.Unmarshal(bs[n:]); return err },
		func() error { s.DocumentId, m, err = ord.String.Unmarshal(bs[n:]); return err },
		func() error { s.Title, m, err = ord.String.Unmarshal(bs[n:]); return err },
		func() error { s.Content, m, err = ord.String.Unmarshal(bs[n:]); return err },
		func() error { s.Page, m, err = varint.Int.Unmarshal(bs[n:]); return err },
		func() error { s.Score, m, err = varint.Float64.Unmarshal(bs[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return s, n, err
		}
		n += m
	}
	return s, n, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	size := ord.String.Size(msg.Id) +
		ord.String.Size(msg.ConversationId) +
		ord.String.Size(msg.Role) +
		ord.String.Size(msg.Content) +
		varint.Int.Size(len(msg.Sources)) +
		timeSize(msg.CreatedAt)
	for i := range msg.Sources {
		size += sourceSize(&msg.Sources[i])
	}
	buf := make([]byte, size)
	n := ord.String.Marshal(msg.Id, buf)
	n += ord.String.Marshal(msg.ConversationId, buf[n:])
	n += ord.String.Marshal(msg.Role, buf[n:])
	n += ord.String.Marshal(msg.Content, buf[n:])
	n += varint.Int.Marshal(len(msg.Sources), buf[n:])
	for i := range msg.Sources {
		n += marshalSource(&msg.Sources[i], buf[n:])
	}
	marshalTime(msg.CreatedAt, buf[n:])
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	msg := &core.Message{}
	var (
		n, m  int
		err   error
		count int
	)
	fields := []func() error{
		func() error { msg.Id, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { msg.ConversationId, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { msg.Role, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { msg.Content, m, err = ord.String.Unmarshal(data[n:]); return err },
		func() error { count, m, err = varint.Int.Unmarshal(data[n:]); return err },
	}
	for _, field := range fields {
		if err := field(); err != nil {
			return nil, fmt.Errorf("%w: message: %w", ErrSerializationFailed, err)
		}
		n += m
	}
	if count > 0 {
		msg.Sources = make([]core.Source, 0, count)
		for i := 0; i < count; i++ {
			source, m, err := unmarshalSource(data[n:])
			if err != nil {
				return nil, fmt.Errorf("%w: message source: %w", ErrSerializationFailed, err)
			}
			msg.Sources = append(msg.Sources, source)
			n += m
		}
	}
	if msg.CreatedAt, _, err = unmarshalTime(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: message: %w", ErrSerializationFailed, err)
	}
	return msg, nil
}
