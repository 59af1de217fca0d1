package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/lethanhson9903/rag-assistant-api-core/core"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentBodyPrefix = "docbody"
	tagPrefix          = "tagrec"
	conversationPrefix = "convrec"
	messagePrefix      = "msgrec"
	vectorPrefix       = "vecrec"
	vectorDocPrefix    = "vecdoc"
	settingsPrefix     = "setrec"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeDocumentBodyKey generates a key for a document's stored text content.
func makeDocumentBodyKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentBodyPrefix, id))
}

// makeTagKey generates a key for a tag record by ID.
func makeTagKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", tagPrefix, id))
}

// makeConversationKey generates a key for a conversation record by ID.
func makeConversationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", conversationPrefix, id))
}

// makeMessageKey generates a composite key for a message.
// Format: prefix:conversationID:timestamp:messageID. The timestamp is
// BigEndian so lexicographic iteration yields chronological order within a
// conversation.
func makeMessageKey(conversationId string, createdAt time.Time, messageId string) []byte {
	prefix := []byte(messagePrefix + ":" + conversationId + ":")
	buf := make([]byte, len(prefix)+8+len(messageId))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], messageId)
	return buf
}

// makeMessagePrefix generates the iteration prefix for a conversation's messages.
func makeMessagePrefix(conversationId string) []byte {
	return []byte(messagePrefix + ":" + conversationId + ":")
}

// makeVectorKey generates a key for an indexed vector by chunk ID.
func makeVectorKey(chunkId core.ID) []byte {
	prefix := []byte(vectorPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkId))
	return buf
}

// makeVectorDocKey generates a composite key for the document index.
// Format: prefix:documentID:chunkID, so deletes and counts can iterate one
// document's vectors without scanning the whole index.
func makeVectorDocKey(documentId string, chunkId core.ID) []byte {
	prefix := []byte(vectorDocPrefix + ":" + documentId + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkId))
	return buf
}

// makeVectorDocPrefix generates the iteration prefix for a document's vectors.
func makeVectorDocPrefix(documentId string) []byte {
	return []byte(vectorDocPrefix + ":" + documentId + ":")
}

// makeSettingsKey generates a key for a settings row.
// Format: prefix:kind:id
func makeSettingsKey(kind core.SettingsKind, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", settingsPrefix, kind, id))
}

// makeSettingsPrefix generates the iteration prefix for one settings kind.
func makeSettingsPrefix(kind core.SettingsKind) []byte {
	return []byte(fmt.Sprintf("%s:%s:", settingsPrefix, kind))
}
