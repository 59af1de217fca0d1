package core

import (
	"encoding/binary"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for derived entities such as chunks.
// It is generated by content-based hashing so that re-deriving the same
// content always produces the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the synthetic identifier for a chunk from its document and
// ordinal position. Re-ingesting a document overwrites index entries by this
// ID instead of duplicating them.
func ChunkID(documentId string, ordinal int) ID {
	return IDFromContent(documentId + ":" + strconv.Itoa(ordinal))
}
