package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	queryEntryPrefix  = "quyent"
	queryAccessPrefix = "quyacc"
)

// makeEntryKey generates a key for a cached query by its hash.
func makeEntryKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", queryEntryPrefix, hash))
}

// makeAccessKey generates a composite key for the recency index.
// Format: prefix:lastUsed:hash
func makeAccessKey(lastUsed time.Time, hash string) []byte {
	prefix := queryAccessPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(hash) // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(lastUsed.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(hash))
	return buf
}

// hashFromAccessKey extracts the query hash from a recency index key.
func hashFromAccessKey(key []byte) string {
	offset := len(queryAccessPrefix) + 1 + 8
	if len(key) <= offset {
		return ""
	}
	return string(key[offset:])
}
