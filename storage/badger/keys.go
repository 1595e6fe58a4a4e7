package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different snapshot records
const (
	manifestKey     = "snapman"
	vocabularyKey   = "snapvoc"
	documentPrefix  = "snapdoc"
	fragmentPrefix  = "snapfra"
	embeddingPrefix = "snapemb"
	rowPrefix       = "snaprow"
)

// makePositionKey generates a key for a positional record.
// Format: prefix:position
func makePositionKey(prefix string, position int) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort matches position order
	binary.BigEndian.PutUint64(buf[offset:], uint64(position))
	return buf
}

// makePositionPrefix generates the iteration prefix for positional records.
func makePositionPrefix(prefix string) []byte {
	return []byte(prefix + ":")
}

// positionFromKey extracts the position from a key built by makePositionKey.
func positionFromKey(prefix string, key []byte) (int, error) {
	want := len(prefix) + 1 + 8
	if len(key) != want {
		return 0, fmt.Errorf("malformed %s key of %d bytes", prefix, len(key))
	}
	return int(binary.BigEndian.Uint64(key[len(prefix)+1:])), nil
}
