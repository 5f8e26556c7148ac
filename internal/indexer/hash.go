package indexer

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ContentHash fingerprints file content for the unchanged-file skip.
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}
