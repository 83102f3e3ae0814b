package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentID derives a search-engine document id from a subject URI. Shared
// between the Update Handler's incremental path and the Index Manager's
// bulk rebuild path so both produce the identical id for the same subject.
func DocumentID(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:])
}
