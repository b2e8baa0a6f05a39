// Package checksum computes content revisions used for optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/starford/noteku/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Note returns the revision of a note's user-editable fields. The id and
// date are excluded so that re-saving identical content keeps the revision.
func Note(n models.Note) string {
	h := sha256.New()
	for _, part := range []string{n.Title, n.Content, string(n.Category)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
