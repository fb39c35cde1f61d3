package models

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// ComputeGroupKey derives the content-addressed group key for a narration
// from the ordered sequence of live scene IDs it was generated against.
// Any reordering, insertion or deletion of scenes yields a different key,
// which is exactly what invalidates previously generated narrations.
func ComputeGroupKey(sceneIDs []uuid.UUID) string {
	h := sha256.New()
	for _, id := range sceneIDs {
		h.Write(id[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
