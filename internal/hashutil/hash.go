// Package hashutil computes the content hash used to skip no-op updates.
package hashutil

import (
	"encoding/hex"
	"encoding/json"

	"github.com/spaolacci/murmur3"

	"github.com/fossabot/hull-customerio/internal/models"
)

// Hash returns a stable digest of the customer's id and attributes. The
// insert-only created_at is not content and is left out, so an unchanged user
// hashes the same on insert and on every later update.
func Hash(c models.Customer) string {
	attrs := c.Attributes.Clone()
	delete(attrs, models.TraitCreatedAt)

	// Attributes marshal with sorted keys at every depth.
	payload, err := json.Marshal(struct {
		ID         string            `json:"id"`
		Attributes models.Attributes `json:"attributes"`
	}{ID: c.ID, Attributes: attrs})
	if err != nil {
		return ""
	}

	h1, h2 := murmur3.Sum128(payload)
	var sum [16]byte
	for i := 0; i < 8; i++ {
		sum[i] = byte(h1 >> (56 - 8*i))
		sum[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(sum[:])
}
