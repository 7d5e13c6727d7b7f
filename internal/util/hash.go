package util

import (
	"crypto/sha1"
	"encoding/hex"
)

// DeterministicID derives the stable short identifier used for entities
// without a standard accession (authors, keywords, countries, and grants or
// journals missing their registry id): the first 10 hex chars of the SHA-1
// of the text. Matches the ids baked into exported natural keys, so
// re-deriving from the same text always lands on the same entity.
func DeterministicID(text string) string {
	if text == "" {
		return ""
	}
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:10]
}
