// Package fingerprint derives the cache-validity key for a translation pair.
//
// The fingerprint is a pure function of the (source, target) content: the
// same texts always hash to the same digest, and any character change yields
// a different digest with overwhelming probability. It is an equality key
// for cache invalidation, not a security primitive.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Pair returns the hex digest identifying the current content of a
// (source, target) pair. Texts are trimmed and NFC-normalized first so that
// visually identical Unicode spellings compare equal.
func Pair(source, target string) string {
	h := sha256.New()
	h.Write([]byte(normalize(source)))
	// NUL separates the fields so ("ab","c") and ("a","bc") cannot collide.
	h.Write([]byte{0})
	h.Write([]byte(normalize(target)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
