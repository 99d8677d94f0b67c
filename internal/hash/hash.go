// Package hash fingerprints fetched page content so unchanged pages can be
// skipped on later crawls.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Content returns a hex SHA-256 digest over a page's rendered HTML and
// markdown. Either part may be empty; the separator keeps the pair
// unambiguous.
func Content(html, markdown string) string {
	h := sha256.New()
	h.Write([]byte(html))
	h.Write([]byte{0})
	h.Write([]byte(markdown))
	return hex.EncodeToString(h.Sum(nil))
}
