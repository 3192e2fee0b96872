package social

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// ContentHash computes a content-address fingerprint of a post's body and
// linked media, the same blake3 digest the teacher's native/creator
// engine uses for content ids (sanitizeMetadata's blake3.Sum256), here
// generalised to the full set of media fields a Comment may carry.
func ContentHash(body, json, url, ipfs, magnet string) string {
	h := blake3.New(32, nil)
	for _, part := range []string{body, json, url, ipfs, magnet} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0}) // field separator so "" + "x" cannot collide with "x" + ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
