package lysbilde

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

// shortHash returns the first 8 hex characters of the BLAKE3 digest of data.
// The hash is computed over raw bytes only, never paths or mtimes, so it
// doubles as both the cache key and the cache-busting URL component.
func shortHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:4])
}

// hashFilename inserts a content hash between a filename's stem and
// extension: "style.css" -> "style-ab12cd34.css".
func hashFilename(name string, contents []byte) string {
	hash := shortHash(contents)

	dot := strings.LastIndex(name, ".")
	if dot < 0 {
		return fmt.Sprintf("%s-%s", name, hash)
	}
	return fmt.Sprintf("%s-%s%s", name[:dot], hash, name[dot:])
}
