package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Separator joins namespace and key in composed cache keys. Namespaces must
// not contain it; ValidNamespace enforces that at the call sites that accept
// namespaces from flags.
const Separator = ":"

// Compose builds the physical store key for a namespace and caller key.
func Compose(namespace, key string) string {
	return namespace + Separator + key
}

// ValidNamespace reports whether a namespace can be composed unambiguously.
func ValidNamespace(namespace string) bool {
	return namespace != "" && !strings.Contains(namespace, Separator)
}

// Fingerprint returns a short stable digest of content, for deriving cache
// keys from compound or variable-length inputs. Same input yields the same
// digest across processes.
func Fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// QueryKey derives a cache key from a query string and a result limit.
// Used by the tracker wrappers to cache search responses.
func QueryKey(query string, limit int) string {
	return Fingerprint(fmt.Sprintf("%s:%d", query, limit))
}
