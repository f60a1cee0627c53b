package storage

import (
	"fmt"
	"hash/fnv"
)

// Digest returns a stable hex digest of b. Empty input yields "0".
func Digest(b []byte) string {
	if len(b) == 0 {
		return "0"
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf("%016x", h.Sum64())
}
