package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CacheKey represents a unique identifier for a cached SEMP reply.
type CacheKey struct {
	// Namespace separates routers, usually the management host:port
	Namespace string

	// Destination is the SEMP topic or HTTP path (e.g., "#SEMP/router/SHOW")
	Destination string

	// Payload is the request body
	Payload []byte
}

// String generates a deterministic cache key string.
// Format: semp:reply:namespace:destination:sha256(payload)
//
// Example:
//
//	semp:reply:router:8080:/SEMP:9f86d081884c7d65...
func (k CacheKey) String() string {
	parts := []string{"semp", "reply"}

	if k.Namespace != "" {
		parts = append(parts, k.Namespace)
	}
	if k.Destination != "" {
		parts = append(parts, k.Destination)
	}

	sum := sha256.Sum256(k.Payload)
	parts = append(parts, hex.EncodeToString(sum[:]))

	return strings.Join(parts, ":")
}
