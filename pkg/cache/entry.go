package cache

import (
	"time"
)

// CacheEntry represents a cached SEMP reply.
type CacheEntry struct {
	// Payload is the reply body
	Payload []byte `json:"payload"`

	// Destination the request was sent to
	Destination string `json:"destination"`

	// Expires is when the cache entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this reply
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry for payload that expires after ttl.
func NewEntry(destination string, payload []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Payload:     payload,
		Destination: destination,
		Expires:     now.Add(ttl),
		CachedAt:    now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
