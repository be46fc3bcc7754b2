// Package cache provides an optional Redis-backed cache for SEMP replies.
//
// Show commands are read-only, and operators tend to repeat them (listing
// queues page by page, polling stats). The cache stores successful replies
// keyed by router, destination and request payload for a fixed TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	// Wrap any semp.Transport
//	transport := cache.NewTransport(httpClient, manager, "router:8080", 30*time.Second)
//
//	retriever := pagination.NewRetriever(transport, pagination.DefaultConfig(""))
//
// # What is cached
//
//   - Only replies whose execute-result is "ok"
//   - Never empty replies or failures
//   - Cache failures are logged and the request goes to the router
//
// # Metrics
//
//   - semp_cache_hits_total - Cache hits
//   - semp_cache_misses_total - Cache misses
//   - semp_cache_errors_total{operation} - Cache operation errors
package cache
