// Package cache memoises query results by query fingerprint.
//
// The engine itself never caches: a cache is a caller-side collaborator
// with its own TTL policy. CachingExecutor wraps any engine.Executor and
// consults a Cache keyed by query.Fingerprint before executing. Only
// error-free results are stored, so a transient source failure is retried
// on the next request.
//
// Two Cache implementations exist: MemoryCache for a single process and
// RedisCache for sharing results between instances.
package cache
