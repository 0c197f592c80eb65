// Package cache implements the namespaced TTL response cache backing the
// tracker API wrappers.
//
// The cache stores pre-serialized payloads in a single SQLite database under
// the repository's .gitdocs_cache/ directory. Keys are composed as
// "namespace:key" so one physical store serves all namespaces while still
// allowing bulk eviction per tracker (see [Cache.ClearNamespace]).
//
// # Advisory semantics
//
// The cache is an accelerator, never a dependency: storage errors on Get,
// Set and Delete are logged and swallowed, expired entries are treated
// identically to absent ones, and a disabled cache behaves as an empty
// store. A calling workflow can be slower because of the cache, never
// broken by it.
//
// # Entry Lifecycle
//
// Entries are written with an absolute expiry (write time + TTL). A Get
// never returns an expired value even if the row is still on disk; expired
// rows are removed lazily on read and in bulk when the size ceiling forces
// a prune.
package cache
