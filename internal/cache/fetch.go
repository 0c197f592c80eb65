package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrFetch implements the read-through pattern: return the cached value if
// present and fresh, otherwise run fetch once (deduplicated per key, so
// overlapping web requests don't hit the tracker twice for the same miss),
// store its result and return it. Fetch errors are returned as-is; nothing
// is cached on failure.
func (c *Cache) GetOrFetch(ctx context.Context, namespace, key string, ttl time.Duration, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.Get(namespace, key); ok {
		return data, nil
	}

	v, err, _ := c.fetchGroup.Do(Compose(namespace, key), func() (any, error) {
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(namespace, key, data, ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// FetchJSON is the typed read-through helper used by the tracker wrappers:
// the namespace owns the (de)serialization of its payload type.
func FetchJSON[T any](ctx context.Context, c *Cache, namespace, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, err := c.GetOrFetch(ctx, namespace, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		// A payload that no longer decodes is a stale format; drop it and
		// fetch directly.
		c.Delete(namespace, key)
		return fetch(ctx)
	}
	return out, nil
}
