package builder

import (
	"strings"

	"github.com/asofdevlab/qbjs/internal/cache"
	"github.com/asofdevlab/qbjs/internal/signature"
)

// Cached memoizes a Builder's results in a cache keyed by the request
// signature. Only results without errors are stored. Stored results are
// shared between callers and must be treated as read-only.
type Cached[C, P, O any] struct {
	builder       *Builder[C, P, O]
	cache         *cache.Cache[Result[P, O]]
	discriminator string
}

// NewCached wraps b. discriminator separates keys of different tables or
// schemas sharing one cache, e.g. "users".
func NewCached[C, P, O any](b *Builder[C, P, O], c *cache.Cache[Result[P, O]], discriminator string) *Cached[C, P, O] {
	return &Cached[C, P, O]{builder: b, cache: c, discriminator: discriminator}
}

// Execute returns a cached result for input or runs the pipeline. The
// second return value reports a cache hit.
func (c *Cached[C, P, O]) Execute(input map[string]any) (Result[P, O], bool) {
	key := signature.Of(c.discriminator, input)
	return c.lookup(key, func() Result[P, O] { return c.builder.Execute(input) })
}

// ExecuteQueryString is Execute for a raw query string. Parameter order
// does not affect the key.
func (c *Cached[C, P, O]) ExecuteQueryString(raw string) (Result[P, O], bool) {
	key := signature.OfQueryString(c.discriminator, raw)
	return c.lookup(key, func() Result[P, O] { return c.builder.ExecuteQueryString(raw) })
}

// Invalidate drops every cached result for this discriminator.
func (c *Cached[C, P, O]) Invalidate() int {
	return c.cache.InvalidatePattern(escapeGlob(c.discriminator) + ":*")
}

// escapeGlob quotes path.Match metacharacters so s matches only itself.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '?', '[':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (c *Cached[C, P, O]) lookup(key string, run func() Result[P, O]) (Result[P, O], bool) {
	if res, ok := c.cache.Get(key); ok {
		c.builder.logger.Debug("cache hit", "key", key, "request_id", res.RequestID)
		return res, true
	}

	res := run()
	if res.OK() {
		c.cache.Set(key, res)
	}
	return res, false
}
