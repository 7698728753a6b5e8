package parser

// Default values applied when pagination input is absent or invalid.
const (
	DefaultPage     = 1
	DefaultLimit    = 10
	DefaultMaxDepth = 16
)

type config struct {
	defaultPage  int
	defaultLimit int
	maxDepth     int
}

func newConfig(opts []Option) config {
	cfg := config{
		defaultPage:  DefaultPage,
		defaultLimit: DefaultLimit,
		maxDepth:     DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures Parse.
type Option func(*config)

// WithDefaults sets the page and limit used when the request omits them or
// supplies unusable values. Non-positive arguments keep the built-in default.
func WithDefaults(page, limit int) Option {
	return func(c *config) {
		if page > 0 {
			c.defaultPage = page
		}
		if limit > 0 {
			c.defaultLimit = limit
		}
	}
}

// WithMaxDepth bounds filter nesting. Deeper input fails with EXCEEDED_LIMIT.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
