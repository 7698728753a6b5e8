package security

import "github.com/asofdevlab/qbjs/internal/ast"

// Defaults applied by Resolve.
const (
	DefaultMaxLimit     = 100
	DefaultDefaultLimit = 10
	DefaultDefaultPage  = 1
)

// Config is the caller supplied access-control policy. Zero values mean
// "use the default"; an empty AllowedFields allows every field and an
// empty AllowedOperators allows every operator.
type Config struct {
	AllowedFields    []string             `json:"allowed_fields,omitempty" yaml:"allowed_fields,omitempty"`
	AllowedOperators []ast.FilterOperator `json:"allowed_operators,omitempty" yaml:"allowed_operators,omitempty"`
	MaxLimit         int                  `json:"max_limit,omitempty" yaml:"max_limit,omitempty"`
	DefaultLimit     int                  `json:"default_limit,omitempty" yaml:"default_limit,omitempty"`
	DefaultPage      int                  `json:"default_page,omitempty" yaml:"default_page,omitempty"`

	// MaxOffset rejects deep pagination when positive.
	MaxOffset int `json:"max_offset,omitempty" yaml:"max_offset,omitempty"`
}

// ResolvedConfig is a Config with every default filled in and lookup sets
// built. Build it once with Resolve and share it; it is read-only.
type ResolvedConfig struct {
	AllowedFields    []string
	AllowedOperators []ast.FilterOperator
	MaxLimit         int
	DefaultLimit     int
	DefaultPage      int
	MaxOffset        int

	fields    map[string]struct{}
	operators map[ast.FilterOperator]struct{}
}

// Resolve fills defaults. DefaultLimit never exceeds MaxLimit.
func Resolve(cfg Config) *ResolvedConfig {
	r := &ResolvedConfig{
		AllowedFields: append([]string(nil), cfg.AllowedFields...),
		MaxLimit:      cfg.MaxLimit,
		DefaultLimit:  cfg.DefaultLimit,
		DefaultPage:   cfg.DefaultPage,
		MaxOffset:     cfg.MaxOffset,
	}
	if r.MaxLimit <= 0 {
		r.MaxLimit = DefaultMaxLimit
	}
	if r.DefaultLimit <= 0 {
		r.DefaultLimit = DefaultDefaultLimit
	}
	if r.DefaultLimit > r.MaxLimit {
		r.DefaultLimit = r.MaxLimit
	}
	if r.DefaultPage <= 0 {
		r.DefaultPage = DefaultDefaultPage
	}

	if len(cfg.AllowedOperators) == 0 {
		r.AllowedOperators = ast.AllOperators()
	} else {
		r.AllowedOperators = append([]ast.FilterOperator(nil), cfg.AllowedOperators...)
	}

	r.fields = make(map[string]struct{}, len(r.AllowedFields))
	for _, f := range r.AllowedFields {
		r.fields[f] = struct{}{}
	}
	r.operators = make(map[ast.FilterOperator]struct{}, len(r.AllowedOperators))
	for _, op := range r.AllowedOperators {
		r.operators[op] = struct{}{}
	}
	return r
}

// FieldAllowed reports whether field passes the allowlist.
func (r *ResolvedConfig) FieldAllowed(field string) bool {
	if len(r.fields) == 0 {
		return true
	}
	_, ok := r.fields[field]
	return ok
}

// OperatorAllowed reports whether op passes the allowlist.
func (r *ResolvedConfig) OperatorAllowed(op ast.FilterOperator) bool {
	_, ok := r.operators[op]
	return ok
}
