// Package builder runs the query pipeline: parse, security validation and
// compilation against a backend.
//
// Each stage's issues are collected into one list tagged with the stage
// that produced them. A parse that discards the AST, or a failed security
// check, stops the pipeline with a nil Query.
package builder

import (
	"log/slog"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/compiler"
	"github.com/asofdevlab/qbjs/internal/parser"
	"github.com/asofdevlab/qbjs/internal/security"
)

// Result is the outcome of one Execute call.
type Result[P, O any] struct {
	// RequestID correlates log lines for this request.
	RequestID string

	// Query is nil when the pipeline stopped before compilation.
	Query *compiler.Query[P, O]

	// AST is the security adjusted tree. nil when parsing or validation
	// failed.
	AST *ast.QueryAST

	Errors   ast.Issues
	Warnings ast.Issues
}

// OK reports whether the request compiled without errors.
func (r Result[P, O]) OK() bool {
	return r.Query != nil && len(r.Errors) == 0
}

// Err combines Errors into one error, nil when there are none.
func (r Result[P, O]) Err() error {
	return r.Errors.Err()
}

// Builder compiles requests against one backend. It holds no per-request
// state and is safe for concurrent use.
type Builder[C, P, O any] struct {
	backend    compiler.Backend[C, P, O]
	security   *security.ResolvedConfig
	parserOpts []parser.Option
	logger     *slog.Logger
	ids        IDGenerator
}

// Option configures a Builder.
type Option func(*options)

type options struct {
	security   *security.ResolvedConfig
	parserOpts []parser.Option
	logger     *slog.Logger
	ids        IDGenerator
}

// WithSecurity sets the policy. Its default page and limit also become
// the parser defaults unless WithParserOptions overrides them.
func WithSecurity(cfg *security.ResolvedConfig) Option {
	return func(o *options) {
		o.security = cfg
	}
}

// WithParserOptions appends parser options.
func WithParserOptions(opts ...parser.Option) Option {
	return func(o *options) {
		o.parserOpts = append(o.parserOpts, opts...)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIDGenerator sets the request ID source. Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// New creates a Builder for backend.
func New[C, P, O any](backend compiler.Backend[C, P, O], opts ...Option) *Builder[C, P, O] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.security == nil {
		o.security = security.Resolve(security.Config{})
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.ids == nil {
		o.ids = UUIDv7Generator{}
	}

	parserOpts := append([]parser.Option{
		parser.WithDefaults(o.security.DefaultPage, o.security.DefaultLimit),
	}, o.parserOpts...)

	return &Builder[C, P, O]{
		backend:    backend,
		security:   o.security,
		parserOpts: parserOpts,
		logger:     o.logger,
		ids:        o.ids,
	}
}

// Security returns the resolved policy in use.
func (b *Builder[C, P, O]) Security() *security.ResolvedConfig {
	return b.security
}

// Execute runs the pipeline over decoded request parameters.
func (b *Builder[C, P, O]) Execute(input map[string]any) Result[P, O] {
	id := b.ids.Generate()
	return b.run(id, parser.Parse(input, b.parserOpts...))
}

// ExecuteQueryString decodes raw and runs the pipeline.
func (b *Builder[C, P, O]) ExecuteQueryString(raw string) Result[P, O] {
	id := b.ids.Generate()
	return b.run(id, parser.ParseQueryString(raw, b.parserOpts...))
}

func (b *Builder[C, P, O]) run(id string, parsed parser.Result) Result[P, O] {
	log := b.logger.With("request_id", id)
	res := Result[P, O]{
		RequestID: id,
		Errors:    append(ast.Issues(nil), parsed.Errors...),
		Warnings:  append(ast.Issues(nil), parsed.Warnings...),
	}

	log.Debug("parsed request",
		"errors", len(parsed.Errors),
		"warnings", len(parsed.Warnings),
	)
	if parsed.AST == nil {
		log.Warn("request rejected at parse", "codes", parsed.Errors.Codes())
		return res
	}

	checked := security.Validate(parsed.AST, b.security)
	res.Errors = append(res.Errors, checked.Errors...)
	res.Warnings = append(res.Warnings, checked.Warnings...)

	log.Debug("validated request",
		"ok", checked.OK,
		"errors", len(checked.Errors),
		"warnings", len(checked.Warnings),
	)
	if !checked.OK {
		log.Warn("request rejected by security policy", "codes", checked.Errors.Codes())
		return res
	}

	compiled := compiler.Compile(checked.AST, b.backend)
	res.Errors = append(res.Errors, compiled.Errors...)
	res.Warnings = append(res.Warnings, compiled.Warnings...)
	res.AST = checked.AST
	res.Query = &compiled.Query

	log.Info("request compiled",
		"limit", compiled.Query.Limit,
		"offset", compiled.Query.Offset,
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
	)
	return res
}
