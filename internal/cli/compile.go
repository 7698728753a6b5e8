package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/builder"
	"github.com/asofdevlab/qbjs/internal/security"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

// CompileOutput is the result for one query string.
type CompileOutput struct {
	Query     string     `json:"query"`
	RequestID string     `json:"request_id"`
	SQL       string     `json:"sql,omitempty"`
	Args      []any      `json:"args,omitempty"`
	Cached    bool       `json:"cached"`
	Errors    ast.Issues `json:"errors"`
	Warnings  ast.Issues `json:"warnings"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <query>...",
		Short: "Compile query strings to parameterized SQL",
		Long: `Run each query string through parsing, the security policy and the
SQL compiler, and print the resulting statement and arguments.

Repeated query strings are served from the result cache; parameter order
does not matter.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, args, cmd)
		},
	}

	bindTargetFlags(cmd.Flags())

	return cmd
}

func runCompile(opts *RootOptions, queries []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	target, err := opts.target(cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "compile", err)
	}

	outputs, failed, err := compileAll(opts, target, queries, formatter)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "compile", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(outputs); err != nil {
			return err
		}
	} else {
		for i, out := range outputs {
			if i > 0 {
				fmt.Fprintln(formatter.Writer)
			}
			writeCompileOutput(formatter, out)
		}
	}

	if opts.Results != nil {
		stats := opts.Results.Stats()
		formatter.VerboseLog("cache: %d hit(s), %d miss(es), %d entries", stats.Hits, stats.Misses, stats.Size)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d request(s) reported errors", failed, len(outputs)))
	}
	return nil
}

// target resolves the backend target from flags and configuration.
func (o *RootOptions) target(cmd *cobra.Command) (Target, error) {
	v, err := o.Config()
	if err != nil {
		return Target{}, err
	}
	return resolveTarget(v, cmd.Flags())
}

// requestRunner compiles one query string for a target.
type requestRunner struct {
	backend *sqlbackend.Backend
	plain   *builder.Builder[sqlbackend.Column, sqlbackend.Expr, sqlbackend.Order]
	cached  *builder.Cached[sqlbackend.Column, sqlbackend.Expr, sqlbackend.Order]
}

func newRequestRunner(opts *RootOptions, target Target, formatter *OutputFormatter) *requestRunner {
	backend := sqlbackend.New(target.Dialect, target.Table)
	b := builder.New(backend,
		builder.WithSecurity(security.Resolve(target.Security)),
		builder.WithLogger(opts.Logger(formatter.GetErrWriter())),
	)

	cfg := b.Security()
	formatter.VerboseLog("policy: max_limit=%d default_limit=%d fields=%v", cfg.MaxLimit, cfg.DefaultLimit, cfg.AllowedFields)

	r := &requestRunner{backend: backend, plain: b}
	if opts.Results != nil {
		r.cached = builder.NewCached(b, opts.Results, discriminator(backend))
	}
	return r
}

// discriminator separates cache keys of different dialects and tables.
func discriminator(b *sqlbackend.Backend) string {
	return string(b.Dialect()) + "." + b.Table().Name
}

func (r *requestRunner) run(raw string) (SQLResult, bool) {
	if r.cached != nil {
		return r.cached.ExecuteQueryString(raw)
	}
	return r.plain.ExecuteQueryString(raw), false
}

// compileAll compiles every query and returns the outputs plus the number
// that reported errors.
func compileAll(opts *RootOptions, target Target, queries []string, formatter *OutputFormatter) ([]CompileOutput, int, error) {
	runner := newRequestRunner(opts, target, formatter)

	outputs := make([]CompileOutput, 0, len(queries))
	failed := 0
	for _, raw := range queries {
		out, _, err := runner.compile(raw)
		if err != nil {
			return nil, 0, err
		}
		if len(out.Errors) > 0 {
			failed++
		}
		formatter.VerboseLog("%s: %s (cached=%t)", out.RequestID, out.SQL, out.Cached)
		outputs = append(outputs, out)
	}
	return outputs, failed, nil
}

// compile returns the output and the rendered statement, which is empty
// when the pipeline stopped early.
func (r *requestRunner) compile(raw string) (CompileOutput, sqlbackend.Statement, error) {
	res, hit := r.run(raw)
	out := CompileOutput{
		Query:     raw,
		RequestID: res.RequestID,
		Cached:    hit,
		Errors:    nonNil(res.Errors),
		Warnings:  nonNil(res.Warnings),
	}
	if res.Query == nil {
		return out, sqlbackend.Statement{}, nil
	}

	stmt, err := r.backend.Render(*res.Query)
	if err != nil {
		return out, stmt, err
	}
	out.SQL = stmt.SQL
	out.Args = stmt.Args
	return out, stmt, nil
}

func writeCompileOutput(f *OutputFormatter, out CompileOutput) {
	if out.SQL != "" {
		f.OK("%s", out.SQL)
		if len(out.Args) > 0 {
			fmt.Fprintf(f.Writer, "  args: %v\n", out.Args)
		}
	}
	f.Issues(out.Errors, out.Warnings)
}
