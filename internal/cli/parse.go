package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/parser"
	"github.com/asofdevlab/qbjs/internal/printer"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	MaxDepth int
}

// ParseOutput is the JSON payload of parse.
type ParseOutput struct {
	AST      *ASTView   `json:"ast"`
	Errors   ast.Issues `json:"errors"`
	Warnings ast.Issues `json:"warnings"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query string and print its filter tree",
		Long: `Decode a bracket-notation query string and print the resulting
fields, pagination, sort keys and filter tree together with any issues.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", parser.DefaultMaxDepth, "maximum filter nesting")

	return cmd
}

func runParse(opts *ParseOptions, raw string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res := parser.ParseQueryString(raw, parser.WithMaxDepth(opts.MaxDepth))
	formatter.VerboseLog("parsed %q: %d error(s), %d warning(s)", raw, len(res.Errors), len(res.Warnings))

	if formatter.Format == "json" {
		if err := formatter.Success(ParseOutput{
			AST:      viewAST(res.AST),
			Errors:   nonNil(res.Errors),
			Warnings: nonNil(res.Warnings),
		}); err != nil {
			return err
		}
	} else {
		if res.AST != nil {
			writeAST(formatter.Writer, res.AST)
		}
		formatter.Issues(res.Errors, res.Warnings)
	}

	if len(res.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("parse reported %d error(s)", len(res.Errors)))
	}
	return nil
}

// NewPrintCommand creates the print command.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print <query>",
		Short: "Normalize a query string",
		Long: `Parse a query string and print it back in canonical form: sorted
parameters, page based pagination and explicit operators.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runPrint(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res := parser.ParseQueryString(raw)
	if res.AST == nil {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeRejected, "query could not be parsed", res.Errors)
		} else {
			formatter.Issues(res.Errors, res.Warnings)
		}
		return NewExitError(ExitFailure, "query could not be parsed")
	}

	normalized := printer.PrintQueryString(res.AST)

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"query":    normalized,
			"warnings": nonNil(res.Warnings),
		})
	}
	fmt.Fprintln(formatter.Writer, normalized)
	if formatter.Verbose {
		formatter.Issues(res.Errors, res.Warnings)
	}
	return nil
}

// nonNil makes empty issue lists encode as [] rather than null.
func nonNil(is ast.Issues) ast.Issues {
	if is == nil {
		return ast.Issues{}
	}
	return is
}
