package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/asofdevlab/qbjs/internal/store"
)

// QueryOutput is the JSON payload of query.
type QueryOutput struct {
	CompileOutput
	Columns []string    `json:"columns"`
	Rows    []store.Row `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Compile a query string and run it against a database",
		Long: `Compile a query string like compile does, then execute the statement
against the database at --dsn and print the rows. Requests that
report errors are not executed.

The driver follows --dialect: sqlite3, postgres or mysql.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], cmd)
		},
	}

	bindTargetFlags(cmd.Flags())
	cmd.Flags().String(KeyDSN, "", "data source name, e.g. ./app.db or postgres://...")

	return cmd
}

func runQuery(opts *RootOptions, raw string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	target, err := opts.target(cmd)
	if err == nil && target.DSN == "" {
		err = errors.New("dsn is required (--dsn or QBJS_DSN)")
	}
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query", err)
	}

	runner := newRequestRunner(opts, target, formatter)
	out, stmt, err := runner.compile(raw)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query", err)
	}
	if stmt.SQL == "" || len(out.Errors) > 0 {
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeRejected, "request rejected", out.Errors)
		} else {
			formatter.Issues(out.Errors, out.Warnings)
		}
		return NewExitError(ExitFailure, "request rejected")
	}

	formatter.VerboseLog("%s: %s %v", out.RequestID, stmt.SQL, stmt.Args)

	st, err := store.OpenDialect(runner.backend.Dialect(), target.DSN)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query", err)
	}
	defer st.Close()

	rs, err := st.Query(cmd.Context(), stmt)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "query", err)
	}

	if formatter.Format == "json" {
		return formatter.SuccessFor(out.RequestID, QueryOutput{CompileOutput: out, Columns: rs.Columns, Rows: rs.Rows})
	}

	writeRows(formatter, rs)
	formatter.Issues(out.Errors, out.Warnings)
	return nil
}

func writeRows(f *OutputFormatter, rs *store.ResultSet) {
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		cells := make([]string, 0, len(rs.Columns))
		for _, c := range rs.Columns {
			if row[c] == nil {
				cells = append(cells, "NULL")
				continue
			}
			cells = append(cells, fmt.Sprint(row[c]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	fmt.Fprintf(f.Writer, "(%d row(s))\n", len(rs.Rows))
}
