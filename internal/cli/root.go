package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asofdevlab/qbjs/internal/builder"
	"github.com/asofdevlab/qbjs/internal/cache"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

// SQLResult is a pipeline result for the SQL backends.
type SQLResult = builder.Result[sqlbackend.Expr, sqlbackend.Order]

// ResultCache memoizes SQLResult values across requests in one process.
type ResultCache = cache.Cache[SQLResult]

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Results is shared by compile and query. nil disables caching.
	Results *ResultCache

	config *viper.Viper
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. results may be nil.
func NewRootCommand(results *ResultCache) *cobra.Command {
	opts := &RootOptions{Results: results}

	cmd := &cobra.Command{
		Use:   "qbjs",
		Short: "qbjs - query strings to safe SQL",
		Long: `Parse bracket-notation query strings into a filter tree, enforce a
security policy and compile the result into parameterized SQL.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			_, err := opts.Config()
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./.qbjs.yaml)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewPrintCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// Config returns the merged configuration, loading it on first use.
func (o *RootOptions) Config() (*viper.Viper, error) {
	if o.config != nil {
		return o.config, nil
	}
	v, err := LoadConfig(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	o.config = v
	return v, nil
}

// Logger returns the pipeline logger. Debug output goes to w only in
// verbose mode.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	level := slog.LevelError
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
