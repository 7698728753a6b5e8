package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/asofdevlab/qbjs/internal/policy"
	"github.com/asofdevlab/qbjs/internal/security"
	"github.com/asofdevlab/qbjs/internal/sqlbackend"
)

// EnvPrefix prefixes environment overrides, e.g. QBJS_DIALECT.
const EnvPrefix = "QBJS"

// Configuration keys. Flags of the same name override them.
const (
	KeyDialect = "dialect"
	KeyTable   = "table"
	KeyColumns = "columns"
	KeyPolicy  = "policy"
	KeyDSN     = "dsn"
)

// LoadConfig reads path, or ./.qbjs.yaml when path is empty, and layers
// QBJS_* environment variables on top. A missing default file is not an
// error.
func LoadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(KeyDialect, string(sqlbackend.SQLite))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(".qbjs")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Target is what compile and query run against.
type Target struct {
	Dialect  sqlbackend.Dialect
	Table    sqlbackend.Table
	Security security.Config
	DSN      string
}

// bindTargetFlags registers the flags shared by compile and query.
func bindTargetFlags(flags *pflag.FlagSet) {
	flags.String(KeyDialect, string(sqlbackend.SQLite), "SQL dialect (sqlite|postgres|mysql)")
	flags.String(KeyTable, "", "table name")
	flags.StringSlice(KeyColumns, nil, "table columns, comma separated")
	flags.String(KeyPolicy, "", "security policy file (.cue, .yaml)")
}

// resolveTarget merges flags over configuration.
func resolveTarget(v *viper.Viper, flags *pflag.FlagSet) (Target, error) {
	if err := v.BindPFlags(flags); err != nil {
		return Target{}, fmt.Errorf("bind flags: %w", err)
	}

	d, err := sqlbackend.DialectByName(v.GetString(KeyDialect))
	if err != nil {
		return Target{}, err
	}

	t := Target{
		Dialect: d,
		Table: sqlbackend.Table{
			Name:    v.GetString(KeyTable),
			Columns: splitList(v.GetStringSlice(KeyColumns)),
		},
		DSN: v.GetString(KeyDSN),
	}
	if t.Table.Name == "" {
		return Target{}, errors.New("table is required (--table or QBJS_TABLE)")
	}
	if len(t.Table.Columns) == 0 {
		return Target{}, errors.New("columns are required (--columns or QBJS_COLUMNS)")
	}

	if path := v.GetString(KeyPolicy); path != "" {
		cfg, err := policy.Load(path)
		if err != nil {
			return Target{}, err
		}
		t.Security = cfg
	}
	return t, nil
}

// splitList flattens comma separated entries. Environment values arrive
// as one "a,b,c" string.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
