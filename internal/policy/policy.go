// Package policy loads a security.Config from a policy file.
//
// Two formats are accepted, chosen by file extension:
//
//	.cue         unified with the embedded #Policy schema, then decoded
//	.yaml, .yml  decoded with gopkg.in/yaml.v3
//
// A CUE policy is written as a top-level "policy" struct:
//
//	policy: {
//	    allowed_fields: ["id", "name", "status"]
//	    allowed_operators: ["eq", "in", "containsi"]
//	    max_limit: 50
//	}
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/asofdevlab/qbjs/internal/ast"
	"github.com/asofdevlab/qbjs/internal/security"
)

//go:embed schema.cue
var schemaCUE string

// Error reports an invalid policy document.
type Error struct {
	File    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// document mirrors the policy file layout.
type document struct {
	AllowedFields    []string `json:"allowed_fields" yaml:"allowed_fields"`
	AllowedOperators []string `json:"allowed_operators" yaml:"allowed_operators"`
	MaxLimit         int      `json:"max_limit" yaml:"max_limit"`
	DefaultLimit     int      `json:"default_limit" yaml:"default_limit"`
	DefaultPage      int      `json:"default_page" yaml:"default_page"`
	MaxOffset        int      `json:"max_offset" yaml:"max_offset"`
}

// Load reads a policy file, dispatching on its extension.
func Load(path string) (security.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return security.Config{}, fmt.Errorf("read policy: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		return LoadCUE(data, path)
	case ".yaml", ".yml":
		cfg, err := LoadYAML(data)
		if err != nil {
			var perr *Error
			if errors.As(err, &perr) {
				perr.File = path
			}
		}
		return cfg, err
	default:
		return security.Config{}, &Error{File: path, Message: fmt.Sprintf("unsupported policy format %q", ext)}
	}
}

// LoadCUE compiles a CUE policy, unifies it with #Policy and decodes it.
func LoadCUE(data []byte, filename string) (security.Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return security.Config{}, fmt.Errorf("compile policy schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return security.Config{}, &Error{File: filename, Message: "invalid CUE", Err: formatCUEError(err)}
	}

	pv := v.LookupPath(cue.ParsePath("policy"))
	if !pv.Exists() {
		return security.Config{}, &Error{File: filename, Field: "policy", Message: "policy is required"}
	}

	unified := schema.LookupPath(cue.ParsePath("#Policy")).Unify(pv)
	if err := unified.Validate(); err != nil {
		return security.Config{}, &Error{File: filename, Field: "policy", Message: "schema violation", Err: formatCUEError(err)}
	}

	var doc document
	if err := unified.Decode(&doc); err != nil {
		return security.Config{}, &Error{File: filename, Field: "policy", Message: "decode", Err: formatCUEError(err)}
	}
	cfg, err := doc.toConfig()
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			perr.File = filename
		}
		return security.Config{}, err
	}
	return cfg, nil
}

// LoadYAML decodes a YAML policy. Unknown keys are rejected.
func LoadYAML(data []byte) (security.Config, error) {
	var doc document
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return security.Config{}, &Error{Message: "invalid YAML", Err: err}
	}
	if doc.MaxLimit < 0 || doc.DefaultLimit < 0 || doc.DefaultPage < 0 || doc.MaxOffset < 0 {
		return security.Config{}, &Error{Message: "limits must not be negative"}
	}
	return doc.toConfig()
}

func (d document) toConfig() (security.Config, error) {
	cfg := security.Config{
		AllowedFields: d.AllowedFields,
		MaxLimit:      d.MaxLimit,
		DefaultLimit:  d.DefaultLimit,
		DefaultPage:   d.DefaultPage,
		MaxOffset:     d.MaxOffset,
	}
	for _, raw := range d.AllowedOperators {
		op, ok := ast.ParseOperator(raw)
		if !ok {
			return security.Config{}, &Error{Field: "allowed_operators", Message: fmt.Sprintf("unknown operator %q", raw)}
		}
		cfg.AllowedOperators = append(cfg.AllowedOperators, op)
	}
	return cfg, nil
}

// formatCUEError flattens CUE's error list into one error with positions.
func formatCUEError(err error) error {
	return fmt.Errorf("%s", strings.TrimSpace(cueerrors.Details(err, nil)))
}
