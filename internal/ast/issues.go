package ast

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Stage identifies the pipeline stage that produced an Issue.
type Stage string

const (
	StageParse    Stage = "parse"
	StageSecurity Stage = "security"
	StageCompile  Stage = "compile"
)

// Code categorizes an Issue. Codes are stable and safe to return to clients.
type Code string

// Parse errors.
const (
	CodeInvalidOperator   Code = "INVALID_OPERATOR"
	CodeInvalidValue      Code = "INVALID_VALUE"
	CodeExceededLimit     Code = "EXCEEDED_LIMIT"
	CodeSecurityViolation Code = "SECURITY_VIOLATION"
)

// Parse warnings. CodeLimitCapped is also used by the security stage.
const (
	CodeDefaultApplied Code = "DEFAULT_APPLIED"
	CodeLimitCapped    Code = "LIMIT_CAPPED"
	CodeFieldIgnored   Code = "FIELD_IGNORED"
)

// Security errors.
const (
	CodeFieldNotAllowed    Code = "FIELD_NOT_ALLOWED"
	CodeOperatorNotAllowed Code = "OPERATOR_NOT_ALLOWED"
	CodeLimitExceeded      Code = "LIMIT_EXCEEDED"
)

// Compile errors and warnings.
const (
	CodeUnknownColumn       Code = "UNKNOWN_COLUMN"
	CodeTypeMismatch        Code = "TYPE_MISMATCH"
	CodeUnsupportedOperator Code = "UNSUPPORTED_OPERATOR"
	CodeColumnIgnored       Code = "COLUMN_IGNORED"
)

// Issue is an error or warning reported by a pipeline stage.
//
// Issues are data, not control flow: stages collect them and keep going
// wherever the offending fragment can be dropped.
type Issue struct {
	// Stage that reported the issue.
	Stage Stage `json:"stage"`

	// Code identifies the issue category.
	Code Code `json:"code"`

	// Field is the request field involved, if any.
	Field string `json:"field,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Path locates the fragment in the request, e.g. "filter.and.0.status".
	Path string `json:"path,omitempty"`

	// Details carries extra values, e.g. originalValue / cappedValue.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", i.Code, i.Message, i.Path)
	}
	if i.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", i.Code, i.Message, i.Field)
	}
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Issues is an ordered list of issues.
type Issues []Issue

// Codes returns the code of every issue in order.
func (is Issues) Codes() []Code {
	codes := make([]Code, 0, len(is))
	for _, i := range is {
		codes = append(codes, i.Code)
	}
	return codes
}

// Has reports whether any issue carries code.
func (is Issues) Has(code Code) bool {
	for _, i := range is {
		if i.Code == code {
			return true
		}
	}
	return false
}

// WithCode returns the issues carrying code.
func (is Issues) WithCode(code Code) Issues {
	var out Issues
	for _, i := range is {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

// Err combines the issues into one error. Returns nil when empty.
func (is Issues) Err() error {
	var err error
	for _, i := range is {
		err = multierr.Append(err, i)
	}
	return err
}

// IsCode reports whether err is, or wraps, an Issue with the given code.
// Uses errors.As, so combined errors from Issues.Err match as well.
func IsCode(err error, code Code) bool {
	for _, e := range multierr.Errors(err) {
		var issue Issue
		if errors.As(e, &issue) && issue.Code == code {
			return true
		}
	}
	return false
}
