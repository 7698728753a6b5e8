package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/asofdevlab/qbjs/internal/ast"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // request rejected or reported errors
	ExitCommandError = 2 // bad configuration, unreadable policy, database failure
)

// Error codes carried in ResponseError.Code.
const (
	ErrCodeConfig   = "E001"
	ErrCodeRejected = "E002"
	ErrCodeDatabase = "E003"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not an
// ExitError exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope written in json mode.
type Response struct {
	Status    string         `json:"status"` // "ok" or "error"
	RequestID string         `json:"request_id,omitempty"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command. Details holds the pipeline
// issues when a request was rejected.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	// ErrWriter receives verbose and log output so JSON on Writer stays
	// parseable. nil means Writer.
	ErrWriter io.Writer
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

// Success writes data. In text mode data is printed with fmt.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessFor("", data)
}

// SuccessFor is Success for a single request, tagging the envelope with
// its request ID.
func (f *OutputFormatter) SuccessFor(requestID string, data any) error {
	if !f.json() {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", RequestID: requestID, Data: data})
}

// Error writes a command failure. details are shown in text mode only
// when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line to the error writer in verbose mode.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when it is unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
	okLabel      = color.New(color.FgGreen, color.Bold)
)

// Issues prints pipeline issues in text mode, errors first. color disables
// itself when stdout is not a terminal.
func (f *OutputFormatter) Issues(errs, warnings ast.Issues) {
	for _, i := range errs {
		errorLabel.Fprint(f.Writer, "error")
		fmt.Fprintf(f.Writer, "   %s\n", i.Error())
	}
	for _, i := range warnings {
		warningLabel.Fprint(f.Writer, "warning")
		fmt.Fprintf(f.Writer, " %s\n", i.Error())
	}
}

// OK prints a confirmation line.
func (f *OutputFormatter) OK(format string, args ...any) {
	okLabel.Fprint(f.Writer, "✓")
	fmt.Fprintf(f.Writer, " "+format+"\n", args...)
}
