package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Exit codes shared by every command.
const (
	ExitSuccess      = 0 // command finished
	ExitFailure      = 1 // domain failure (overflow, failed check, failed suite)
	ExitCommandError = 2 // command error (bad arguments, unreadable files)
)

// ExitError carries the process exit code a failed command wants, so main
// can translate any returned error into the right status.
type ExitError struct {
	Code    int // ExitFailure or ExitCommandError
	Message string
	Err     error // underlying cause, may be nil
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError builds an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and context to an existing error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code an error asks for, defaulting to
// ExitFailure for errors that carry none. Nested ExitErrors resolve to the
// outermost code.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// humanPrinter renders counts with English digit grouping in text output.
// JSON output always carries plain decimal strings.
var humanPrinter = message.NewPrinter(language.English)

// groupDecimal renders a decimal string with digit grouping. Values beyond
// uint64 (from --big) pass through ungrouped.
func groupDecimal(s string) string {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return s
	}
	return humanPrinter.Sprintf("%d", v)
}

// OutputFormatter renders command results as text or as the JSON envelope,
// according to the global --format flag.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer when nil
	Verbose   bool
}

// newFormatter builds the formatter a command writes through, with verbose
// diagnostics routed to stderr so JSON output stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the JSON envelope every command emits under --format json.
type CLIResponse struct {
	Status   string      `json:"status"`              // "ok" or "error"
	Data     interface{} `json:"data,omitempty"`      // success payload
	Error    *CLIError   `json:"error,omitempty"`     // failure payload
	RunToken string      `json:"run_token,omitempty"` // set by journaled scans
}

// CLIError is the failure payload inside a CLIResponse.
type CLIError struct {
	Code    string      `json:"code"` // "E001", "E_CHECK_FAILED", etc.
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeResponse emits the JSON envelope with the indentation every command
// shares.
func writeResponse(w io.Writer, resp CLIResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// Success writes a result. Text mode prints the value directly; commands
// with richer text output format it themselves and skip the formatter.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return writeResponse(f.Writer, CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes a failure with its machine-readable code. Details appear in
// JSON always, in text only under --verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return writeResponse(f.Writer, CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// failWith reports a failed command in the configured format and returns
// the error carrying its exit code.
func failWith(f *OutputFormatter, exitCode int, code, message string, details interface{}) error {
	_ = f.Error(code, message, details)
	return NewExitError(exitCode, message)
}

// VerboseLog writes a diagnostic line under --verbose. It goes to the
// error writer so JSON on the primary writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the diagnostic writer, falling back to the primary
// writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
