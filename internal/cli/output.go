package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Invalid report, cycle, or a section query failed
	ExitCommandError = 2 // Command error (unreadable file, bad flags, source setup)
)

// Error codes used in the JSON envelope.
const (
	ErrCodeGeneric    = "E100" // Unclassified failure
	ErrCodeLoad       = "E101" // Report file unreadable or malformed
	ErrCodeInvalid    = "E102" // Report failed validation
	ErrCodeCycle      = "E103" // Dependency cycle between sections
	ErrCodeSources    = "E104" // Data sources could not be set up
	ErrCodeNoSection  = "E105" // Named section does not exist
	ErrCodeQuery      = "E106" // A section query captured an error
	ErrCodeConfig     = "E107" // Configuration invalid
	ErrCodeStore      = "E108" // Dataset store failure
	ErrCodeServer     = "E109" // HTTP server failure
	ErrCodeCancelled  = "E110" // Interrupted
	ErrCodeBadRequest = "E111" // Invalid command input
	ErrCodeTestFailed = "E112" // Conformance scenarios failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
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

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload, or partial results on error
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textWriter is implemented by payloads with a human-readable rendering.
type textWriter interface {
	writeText(w io.Writer) error
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if tw, ok := data.(textWriter); ok {
		return tw.writeText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Failure outputs partial data together with an error. Text output renders
// the data first.
func (f *OutputFormatter) Failure(code, message string, data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	if tw, ok := data.(textWriter); ok {
		if err := tw.writeText(f.Writer); err != nil {
			return err
		}
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// resultView renders one query result.
type resultView struct {
	Section string `json:"section,omitempty"`
	query.QueryResult
}

func (v resultView) writeText(w io.Writer) error {
	if v.Section != "" {
		fmt.Fprintf(w, "== %s ==\n", v.Section)
	}
	if v.Failed() {
		_, err := fmt.Fprintf(w, "error: %s\n", v.Error)
		return err
	}
	if err := writeTable(w, v.Rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d of %d rows, %.2f ms)\n", len(v.Rows), v.TotalRows, v.ExecutionTimeMs)
	return err
}

// resolutionView renders a resolution in execution order.
type resolutionView struct {
	*engine.Resolution
}

func (v resolutionView) writeText(w io.Writer) error {
	fmt.Fprintf(w, "pass %s\n", v.PassID)
	for _, id := range v.Order {
		res, ok := v.Results[id]
		if !ok {
			fmt.Fprintf(w, "== %s ==\n(no query)\n", id)
			continue
		}
		if err := (resultView{Section: id, QueryResult: res}).writeText(w); err != nil {
			return err
		}
	}
	return nil
}

// writeTable prints rows as aligned columns. Columns are the sorted union
// of every row's fields.
func writeTable(w io.Writer, rows []record.Record) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			v, ok := r[c]
			switch {
			case !ok:
				cells[i] = ""
			case v == nil:
				cells[i] = "null"
			default:
				cells[i] = record.String(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
