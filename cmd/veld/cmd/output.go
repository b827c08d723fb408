package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	velderrors "github.com/veld-ui/veld/pkg/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // successful execution
	ExitFailure      = 1 // compilation or check failure
	ExitCommandError = 2 // command error (invalid paths, bad config, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// GetExitCode extracts the exit code from an error. Returns ExitFailure
// if the error is not an ExitError.
func GetExitCode(err error) int {
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
	ErrWriter io.Writer // verbose logs go here so JSON output stays clean
	Verbose   bool
}

// Response is the standard JSON response format for CLI output.
type Response struct {
	Status      string       `json:"status"` // "ok" or "error"
	Data        any          `json:"data,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Diagnostic is one located compilation problem.
type Diagnostic struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// diagnosticFor converts a compilation error into a located diagnostic.
func diagnosticFor(file string, err error) Diagnostic {
	var ce *velderrors.CompileError
	if errors.As(err, &ce) {
		return Diagnostic{
			File:    ce.File,
			Line:    ce.Line,
			Column:  ce.Column,
			Phase:   ce.Kind.String(),
			Message: ce.Msg,
		}
	}
	var ve *velderrors.VeldError
	if errors.As(err, &ve) {
		return Diagnostic{
			File:    file,
			Phase:   ve.Kind.String(),
			Message: ve.Err.Error(),
		}
	}
	return Diagnostic{File: file, Phase: "unknown", Message: err.Error()}
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Phase, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.File, d.Phase, d.Message)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, text)
	return nil
}

// Failure outputs diagnostics in the configured format.
func (f *OutputFormatter) Failure(diags []Diagnostic) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Diagnostics: diags})
	}
	for _, d := range diags {
		fmt.Fprintln(f.Writer, d.String())
	}
	return nil
}

// VerboseLog outputs a message only in verbose mode.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
