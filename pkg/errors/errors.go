// Package errors provides structured error handling for the Veld framework.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindParse indicates a component source parsing failure.
	KindParse
	// KindAnalyze indicates a reactivity analysis failure.
	KindAnalyze
	// KindGenerate indicates a code generation failure.
	KindGenerate
	// KindRender indicates a runtime patch error.
	KindRender
	// KindStore indicates a store subscription or notification error.
	KindStore
	// KindInit indicates an initialization error.
	KindInit
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindAnalyze:
		return "analyze"
	case KindGenerate:
		return "generate"
	case KindRender:
		return "render"
	case KindStore:
		return "store"
	case KindInit:
		return "init"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// VeldError represents a structured error in the Veld framework.
type VeldError struct {
	// Op is the operation that failed (e.g., "compiler.Generate").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *VeldError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *VeldError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "runtime.Flush").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// CompileError represents a failure in a compiler phase, located in source.
type CompileError struct {
	// File is the component source path.
	File string
	// Line and Column locate the error (1-based).
	Line   int
	Column int
	// Kind is KindParse, KindAnalyze, or KindGenerate.
	Kind ErrorKind
	// Msg describes the failure.
	Msg string
	// Err is the underlying error, if any.
	Err error
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// RenderError represents a failure while patching a mounted component.
type RenderError struct {
	// Component is the type name of the component that failed.
	Component string
	// Instance is the component instance id.
	Instance string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RenderError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("render panic in %s (%s): %v", e.Component, e.Instance, e.Recovered)
	}
	return fmt.Sprintf("render error in %s (%s): %v", e.Component, e.Instance, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
