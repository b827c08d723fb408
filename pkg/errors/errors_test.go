package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestVeldErrorString(t *testing.T) {
	err := &VeldError{
		Op:   "compiler.Generate",
		Kind: KindGenerate,
		Err:  errors.New("bad template"),
	}
	got := err.Error()
	if !strings.Contains(got, "compiler.Generate") {
		t.Errorf("error string %q should contain the op", got)
	}
	if !strings.Contains(got, "[generate]") {
		t.Errorf("error string %q should contain the kind", got)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindParse, "parse"},
		{KindAnalyze, "analyze"},
		{KindGenerate, "generate"},
		{KindRender, "render"},
		{KindStore, "store"},
		{KindInit, "init"},
		{KindPanic, "panic"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCompileErrorPosition(t *testing.T) {
	err := &CompileError{
		File:   "counter.veld",
		Line:   4,
		Column: 12,
		Kind:   KindParse,
		Msg:    "unexpected token",
	}
	got := err.Error()
	if got != "counter.veld:4:12: unexpected token" {
		t.Errorf("unexpected error string: %q", got)
	}
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &CompileError{File: "counter.veld", Msg: "empty source"}
	if got := err.Error(); got != "counter.veld: empty source" {
		t.Errorf("unexpected error string: %q", got)
	}
}

func TestCompileErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &CompileError{File: "x.veld", Msg: "wrapped", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

// captureHandler records reported errors for assertions.
type captureHandler struct {
	LogHandler
	errs    []*VeldError
	panics  []*PanicError
	renders []*RenderError
}

func (h *captureHandler) HandleError(err *VeldError)  { h.errs = append(h.errs, err) }
func (h *captureHandler) HandlePanic(err *PanicError) { h.panics = append(h.panics, err) }
func (h *captureHandler) HandleRenderError(err *RenderError) {
	h.renders = append(h.renders, err)
}

func TestReportSetsTimestamp(t *testing.T) {
	h := &captureHandler{}
	SetHandler(h)
	defer SetHandler(nil)

	Report(&VeldError{Op: "test", Kind: KindInit, Err: errors.New("boom")})

	if len(h.errs) != 1 {
		t.Fatalf("expected 1 reported error, got %d", len(h.errs))
	}
	if h.errs[0].Timestamp.IsZero() {
		t.Error("Report should set a timestamp")
	}
}

func TestRecoverReportsPanic(t *testing.T) {
	h := &captureHandler{}
	SetHandler(h)
	defer SetHandler(nil)

	func() {
		defer Recover("test.op")
		panic("exploded")
	}()

	if len(h.panics) != 1 {
		t.Fatalf("expected 1 panic report, got %d", len(h.panics))
	}
	if h.panics[0].Op != "test.op" {
		t.Errorf("panic op = %q, want %q", h.panics[0].Op, "test.op")
	}
	if h.panics[0].StackTrace == "" {
		t.Error("expected a captured stack trace")
	}
}

func TestRenderErrorString(t *testing.T) {
	err := &RenderError{Component: "Counter", Instance: "abc", Recovered: "nil deref"}
	if !strings.Contains(err.Error(), "render panic in Counter") {
		t.Errorf("unexpected render error string: %q", err.Error())
	}
}
