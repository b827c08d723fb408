// Package compiler turns .veld component sources into Go. Compilation runs
// three phases: Parse builds the template and script AST, Analyze assigns
// every state variable a dirty bit and computes per-expression dependency
// masks, and Generate emits the imperative create/patch/detach code over
// pkg/dom and pkg/runtime.
package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/veld-ui/veld/pkg/errors"
)

// Options configures a compilation.
type Options struct {
	// Package is the package name of the generated file. Empty means
	// "components".
	Package string
	// NoHeader omits the "Code generated" comment from output.
	NoHeader bool
}

// Program is the result of compiling one component.
type Program struct {
	Component *Component
	Analysis  *Analysis
	// Source is the formatted generated Go source.
	Source []byte
}

// Compile runs all phases over one component source.
func Compile(file string, src []byte, opts Options) (*Program, error) {
	component, err := Parse(file, src)
	if err != nil {
		return nil, err
	}
	analysis, err := Analyze(component)
	if err != nil {
		return nil, err
	}
	source, err := Generate(analysis, opts)
	if err != nil {
		return nil, err
	}
	return &Program{Component: component, Analysis: analysis, Source: source}, nil
}

// CompileFile compiles a component from disk.
func CompileFile(path string, opts Options) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.VeldError{Op: "compiler.CompileFile", Kind: errors.KindParse, Err: err}
	}
	return Compile(path, src, opts)
}

// OutputPath returns the generated-file path for a component source:
// todo_item.veld becomes todo_item_veld.go alongside it.
func OutputPath(path string) string {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(dir, base+"_veld.go")
}
