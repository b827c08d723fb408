package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veld-ui/veld/cmd/veld/internal/config"
	"github.com/veld-ui/veld/cmd/veld/internal/project"
	"github.com/veld-ui/veld/pkg/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	OutDir  string
	Package string
}

// CompileSummary is the success payload of the compile command.
type CompileSummary struct {
	Compiled []string `json:"compiled"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <dir|file>",
		Short: "Compile .veld components to Go source",
		Long: `Compile .veld component files to Go source files.

Each component compiles to a *_veld.go sibling (or into --out-dir when
set). Directories are scanned recursively, skipping testdata, hidden
directories, and directories starting with "_".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", "directory for generated files (default: next to sources)")
	cmd.Flags().StringVar(&opts.Package, "pkg", "", "package name for generated files (default: from veld.yaml or source directory)")

	return cmd
}

func runCompile(opts *CompileOptions, target string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, resolved, err := loadTarget(target)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}
	formatter.VerboseLog("Found %d component file(s) in %s", len(files), target)

	var diags []Diagnostic
	summary := CompileSummary{Compiled: []string{}}
	for _, file := range files {
		formatter.VerboseLog("Compiling %s", file)
		prog, err := compiler.CompileFile(file, compileOptions(opts, resolved, file))
		if err != nil {
			diags = append(diags, diagnosticFor(file, err))
			continue
		}

		out := compiler.OutputPath(file)
		if opts.OutDir != "" {
			out = filepath.Join(opts.OutDir, filepath.Base(out))
			if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "creating output directory", Err: err}
			}
		}
		if err := os.WriteFile(out, prog.Source, 0o644); err != nil {
			return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("writing %s", out), Err: err}
		}
		summary.Compiled = append(summary.Compiled, out)
	}

	if len(diags) > 0 {
		formatter.Failure(diags)
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d component(s) failed", len(diags))}
	}
	return formatter.Success(summary, fmt.Sprintf("Compiled %d component(s)", len(summary.Compiled)))
}

// loadTarget scans target for components and resolves project config from
// the enclosing module, when one exists.
func loadTarget(target string) ([]string, *config.Resolved, error) {
	files, err := project.Scan(target)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .veld files under %s", target)
	}

	root, err := moduleRoot(target)
	if err != nil {
		// Outside a module: compile with defaults.
		return files, nil, nil
	}
	resolved, err := config.Resolve(root)
	if err != nil {
		return nil, nil, err
	}
	return files, resolved, nil
}

// moduleRoot walks up from target to the nearest directory with a go.mod.
func moduleRoot(target string) (string, error) {
	dir, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module")
		}
		dir = parent
	}
}

// compileOptions picks the generated package name: the --pkg flag wins,
// then veld.yaml, then the source file's directory name.
func compileOptions(opts *CompileOptions, resolved *config.Resolved, file string) compiler.Options {
	out := compiler.Options{}
	if resolved != nil {
		out.Package = resolved.Package
		out.NoHeader = !resolved.Header
	}
	if opts.Package != "" {
		out.Package = opts.Package
	}
	if out.Package == "" {
		out.Package = packageFor(file)
	}
	return out
}

// packageFor derives a package name from the file's directory.
func packageFor(file string) string {
	base := filepath.Base(filepath.Dir(file))
	var sb strings.Builder
	for i, r := range base {
		switch {
		case r >= 'a' && r <= 'z' || r == '_':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			if i > 0 {
				sb.WriteRune(r)
			}
		}
	}
	if sb.Len() == 0 {
		return "components"
	}
	return sb.String()
}
