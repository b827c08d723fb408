package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veld-ui/veld/pkg/compiler"
)

// CheckSummary is the success payload of the check command.
type CheckSummary struct {
	Checked []string `json:"checked"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <dir|file>",
		Short: "Parse and analyze components without generating code",
		Long: `Check .veld component files: parse the template and script and run
reactivity analysis, reporting diagnostics without writing output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, target string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, _, err := loadTarget(target)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: err.Error(), Err: err}
	}

	var diags []Diagnostic
	summary := CheckSummary{Checked: []string{}}
	for _, file := range files {
		formatter.VerboseLog("Checking %s", file)
		if err := checkFile(file); err != nil {
			diags = append(diags, diagnosticFor(file, err))
			continue
		}
		summary.Checked = append(summary.Checked, file)
	}

	if len(diags) > 0 {
		formatter.Failure(diags)
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d component(s) failed", len(diags))}
	}
	return formatter.Success(summary, fmt.Sprintf("Checked %d component(s), no problems", len(summary.Checked)))
}

func checkFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	component, err := compiler.Parse(path, src)
	if err != nil {
		return err
	}
	_, err = compiler.Analyze(component)
	return err
}
