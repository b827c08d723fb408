package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VersionInfo is the version command's JSON payload.
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the veld version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format: rootOpts.Format,
				Writer: cmd.OutOrStdout(),
			}
			info := VersionInfo{Version: Version, BuildTime: BuildTime}
			return formatter.Success(info, fmt.Sprintf("veld version %s (built %s)", info.Version, info.BuildTime))
		},
	}
}
