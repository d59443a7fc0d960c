// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pitchmidi/pkg/build"
)

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s {{.Version}}\n", buildInfo.Name))

	rootCmd.AddCommand(newTranscribeCommand())
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

// Execute runs the CLI against os.Args. ctx is cancelled on shutdown signals.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
