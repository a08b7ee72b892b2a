// Package versioncmder
package versioncmder

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vera/pkg/utils"
)

type VersionCommander struct {
	out io.Writer
}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of the vera CLI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run()
		},
	}

	return cmd
}

func (c *VersionCommander) run() error {
	_, err := io.WriteString(c.out, utils.CurrentBuild().String())
	return err
}
