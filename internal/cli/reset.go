package cli

import (
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace all fee rules with the built-in defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Reset(cmd.Context())
	},
}
