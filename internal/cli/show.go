package cli

import (
	"github.com/spf13/cobra"

	"courier-fees/internal/app"
)

var (
	showHistory bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the fee rule tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			History: showHistory,
		}
		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().BoolVar(&showHistory, "history", false, "Include superseded and disabled rules")
}
