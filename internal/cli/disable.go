package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	disableID int64
)

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable an extra fee rule by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		if disableID <= 0 {
			return errors.New("--id must be greater than zero")
		}
		return getApp().Disable(cmd.Context(), disableID)
	},
}

func init() {
	disableCmd.Flags().Int64Var(&disableID, "id", 0, "ID of the extra fee rule to disable")
}
