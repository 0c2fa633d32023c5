package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"courier-fees/internal/app"
)

var (
	calcCity    string
	calcVehicle string
	calcTime    int64
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate a delivery fee once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if calcCity == "" {
			return errors.New("--city is required")
		}
		if calcVehicle == "" {
			return errors.New("--vehicle is required")
		}

		opts := app.CalcOptions{
			City:    calcCity,
			Vehicle: calcVehicle,
			Time:    calcTime,
		}
		return getApp().Calc(cmd.Context(), opts)
	},
}

func init() {
	calcCmd.Flags().StringVar(&calcCity, "city", "", "City of delivery (tallinn, tartu, parnu)")
	calcCmd.Flags().StringVar(&calcVehicle, "vehicle", "", "Vehicle type (car, scooter, bike)")
	calcCmd.Flags().Int64Var(&calcTime, "time", 0, "Reference instant as seconds since epoch (defaults to now)")
}
