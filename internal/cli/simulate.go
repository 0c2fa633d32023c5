package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"courier-fees/internal/app"
)

var (
	simulateCity       string
	simulateAirTemp    float64
	simulateWindSpeed  float64
	simulatePhenomenon string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Feed a synthetic observation through the severe weather alert path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCity == "" {
			return errors.New("--city is required")
		}

		opts := app.SimulateOptions{
			City:       simulateCity,
			AirTemp:    simulateAirTemp,
			WindSpeed:  simulateWindSpeed,
			Phenomenon: simulatePhenomenon,
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCity, "city", "", "City the synthetic observation belongs to")
	simulateCmd.Flags().Float64Var(&simulateAirTemp, "air-temp", 0, "Air temperature in degrees Celsius")
	simulateCmd.Flags().Float64Var(&simulateWindSpeed, "wind-speed", 0, "Wind speed in m/s")
	simulateCmd.Flags().StringVar(&simulatePhenomenon, "phenomenon", "", "Weather phenomenon text")
}
