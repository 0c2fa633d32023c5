package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"courier-fees/internal/domain"
)

// Calc evaluates a delivery fee once and prints it to stdout.
func (a *App) Calc(ctx context.Context, opts CalcOptions) error {
	city := domain.ParseCity(opts.City)
	if !city.Known() {
		return fmt.Errorf("unknown city %q", opts.City)
	}
	vehicle := domain.ParseVehicleType(opts.Vehicle)
	if !vehicle.Known() {
		return fmt.Errorf("unknown vehicle type %q", opts.Vehicle)
	}

	at := time.Now().UTC()
	if opts.Time != 0 {
		at = time.Unix(opts.Time, 0).UTC()
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	total, err := a.newEngine(store).Evaluate(ctx, city, vehicle, at)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, total.StringFixed(2))
	return nil
}
