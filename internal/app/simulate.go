package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
	"courier-fees/internal/weather"
)

// SimulateAlert pushes a synthetic observation through the severe weather
// alert path without touching the feed or the database.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	city := domain.ParseCity(opts.City)
	if !city.Known() {
		return fmt.Errorf("unknown city %q", opts.City)
	}
	fetcher := &staticFetcher{observation: storage.WeatherObservation{
		StationWMO:  domain.StationWMO(city),
		StationName: city.String(),
		AirTemp:     opts.AirTemp,
		WindSpeed:   opts.WindSpeed,
		Phenomenon:  opts.Phenomenon,
		ObservedAt:  time.Now().UTC(),
	}}

	importer := weather.NewImporter(nil, fetcher, nil, notifier, nil, weather.ImporterOptions{
		AlertsEnabled: true,
		WindAlertFrom: a.Config.Alerting.WindAlertFrom,
	}, a.Logger)

	return importer.ImportTick(ctx, time.Now().UTC())
}

type staticFetcher struct {
	observation storage.WeatherObservation
}

func (s *staticFetcher) FetchObservations(ctx context.Context) ([]storage.WeatherObservation, error) {
	return []storage.WeatherObservation{s.observation}, nil
}

var _ weather.Fetcher = (*staticFetcher)(nil)
