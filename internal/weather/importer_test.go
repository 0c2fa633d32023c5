package weather

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"courier-fees/internal/alerting"
	"courier-fees/internal/storage"
)

type listFetcher struct {
	observations []storage.WeatherObservation
}

func (f *listFetcher) FetchObservations(ctx context.Context) ([]storage.WeatherObservation, error) {
	return f.observations, nil
}

type recordingStore struct {
	inserted []storage.WeatherObservation
}

func (r *recordingStore) InsertObservations(ctx context.Context, observations []storage.WeatherObservation) error {
	r.inserted = append(r.inserted, observations...)
	return nil
}

func (r *recordingStore) ObservationAt(ctx context.Context, stationWMO int, at time.Time) (*storage.WeatherObservation, error) {
	return nil, nil
}

func (r *recordingStore) ListObservationsBetween(ctx context.Context, stationWMO int, from, to time.Time) ([]storage.WeatherObservation, error) {
	return nil, nil
}

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return nil
}

func obsAt(wmo int, windSpeed float64, phenomenon string) storage.WeatherObservation {
	return storage.WeatherObservation{
		StationWMO:  wmo,
		StationName: "Tallinn-Harku",
		AirTemp:     1.0,
		WindSpeed:   windSpeed,
		Phenomenon:  phenomenon,
		ObservedAt:  time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestImportTickStoresObservations(t *testing.T) {
	store := &recordingStore{}
	fetcher := &listFetcher{observations: []storage.WeatherObservation{obsAt(26038, 3.0, "")}}

	importer := NewImporter(nil, fetcher, store, nil, nil, ImporterOptions{}, zerolog.Nop())
	if err := importer.ImportTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 stored observation, got %d", len(store.inserted))
	}
}

func TestImportTickAlertsOnHighWind(t *testing.T) {
	notifier := &recordingNotifier{}
	fetcher := &listFetcher{observations: []storage.WeatherObservation{obsAt(26038, 23.0, "")}}

	importer := NewImporter(nil, fetcher, nil, notifier, nil, ImporterOptions{
		AlertsEnabled: true,
		WindAlertFrom: 20.0,
		AlertCooldown: time.Hour,
	}, zerolog.Nop())

	if err := importer.ImportTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.notes))
	}
	if notifier.notes[0].City != "Tallinn" {
		t.Fatalf("alert should resolve the station's city, got %q", notifier.notes[0].City)
	}

	// A second reading inside the cooldown window stays quiet.
	if err := importer.ImportTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("cooldown should suppress the repeat alert, got %d", len(notifier.notes))
	}
}

func TestImportTickAlertsOnHazardousPhenomenon(t *testing.T) {
	notifier := &recordingNotifier{}
	fetcher := &listFetcher{observations: []storage.WeatherObservation{obsAt(26038, 2.0, "Thunderstorm")}}

	importer := NewImporter(nil, fetcher, nil, notifier, nil, ImporterOptions{
		AlertsEnabled: true,
		WindAlertFrom: 20.0,
		AlertCooldown: time.Hour,
	}, zerolog.Nop())

	if err := importer.ImportTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("expected one alert, got %d", len(notifier.notes))
	}
}

func TestImportTickQuietOnCalmWeather(t *testing.T) {
	notifier := &recordingNotifier{}
	fetcher := &listFetcher{observations: []storage.WeatherObservation{obsAt(26038, 5.0, "Few clouds")}}

	importer := NewImporter(nil, fetcher, nil, notifier, nil, ImporterOptions{
		AlertsEnabled: true,
		WindAlertFrom: 20.0,
	}, zerolog.Nop())

	if err := importer.ImportTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("calm weather must not alert, got %d", len(notifier.notes))
	}
}
