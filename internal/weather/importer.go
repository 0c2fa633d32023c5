package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"courier-fees/internal/alerting"
	"courier-fees/internal/domain"
	"courier-fees/internal/scheduler"
	"courier-fees/internal/storage"
)

// hazardousPhenomena are conditions worth alerting on regardless of wind.
// They mirror the phenomena the default rule set forbids bikes under.
var hazardousPhenomena = map[string]bool{
	"glaze":        true,
	"hail":         true,
	"thunder":      true,
	"thunderstorm": true,
}

// ImporterOptions tune the periodic import job.
type ImporterOptions struct {
	AdvisoryLockKey int64
	AlertsEnabled   bool
	WindAlertFrom   float64
	AlertCooldown   time.Duration
}

// Importer periodically fetches the observations feed and appends readings
// for the tracked stations. It is the only writer of the observation store;
// the fee engine only ever reads.
type Importer struct {
	scheduler *scheduler.Scheduler
	fetcher   Fetcher
	store     storage.WeatherObservationStore
	notifier  alerting.Notifier
	locker    storage.AdvisoryLocker
	logger    zerolog.Logger
	opts      ImporterOptions

	lastAlert map[int]time.Time
}

// NewImporter constructs the import job. notifier and locker may be nil.
func NewImporter(sched *scheduler.Scheduler, fetcher Fetcher, store storage.WeatherObservationStore, notifier alerting.Notifier, locker storage.AdvisoryLocker, opts ImporterOptions, logger zerolog.Logger) *Importer {
	return &Importer{
		scheduler: sched,
		fetcher:   fetcher,
		store:     store,
		notifier:  notifier,
		locker:    locker,
		logger:    logger.With().Str("component", "weather_importer").Logger(),
		opts:      opts,
		lastAlert: make(map[int]time.Time),
	}
}

// Run begins the aligned import loop.
func (i *Importer) Run(ctx context.Context) error {
	if i.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return i.scheduler.Run(ctx, i.ImportTick)
}

// ImportTick performs one fetch-and-store cycle. When another replica holds
// the advisory lock the tick is skipped; the feed republishes, so nothing
// is lost.
func (i *Importer) ImportTick(ctx context.Context, at time.Time) error {
	unlock, proceed, err := i.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		i.logger.Debug().Time("tick", at).Msg("skip import because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	observations, err := i.fetcher.FetchObservations(ctx)
	if err != nil {
		return fmt.Errorf("fetch observations: %w", err)
	}
	if len(observations) == 0 {
		i.logger.Warn().Time("tick", at).Msg("feed contained no tracked stations")
		return nil
	}

	if i.store != nil {
		if err := i.store.InsertObservations(ctx, observations); err != nil {
			return fmt.Errorf("store observations: %w", err)
		}
	}

	i.logger.Info().Time("tick", at).Int("stations", len(observations)).Msg("observations imported")

	i.checkSevereWeather(ctx, observations)
	return nil
}

// checkSevereWeather notifies once per cooldown window per station when a
// reading breaches the wind threshold or carries a hazardous phenomenon.
func (i *Importer) checkSevereWeather(ctx context.Context, observations []storage.WeatherObservation) {
	if !i.opts.AlertsEnabled || i.notifier == nil {
		return
	}

	for _, obs := range observations {
		reason := severityReason(obs, i.opts.WindAlertFrom)
		if reason == "" {
			continue
		}

		if last, ok := i.lastAlert[obs.StationWMO]; ok && time.Since(last) < i.opts.AlertCooldown {
			continue
		}

		note := alerting.Notification{
			StationName: obs.StationName,
			City:        domain.CityOfStation(obs.StationWMO).String(),
			AirTemp:     obs.AirTemp,
			WindSpeed:   obs.WindSpeed,
			Phenomenon:  obs.Phenomenon,
			ObservedAt:  obs.ObservedAt,
			Reason:      reason,
		}
		if err := i.notifier.Notify(ctx, note); err != nil {
			i.logger.Error().Err(err).Int("wmo", obs.StationWMO).Msg("failed to dispatch severe weather alert")
			continue
		}
		i.lastAlert[obs.StationWMO] = time.Now().UTC()
	}
}

func severityReason(obs storage.WeatherObservation, windFrom float64) string {
	if windFrom > 0 && obs.WindSpeed >= windFrom {
		return fmt.Sprintf("wind speed %.1f m/s at or above %.1f m/s", obs.WindSpeed, windFrom)
	}
	if hazardousPhenomena[strings.ToLower(obs.Phenomenon)] {
		return fmt.Sprintf("hazardous phenomenon %q", obs.Phenomenon)
	}
	return ""
}

func (i *Importer) acquireLock(ctx context.Context) (func(), bool, error) {
	if i.opts.AdvisoryLockKey == 0 || i.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := i.locker.TryAdvisoryLock(ctx, i.opts.AdvisoryLockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
