package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"courier-fees/internal/alerting"
	"courier-fees/internal/config"
	"courier-fees/internal/fee"
	"courier-fees/internal/httpapi"
	"courier-fees/internal/rules"
	"courier-fees/internal/scheduler"
	"courier-fees/internal/storage"
	"courier-fees/internal/weather"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is not configured")
	}

	pool, err := storage.NewPool(ctx, storage.PoolConfig{
		DSN:             a.Config.Database.DSN,
		MaxOpenConns:    a.Config.Database.MaxOpenConns,
		MaxIdleConns:    a.Config.Database.MaxIdleConns,
		ConnMaxLifetime: a.Config.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newManager(store *storage.Store) *rules.Manager {
	return rules.NewManager(store, store, store, a.Logger)
}

func (a *App) newEngine(store *storage.Store) *fee.Engine {
	return fee.NewEngine(store, store, store, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newImporter(store *storage.Store) *weather.Importer {
	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Weather.Interval,
		AlignToStart: a.Config.Weather.AlignToInterval,
		StartupDelay: a.Config.Weather.StartupDelay,
	}, a.Logger)

	client := weather.NewClient(weather.ClientOptions{
		FeedURL:   a.Config.Weather.FeedURL,
		Timeout:   a.Config.Weather.RequestTimeout,
		UserAgent: a.Config.Weather.UserAgent,
	}, a.Logger)

	return weather.NewImporter(sched, client, store, a.newNotifier(), store, weather.ImporterOptions{
		AdvisoryLockKey: a.Config.Weather.AdvisoryLockKey,
		AlertsEnabled:   a.Config.Alerting.Enabled,
		WindAlertFrom:   a.Config.Alerting.WindAlertFrom,
		AlertCooldown:   a.Config.Alerting.Cooldown,
	}, a.Logger)
}

// Run starts the weather import loop and the HTTP query surface, blocking
// until a signal or a fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	manager := a.newManager(store)
	if err := manager.EnsureDefaults(ctx); err != nil {
		return err
	}

	importer := a.newImporter(store)
	api := httpapi.NewServer(a.newEngine(store), manager, a.Logger)

	server := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := importer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	go func() {
		a.Logger.Info().Str("addr", server.Addr).Msg("starting query surface")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		a.Logger.Error().Err(runErr).Msg("service terminated with error")
		return runErr
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// CalcOptions configure a one-off fee calculation.
type CalcOptions struct {
	City    string
	Vehicle string
	// Time is the reference instant in seconds since epoch; zero means now.
	Time int64
}

// ShowOptions configure the show command.
type ShowOptions struct {
	History bool
}

// ExportOptions hold parameters for exporting historical observations.
type ExportOptions struct {
	City      string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions describe a synthetic observation for alert testing.
type SimulateOptions struct {
	City       string
	AirTemp    float64
	WindSpeed  float64
	Phenomenon string
}
