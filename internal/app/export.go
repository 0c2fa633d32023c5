package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// Export renders a city's recorded weather observations as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	city := domain.ParseCity(opts.City)
	if !city.Known() {
		return fmt.Errorf("unknown city %q", opts.City)
	}
	station := domain.StationWMO(city)

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Weather.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	observations, err := store.ListObservationsBetween(ctx, station, from, to)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		a.Logger.Info().Msg("no observations found for export window")
		return nil
	}

	downsampled := downsampleObservations(observations, opts.MaxPoints)
	a.Logger.Info().
		Int("total", len(observations)).
		Int("exported", len(downsampled)).
		Str("city", city.String()).
		Msg("exporting observations")

	if opts.CSVPath != "" {
		if err := writeObservationsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeObservationsPNG(opts.PNGPath, city, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleObservations(observations []storage.WeatherObservation, max int) []storage.WeatherObservation {
	if max <= 0 || len(observations) <= max {
		return observations
	}

	result := make([]storage.WeatherObservation, 0, max)
	step := float64(len(observations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(observations) {
			idx = len(observations) - 1
		}
		result = append(result, observations[idx])
	}
	return result
}

func writeObservationsCSV(path string, observations []storage.WeatherObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"observed_at", "station_wmo", "station_name", "air_temp_c", "wind_speed_ms", "phenomenon"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, obs := range observations {
		record := []string{
			obs.ObservedAt.Format(time.RFC3339),
			strconv.Itoa(obs.StationWMO),
			obs.StationName,
			strconv.FormatFloat(obs.AirTemp, 'f', -1, 64),
			strconv.FormatFloat(obs.WindSpeed, 'f', -1, 64),
			obs.Phenomenon,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeObservationsPNG(path string, city domain.City, observations []storage.WeatherObservation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(observations))
	airTemp := make([]float64, len(observations))
	windSpeed := make([]float64, len(observations))

	for i, obs := range observations {
		x[i] = obs.ObservedAt
		airTemp[i] = obs.AirTemp
		windSpeed[i] = obs.WindSpeed
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("Weather in %s", city),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Air temperature (C)",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Wind speed (m/s)",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Air temp",
				XValues: x,
				YValues: airTemp,
			},
			chart.TimeSeries{
				Name:    "Wind speed",
				XValues: x,
				YValues: windSpeed,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
