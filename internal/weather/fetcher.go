package weather

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

const defaultFeedURL = "https://www.ilmateenistus.ee/ilma_andmed/xml/observations.php"

// Fetcher retrieves the current station observations from the national feed.
type Fetcher interface {
	FetchObservations(ctx context.Context) ([]storage.WeatherObservation, error)
}

// ClientOptions parameterise the observations feed client.
type ClientOptions struct {
	FeedURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches and parses the national weather observations XML feed.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	feedURL string
}

// NewClient constructs an observations feed client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	feedURL := strings.TrimSpace(opts.FeedURL)
	if feedURL == "" {
		feedURL = defaultFeedURL
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "weather_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		feedURL: feedURL,
	}
}

type observationsXML struct {
	Timestamp string       `xml:"timestamp,attr"`
	Stations  []stationXML `xml:"station"`
}

type stationXML struct {
	Name       string `xml:"name"`
	WMOCode    string `xml:"wmocode"`
	AirTemp    string `xml:"airtemperature"`
	WindSpeed  string `xml:"windspeed"`
	Phenomenon string `xml:"phenomenon"`
}

// FetchObservations downloads the feed and returns readings for the tracked
// stations. Stations with missing or malformed fields are skipped; a fully
// empty result is not an error (the feed decides what it publishes).
func (c *Client) FetchObservations(ctx context.Context) ([]storage.WeatherObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch observations feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("observations feed returned status %d", resp.StatusCode)
	}

	doc, err := decodeFeed(resp.Body)
	if err != nil {
		return nil, err
	}

	observedAt, err := strconv.ParseInt(doc.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("feed timestamp %q does not parse: %w", doc.Timestamp, err)
	}

	tracked := make(map[int]bool)
	for _, wmo := range domain.StationWMOs() {
		tracked[wmo] = true
	}

	observations := make([]storage.WeatherObservation, 0, len(tracked))
	for _, station := range doc.Stations {
		wmo, err := strconv.Atoi(strings.TrimSpace(station.WMOCode))
		if err != nil || !tracked[wmo] {
			continue
		}

		airTemp, err := strconv.ParseFloat(strings.TrimSpace(station.AirTemp), 64)
		if err != nil {
			c.logger.Warn().Int("wmo", wmo).Str("value", station.AirTemp).Msg("skipping station with unreadable air temperature")
			continue
		}
		windSpeed, err := strconv.ParseFloat(strings.TrimSpace(station.WindSpeed), 64)
		if err != nil {
			c.logger.Warn().Int("wmo", wmo).Str("value", station.WindSpeed).Msg("skipping station with unreadable wind speed")
			continue
		}

		observations = append(observations, storage.WeatherObservation{
			StationWMO:  wmo,
			StationName: strings.TrimSpace(station.Name),
			AirTemp:     airTemp,
			WindSpeed:   windSpeed,
			Phenomenon:  strings.TrimSpace(station.Phenomenon),
			ObservedAt:  time.Unix(observedAt, 0).UTC(),
		})
	}

	c.logger.Debug().Int("stations", len(observations)).Msg("observations fetched")
	return observations, nil
}

func decodeFeed(r io.Reader) (*observationsXML, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc observationsXML
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode observations feed: %w", err)
	}
	return &doc, nil
}

// charsetReader handles the Latin-1 declaration the feed historically
// carried alongside plain UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "iso-8859-1", "latin1":
		return latin1Reader{r: input}, nil
	default:
		return nil, errors.New("unsupported feed charset: " + charset)
	}
}

type latin1Reader struct {
	r io.Reader
}

func (l latin1Reader) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}

	// Each Latin-1 byte maps to the rune of the same value and encodes to at
	// most two UTF-8 bytes, so reading len(p)/2 source bytes always fits.
	buf := make([]byte, len(p)/2)
	n, err := l.r.Read(buf)

	written := 0
	for _, b := range buf[:n] {
		written += utf8.EncodeRune(p[written:], rune(b))
	}
	return written, err
}

var _ Fetcher = (*Client)(nil)
