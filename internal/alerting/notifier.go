package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification describes a severe weather reading at a serviced station.
type Notification struct {
	StationName string
	City        string
	AirTemp     float64
	WindSpeed   float64
	Phenomenon  string
	ObservedAt  time.Time
	Reason      string
}

// Notifier delivers severe weather notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes notifications through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify posts the rendered message via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("station", note.StationName).
		Str("reason", note.Reason).
		Msg("severe weather alert sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Severe Weather]\n")
	builder.WriteString(fmt.Sprintf("Station: %s (%s)\n", note.StationName, note.City))
	builder.WriteString(fmt.Sprintf("Observed: %s UTC\n", note.ObservedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Air temperature: %.1f °C\n", note.AirTemp))
	builder.WriteString(fmt.Sprintf("Wind speed: %.1f m/s\n", note.WindSpeed))
	if note.Phenomenon != "" {
		builder.WriteString(fmt.Sprintf("Phenomenon: %s\n", note.Phenomenon))
	}
	builder.WriteString(fmt.Sprintf("Reason: %s\n", note.Reason))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
