package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/fee"
	"courier-fees/internal/rules"
	"courier-fees/internal/storage"
)

// Evaluator computes a delivery fee at a reference instant.
type Evaluator interface {
	Evaluate(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (decimal.Decimal, error)
}

// RuleManager covers the rule management operations the query surface needs.
type RuleManager interface {
	AddBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.BaseFeeRule, error)
	AddNumericRule(ctx context.Context, metric domain.Metric, valueType domain.ValueType, threshold float64, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.ExtraFeeRule, error)
	AddPhenomenonRule(ctx context.Context, literal string, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.ExtraFeeRule, error)
	DisableRule(ctx context.Context, id int64) error
	ResetDefaults(ctx context.Context) error
	CurrentBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType) (*storage.BaseFeeRule, error)
	CurrentExtraRules(ctx context.Context, vehicle domain.VehicleType) ([]storage.ExtraFeeRule, error)
	BaseRuleHistory(ctx context.Context) ([]storage.BaseFeeRule, error)
	ExtraRuleHistory(ctx context.Context) ([]storage.ExtraFeeRule, error)
}

// Server exposes the single query-style endpoint for fee calculation and
// rule management. All responses are plain text or small HTML tables; errors
// surface as human-readable messages, matching what callers script against.
type Server struct {
	evaluator Evaluator
	manager   RuleManager
	logger    zerolog.Logger
	now       func() time.Time
}

// NewServer wires the query surface.
func NewServer(evaluator Evaluator, manager RuleManager, logger zerolog.Logger) *Server {
	return &Server{
		evaluator: evaluator,
		manager:   manager,
		logger:    logger.With().Str("component", "httpapi").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns the HTTP handler for the query surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /getFee", s.handleGetFee)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) handleGetFee(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	city := domain.CityUnknown
	if v := q.Get("city"); v != "" {
		if city = domain.ParseCity(v); !city.Known() {
			s.respond(w, "Unknown value for 'city' parameter")
			return
		}
	}

	vehicle := domain.VehicleUnknown
	if v := q.Get("vehicle"); v != "" {
		if vehicle = domain.ParseVehicleType(v); !vehicle.Known() {
			s.respond(w, "Unknown value for 'vehicle' parameter")
			return
		}
	}

	if mode := q.Get("mode"); mode != "" {
		s.handleMode(w, r, mode, city, vehicle)
		return
	}

	if !city.Known() {
		s.respond(w, "Specify 'city' parameter")
		return
	}
	if !vehicle.Known() {
		s.respond(w, "Specify 'vehicle' parameter")
		return
	}

	at := s.now()
	if v := q.Get("time"); v != "" {
		seconds, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.respond(w, "Unknown value for 'time' parameter")
			return
		}
		at = time.Unix(seconds, 0).UTC()
	}

	total, err := s.evaluator.Evaluate(r.Context(), city, vehicle, at)
	if err != nil {
		s.respondEvaluation(w, err)
		return
	}
	s.respond(w, total.StringFixed(2))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request, mode string, city domain.City, vehicle domain.VehicleType) {
	q := r.URL.Query()

	switch mode {
	case "reset":
		if err := s.manager.ResetDefaults(r.Context()); err != nil {
			s.respondInternal(w, err)
			return
		}
		s.respond(w, "The fee rules were reset")

	case "print":
		body, err := s.renderCurrentRules(r.Context())
		if err != nil {
			s.respondInternal(w, err)
			return
		}
		s.respond(w, body)

	case "history":
		body, err := s.renderRuleHistory(r.Context())
		if err != nil {
			s.respondInternal(w, err)
			return
		}
		s.respond(w, body)

	case "disable":
		id, err := strconv.ParseInt(q.Get("id"), 10, 64)
		if err != nil {
			s.respond(w, "Unknown value for 'id' parameter")
			return
		}
		switch err := s.manager.DisableRule(r.Context(), id); {
		case errors.Is(err, storage.ErrRuleNotFound):
			s.respond(w, "Rule not found")
		case errors.Is(err, storage.ErrRuleAlreadyDisabled):
			s.respond(w, "Rule already disabled")
		case err != nil:
			s.respondInternal(w, err)
		default:
			s.respond(w, "Rule disabled")
		}

	case "add":
		s.handleAdd(w, r, city, vehicle)

	default:
		s.respond(w, "Unknown value for 'mode' parameter")
	}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request, city domain.City, vehicle domain.VehicleType) {
	q := r.URL.Query()

	if !vehicle.Known() {
		s.respond(w, "Specify 'vehicle' parameter")
		return
	}
	typeStr := q.Get("type")
	if typeStr == "" {
		s.respond(w, "Specify 'type' parameter")
		return
	}
	amountStr := q.Get("amount")
	if amountStr == "" {
		s.respond(w, "Specify 'amount' parameter")
		return
	}

	amount, ok := parseAmount(amountStr)
	if !ok {
		s.respond(w, "Unknown value for 'amount' parameter")
		return
	}

	switch strings.ToLower(typeStr) {
	case "base":
		if !city.Known() {
			s.respond(w, "Specify 'city' parameter")
			return
		}
		if _, err := s.manager.AddBaseRule(r.Context(), city, vehicle, amount); err != nil {
			s.respondRuleError(w, err)
			return
		}
		s.respond(w, "Rule added")

	case "from", "until":
		valueType := domain.ParseValueType(typeStr)
		metric := domain.ParseMetric(q.Get("metric"))
		if metric == domain.MetricUnknown {
			s.respond(w, "Unknown value for 'metric' parameter")
			return
		}
		value, err := strconv.ParseFloat(q.Get("value"), 64)
		if err != nil {
			s.respond(w, "Unknown value for 'value' parameter")
			return
		}
		if _, err := s.manager.AddNumericRule(r.Context(), metric, valueType, value, vehicle, amount); err != nil {
			s.respondRuleError(w, err)
			return
		}
		s.respond(w, "Rule added")

	case "phenomenon":
		literal := q.Get("value")
		if literal == "" {
			s.respond(w, "Specify 'value' parameter")
			return
		}
		if _, err := s.manager.AddPhenomenonRule(r.Context(), literal, vehicle, amount); err != nil {
			s.respondRuleError(w, err)
			return
		}
		s.respond(w, "Rule added")

	default:
		s.respond(w, "Unknown value for 'type' parameter")
	}
}

// parseAmount interprets the amount parameter; "forbid" means a prohibition
// (absent fee).
func parseAmount(s string) (*decimal.Decimal, bool) {
	if strings.EqualFold(s, "forbid") {
		return nil, true
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return &amount, true
}

func (s *Server) respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// respondEvaluation maps evaluation outcomes to their messages; anything
// else is an internal failure.
func (s *Server) respondEvaluation(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fee.ErrVehicleNotAllowed),
		errors.Is(err, fee.ErrUsageForbidden),
		errors.Is(err, fee.ErrNoWeatherData):
		s.respond(w, err.Error())
	default:
		s.respondInternal(w, err)
	}
}

// respondRuleError surfaces validation conflicts verbatim; anything else is
// an internal failure.
func (s *Server) respondRuleError(w http.ResponseWriter, err error) {
	var conflict *rules.ConflictError
	if errors.As(err, &conflict) {
		s.respond(w, conflict.Error())
		return
	}
	s.respondInternal(w, err)
}

func (s *Server) respondInternal(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	http.Error(w, "Internal error", http.StatusInternalServerError)
}
