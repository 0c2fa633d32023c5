package fee

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// Engine computes the delivery fee for a city/vehicle pair at an arbitrary
// instant by combining the effective base rule with the extra rules matching
// the weather observation effective at that instant. Evaluation is a pure
// function of store state and the request; it never mutates anything.
type Engine struct {
	base    storage.BaseFeeRuleStore
	extra   storage.ExtraFeeRuleStore
	weather storage.WeatherObservationStore
	logger  zerolog.Logger
}

// NewEngine constructs a fee evaluation engine.
func NewEngine(base storage.BaseFeeRuleStore, extra storage.ExtraFeeRuleStore, weather storage.WeatherObservationStore, logger zerolog.Logger) *Engine {
	return &Engine{
		base:    base,
		extra:   extra,
		weather: weather,
		logger:  logger.With().Str("component", "fee_engine").Logger(),
	}
}

// Evaluate returns the total delivery fee at the reference instant, or one of
// the outcome errors in this package.
func (e *Engine) Evaluate(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (decimal.Decimal, error) {
	if !city.Known() || !vehicle.Known() {
		return decimal.Decimal{}, ErrInvalidInput
	}

	base, err := e.baseFee(ctx, city, vehicle, at)
	if err != nil {
		return decimal.Decimal{}, err
	}

	extra, err := e.extraFee(ctx, city, vehicle, at)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return base.Add(extra), nil
}

func (e *Engine) baseFee(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (decimal.Decimal, error) {
	rule, err := e.base.EffectiveBaseRule(ctx, city, vehicle, at)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rule == nil || rule.Forbidden() {
		return decimal.Decimal{}, ErrVehicleNotAllowed
	}
	return *rule.Fee, nil
}

func (e *Engine) extraFee(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (decimal.Decimal, error) {
	obs, err := e.weather.ObservationAt(ctx, domain.StationWMO(city), at)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if obs == nil {
		return decimal.Decimal{}, ErrNoWeatherData
	}

	rules, err := e.extra.EffectiveExtraRules(ctx, vehicle, at)
	if err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for _, metric := range domain.NumericMetrics {
		contribution, err := e.numericContribution(metric, observedValue(metric, obs), rules)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(contribution)
	}

	contribution, err := e.phenomenonContribution(obs.Phenomenon, rules)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return total.Add(contribution), nil
}

// numericContribution applies the strictest matching FROM rule and the
// strictest matching UNTIL rule for one metric. The two directions are
// additive; within a direction only the first (strictest) match counts.
func (e *Engine) numericContribution(metric domain.Metric, observed float64, rules []storage.ExtraFeeRule) (decimal.Decimal, error) {
	var fromMatch, untilMatch *storage.ExtraFeeRule
	var fromThreshold, untilThreshold float64

	for i := range rules {
		rule := &rules[i]
		if rule.Metric != metric {
			continue
		}
		switch rule.ValueType {
		case domain.ValueTypeFrom, domain.ValueTypeUntil:
		default:
			continue
		}

		threshold, err := strconv.ParseFloat(rule.Value, 64)
		if err != nil {
			corrupt := &CorruptRuleError{RuleID: rule.ID, Value: rule.Value, Err: err}
			e.logger.Error().Err(corrupt).Int64("rule_id", rule.ID).Msg("stored rule value does not parse")
			return decimal.Decimal{}, corrupt
		}

		// FROM matches observed >= threshold, highest threshold wins.
		// UNTIL matches observed <= threshold, lowest threshold wins.
		switch rule.ValueType {
		case domain.ValueTypeFrom:
			if observed >= threshold && (fromMatch == nil || threshold > fromThreshold) {
				fromMatch, fromThreshold = rule, threshold
			}
		case domain.ValueTypeUntil:
			if observed <= threshold && (untilMatch == nil || threshold < untilThreshold) {
				untilMatch, untilThreshold = rule, threshold
			}
		}
	}

	total := decimal.Zero
	for _, match := range []*storage.ExtraFeeRule{fromMatch, untilMatch} {
		if match == nil {
			continue
		}
		if match.Forbidden() {
			return decimal.Decimal{}, ErrUsageForbidden
		}
		total = total.Add(*match.Fee)
	}
	return total, nil
}

func (e *Engine) phenomenonContribution(observed string, rules []storage.ExtraFeeRule) (decimal.Decimal, error) {
	for _, rule := range rules {
		if rule.ValueType != domain.ValueTypePhenomenon {
			continue
		}
		if !strings.EqualFold(rule.Value, observed) {
			continue
		}
		if rule.Forbidden() {
			return decimal.Decimal{}, ErrUsageForbidden
		}
		return *rule.Fee, nil
	}
	return decimal.Zero, nil
}

func observedValue(metric domain.Metric, obs *storage.WeatherObservation) float64 {
	if metric == domain.MetricWindSpeed {
		return obs.WindSpeed
	}
	return obs.AirTemp
}
