package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// ConflictError reports a new rule that cannot coexist with the active rule
// set or violates field constraints. Its message is surfaced to the caller.
type ConflictError struct {
	Reason     string
	ConflictID int64
}

func (e *ConflictError) Error() string {
	if e.ConflictID != 0 {
		return fmt.Sprintf("Conflicting rule (ID: %d)", e.ConflictID)
	}
	return e.Reason
}

func invalidParams() *ConflictError {
	return &ConflictError{Reason: "Invalid rule parameter(s)"}
}

// validateBaseRule checks a new base rule version against the currently
// effective rule for its (city, vehicle) pair. Supersession is allowed;
// only a second version at the exact same instant is a conflict.
func validateBaseRule(rule storage.BaseFeeRule, current *storage.BaseFeeRule) error {
	if !rule.City.Known() || !rule.Vehicle.Known() {
		return invalidParams()
	}
	if rule.Fee != nil && !rule.Fee.GreaterThan(decimal.Zero) {
		return invalidParams()
	}
	if current != nil && current.ValidFrom.Equal(rule.ValidFrom) {
		return &ConflictError{ConflictID: current.ID}
	}
	return nil
}

// validateNumericRule checks a new FROM/UNTIL threshold rule against the
// rules currently active for the same (metric, vehicle). Two threshold rules
// conflict when some observed value would satisfy both.
func validateNumericRule(rule storage.ExtraFeeRule, active []storage.ExtraFeeRule) error {
	if !rule.Vehicle.Known() {
		return invalidParams()
	}
	if rule.Metric == domain.MetricUnknown || rule.Metric == domain.MetricPhenomenon {
		return invalidParams()
	}
	if rule.ValueType != domain.ValueTypeFrom && rule.ValueType != domain.ValueTypeUntil {
		return invalidParams()
	}
	if rule.Fee != nil && !rule.Fee.GreaterThan(decimal.Zero) {
		return invalidParams()
	}

	value, err := strconv.ParseFloat(rule.Value, 64)
	if err != nil {
		return invalidParams()
	}

	for _, existing := range active {
		if existing.Metric != rule.Metric {
			continue
		}
		threshold, err := strconv.ParseFloat(existing.Value, 64)
		if err != nil {
			return fmt.Errorf("stored rule %d has malformed value %q: %w", existing.ID, existing.Value, err)
		}

		duplicate := existing.ValueType == rule.ValueType && threshold == value
		overlapFrom := existing.ValueType == domain.ValueTypeUntil &&
			rule.ValueType == domain.ValueTypeFrom && threshold >= value
		overlapUntil := existing.ValueType == domain.ValueTypeFrom &&
			rule.ValueType == domain.ValueTypeUntil && threshold <= value

		if duplicate || overlapFrom || overlapUntil {
			return &ConflictError{ConflictID: existing.ID}
		}
	}
	return nil
}

// validatePhenomenonRule checks a new phenomenon rule against the rules
// currently active for the same vehicle. Literal comparison is
// case-insensitive because evaluation matches case-insensitively.
func validatePhenomenonRule(rule storage.ExtraFeeRule, active []storage.ExtraFeeRule) error {
	if !rule.Vehicle.Known() || rule.Value == "" {
		return invalidParams()
	}
	if rule.Fee != nil && !rule.Fee.GreaterThan(decimal.Zero) {
		return invalidParams()
	}

	for _, existing := range active {
		if existing.ValueType == domain.ValueTypePhenomenon && strings.EqualFold(existing.Value, rule.Value) {
			return &ConflictError{ConflictID: existing.ID}
		}
	}
	return nil
}
