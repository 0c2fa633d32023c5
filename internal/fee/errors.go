package fee

import (
	"errors"
	"fmt"
)

// Evaluation outcomes surfaced verbatim to the caller. These are legitimate
// business results, not defects; they are never retried.
var (
	// ErrVehicleNotAllowed means no effective base rule permits the vehicle
	// in the city (either none exists or the rule is a prohibition).
	ErrVehicleNotAllowed = errors.New("Use of selected vehicle is not allowed in specified city")
	// ErrUsageForbidden means a matched weather rule prohibits the vehicle
	// under current conditions.
	ErrUsageForbidden = errors.New("Usage of selected vehicle type is currently forbidden")
	// ErrNoWeatherData means no observation exists at or before the
	// reference time for the city's station.
	ErrNoWeatherData = errors.New("No valid weather data recorded")
	// ErrInvalidInput means the city or vehicle is not a known one.
	ErrInvalidInput = errors.New("unknown city or vehicle type")
)

// CorruptRuleError is a defect-class failure: a stored numeric rule value
// did not parse. It is not user-correctable.
type CorruptRuleError struct {
	RuleID int64
	Value  string
	Err    error
}

func (e *CorruptRuleError) Error() string {
	return fmt.Sprintf("rule %d has malformed stored value %q: %v", e.RuleID, e.Value, e.Err)
}

func (e *CorruptRuleError) Unwrap() error {
	return e.Err
}
