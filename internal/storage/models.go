package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
)

// BaseFeeRule is one version of the flat city/vehicle fee. A nil Fee means
// use of the vehicle is forbidden in that city. Versions are append-only;
// the one with the greatest ValidFrom at or before the query instant wins.
type BaseFeeRule struct {
	ID        int64
	City      domain.City
	Vehicle   domain.VehicleType
	Fee       *decimal.Decimal
	ValidFrom time.Time
}

// Forbidden reports whether the rule prohibits the vehicle outright.
func (r BaseFeeRule) Forbidden() bool {
	return r.Fee == nil
}

// ExtraFeeRule is a weather-conditional surcharge or prohibition. Value holds
// either a formatted numeric threshold (FROM/UNTIL) or a phenomenon literal,
// per ValueType. A nil ValidUntil means the rule is still active.
type ExtraFeeRule struct {
	ID         int64
	Metric     domain.Metric
	ValueType  domain.ValueType
	Value      string
	Vehicle    domain.VehicleType
	Fee        *decimal.Decimal
	ValidFrom  time.Time
	ValidUntil *time.Time
}

// Forbidden reports whether a match on the rule prohibits the vehicle.
func (r ExtraFeeRule) Forbidden() bool {
	return r.Fee == nil
}

// ActiveAt reports whether the rule's validity interval contains at.
func (r ExtraFeeRule) ActiveAt(at time.Time) bool {
	if r.ValidFrom.After(at) {
		return false
	}
	return r.ValidUntil == nil || r.ValidUntil.After(at)
}

// WeatherObservation is one immutable station reading from the national feed.
type WeatherObservation struct {
	StationWMO  int
	StationName string
	AirTemp     float64
	WindSpeed   float64
	Phenomenon  string
	ObservedAt  time.Time
	CreatedAt   time.Time
}
