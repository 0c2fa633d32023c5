package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// The built-in default rule set installed by reset and by first startup.
// Amounts are in euros.

func fee(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// forbid marks a rule as a prohibition rather than a surcharge.
func forbid() *decimal.Decimal { return nil }

// DefaultBaseRules returns the built-in base fee table, valid from the given
// instant.
func DefaultBaseRules(validFrom time.Time) []storage.BaseFeeRule {
	return []storage.BaseFeeRule{
		{City: domain.CityTallinn, Vehicle: domain.VehicleCar, Fee: fee("4.0"), ValidFrom: validFrom},
		{City: domain.CityTallinn, Vehicle: domain.VehicleScooter, Fee: fee("3.5"), ValidFrom: validFrom},
		{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: fee("3.0"), ValidFrom: validFrom},

		{City: domain.CityTartu, Vehicle: domain.VehicleCar, Fee: fee("3.5"), ValidFrom: validFrom},
		{City: domain.CityTartu, Vehicle: domain.VehicleScooter, Fee: fee("3.0"), ValidFrom: validFrom},
		{City: domain.CityTartu, Vehicle: domain.VehicleBike, Fee: fee("2.5"), ValidFrom: validFrom},

		{City: domain.CityParnu, Vehicle: domain.VehicleCar, Fee: fee("3.0"), ValidFrom: validFrom},
		{City: domain.CityParnu, Vehicle: domain.VehicleScooter, Fee: fee("2.5"), ValidFrom: validFrom},
		{City: domain.CityParnu, Vehicle: domain.VehicleBike, Fee: fee("2.0"), ValidFrom: validFrom},
	}
}

// DefaultExtraRules returns the built-in weather surcharge table, valid from
// the given instant.
func DefaultExtraRules(validFrom time.Time) []storage.ExtraFeeRule {
	numeric := func(metric domain.Metric, valueType domain.ValueType, value string, vehicle domain.VehicleType, amount *decimal.Decimal) storage.ExtraFeeRule {
		return storage.ExtraFeeRule{
			Metric:    metric,
			ValueType: valueType,
			Value:     value,
			Vehicle:   vehicle,
			Fee:       amount,
			ValidFrom: validFrom,
		}
	}
	phenomenon := func(literal string, vehicle domain.VehicleType, amount *decimal.Decimal) storage.ExtraFeeRule {
		return storage.ExtraFeeRule{
			Metric:    domain.MetricPhenomenon,
			ValueType: domain.ValueTypePhenomenon,
			Value:     literal,
			Vehicle:   vehicle,
			Fee:       amount,
			ValidFrom: validFrom,
		}
	}

	rules := []storage.ExtraFeeRule{
		// Air temperature surcharges for open vehicles.
		numeric(domain.MetricAirTemp, domain.ValueTypeUntil, "-10", domain.VehicleScooter, fee("1.0")),
		numeric(domain.MetricAirTemp, domain.ValueTypeUntil, "-10", domain.VehicleBike, fee("1.0")),
		numeric(domain.MetricAirTemp, domain.ValueTypeUntil, "0", domain.VehicleScooter, fee("0.5")),
		numeric(domain.MetricAirTemp, domain.ValueTypeUntil, "0", domain.VehicleBike, fee("0.5")),

		// Wind speed surcharge and prohibition for bikes.
		numeric(domain.MetricWindSpeed, domain.ValueTypeFrom, "10", domain.VehicleBike, fee("0.5")),
		numeric(domain.MetricWindSpeed, domain.ValueTypeFrom, "20", domain.VehicleBike, forbid()),
	}

	// Snow and sleet.
	for _, literal := range []string{
		"Light snow shower", "Moderate snow shower", "Heavy snow shower",
		"Light sleet", "Moderate sleet",
		"Light snowfall", "Moderate snowfall", "Heavy snowfall",
		"Blowing snow", "Drifting snow",
	} {
		rules = append(rules, phenomenon(literal, domain.VehicleBike, fee("1.0")))
	}

	// Rain.
	for _, literal := range []string{
		"Light shower", "Moderate shower", "Heavy shower",
		"Light rain", "Moderate rain", "Heavy rain",
	} {
		rules = append(rules, phenomenon(literal, domain.VehicleBike, fee("0.5")))
	}

	// Conditions under which bikes may not be used at all.
	for _, literal := range []string{"Glaze", "Hail", "Thunder", "Thunderstorm"} {
		rules = append(rules, phenomenon(literal, domain.VehicleBike, forbid()))
	}

	return rules
}
