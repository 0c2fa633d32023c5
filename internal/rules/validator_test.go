package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func amount(t *testing.T, v string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad amount literal %q: %v", v, err)
	}
	return &d
}

func conflictOf(t *testing.T, err error) *ConflictError {
	t.Helper()
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	return conflict
}

func TestValidateBaseRuleAllowsSupersession(t *testing.T) {
	current := &storage.BaseFeeRule{ID: 1, City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "3.0"), ValidFrom: testTime.Add(-time.Hour)}
	next := storage.BaseFeeRule{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "3.2"), ValidFrom: testTime}

	if err := validateBaseRule(next, current); err != nil {
		t.Fatalf("a later version should supersede, got %v", err)
	}
}

func TestValidateBaseRuleSameInstantConflicts(t *testing.T) {
	current := &storage.BaseFeeRule{ID: 4, City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "3.0"), ValidFrom: testTime}
	next := storage.BaseFeeRule{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "3.2"), ValidFrom: testTime}

	conflict := conflictOf(t, validateBaseRule(next, current))
	if conflict.ConflictID != 4 {
		t.Fatalf("conflict should name rule 4, got %d", conflict.ConflictID)
	}
	if conflict.Error() != "Conflicting rule (ID: 4)" {
		t.Fatalf("unexpected message %q", conflict.Error())
	}
}

func TestValidateBaseRuleRejectsBadParams(t *testing.T) {
	cases := []storage.BaseFeeRule{
		{City: domain.CityUnknown, Vehicle: domain.VehicleBike, Fee: amount(t, "3.0"), ValidFrom: testTime},
		{City: domain.CityTallinn, Vehicle: domain.VehicleUnknown, Fee: amount(t, "3.0"), ValidFrom: testTime},
		{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "0"), ValidFrom: testTime},
		{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: amount(t, "-1.5"), ValidFrom: testTime},
	}
	for i, rule := range cases {
		conflict := conflictOf(t, validateBaseRule(rule, nil))
		if conflict.Error() != "Invalid rule parameter(s)" {
			t.Fatalf("case %d: unexpected message %q", i, conflict.Error())
		}
	}
}

func TestValidateBaseRuleAllowsProhibition(t *testing.T) {
	rule := storage.BaseFeeRule{City: domain.CityTallinn, Vehicle: domain.VehicleBike, Fee: nil, ValidFrom: testTime}
	if err := validateBaseRule(rule, nil); err != nil {
		t.Fatalf("nil fee records a prohibition and must validate, got %v", err)
	}
}

func TestValidateNumericRuleDuplicateThreshold(t *testing.T) {
	active := []storage.ExtraFeeRule{
		{ID: 10, Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "10", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "10", Vehicle: domain.VehicleBike, Fee: amount(t, "1.0"), ValidFrom: testTime}

	conflict := conflictOf(t, validateNumericRule(rule, active))
	if conflict.ConflictID != 10 {
		t.Fatalf("conflict should name rule 10, got %d", conflict.ConflictID)
	}
}

func TestValidateNumericRuleOverlappingDirections(t *testing.T) {
	// An UNTIL 0 rule and a FROM -5 rule both match observations in [-5, 0].
	active := []storage.ExtraFeeRule{
		{ID: 11, Metric: domain.MetricAirTemp, ValueType: domain.ValueTypeUntil, Value: "0", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricAirTemp, ValueType: domain.ValueTypeFrom, Value: "-5", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime}

	conflict := conflictOf(t, validateNumericRule(rule, active))
	if conflict.ConflictID != 11 {
		t.Fatalf("conflict should name rule 11, got %d", conflict.ConflictID)
	}
}

func TestValidateNumericRuleDisjointDirectionsCoexist(t *testing.T) {
	active := []storage.ExtraFeeRule{
		{ID: 12, Metric: domain.MetricAirTemp, ValueType: domain.ValueTypeUntil, Value: "0", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricAirTemp, ValueType: domain.ValueTypeFrom, Value: "30", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime}

	if err := validateNumericRule(rule, active); err != nil {
		t.Fatalf("no observed value satisfies both rules, got %v", err)
	}
}

func TestValidateNumericRuleIgnoresOtherMetric(t *testing.T) {
	active := []storage.ExtraFeeRule{
		{ID: 13, Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "10", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricAirTemp, ValueType: domain.ValueTypeUntil, Value: "0", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime}

	if err := validateNumericRule(rule, active); err != nil {
		t.Fatalf("rules on different metrics never conflict, got %v", err)
	}
}

func TestValidateNumericRuleRejectsBadParams(t *testing.T) {
	cases := []storage.ExtraFeeRule{
		{Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypeFrom, Value: "1", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5")},
		{Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypePhenomenon, Value: "1", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5")},
		{Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "abc", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5")},
		{Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "1", Vehicle: domain.VehicleUnknown, Fee: amount(t, "0.5")},
		{Metric: domain.MetricWindSpeed, ValueType: domain.ValueTypeFrom, Value: "1", Vehicle: domain.VehicleBike, Fee: amount(t, "-0.5")},
	}
	for i, rule := range cases {
		conflict := conflictOf(t, validateNumericRule(rule, nil))
		if conflict.Error() != "Invalid rule parameter(s)" {
			t.Fatalf("case %d: unexpected message %q", i, conflict.Error())
		}
	}
}

func TestValidatePhenomenonRuleDuplicateLiteralCaseInsensitive(t *testing.T) {
	active := []storage.ExtraFeeRule{
		{ID: 20, Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypePhenomenon, Value: "Glaze", Vehicle: domain.VehicleBike, Fee: nil, ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypePhenomenon, Value: "glaze", Vehicle: domain.VehicleBike, Fee: amount(t, "1.0"), ValidFrom: testTime}

	conflict := conflictOf(t, validatePhenomenonRule(rule, active))
	if conflict.ConflictID != 20 {
		t.Fatalf("conflict should name rule 20, got %d", conflict.ConflictID)
	}
}

func TestValidatePhenomenonRuleDistinctLiteral(t *testing.T) {
	active := []storage.ExtraFeeRule{
		{ID: 21, Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypePhenomenon, Value: "Hail", Vehicle: domain.VehicleBike, Fee: nil, ValidFrom: testTime.Add(-time.Hour)},
	}
	rule := storage.ExtraFeeRule{Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypePhenomenon, Value: "Light rain", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime}

	if err := validatePhenomenonRule(rule, active); err != nil {
		t.Fatalf("distinct literals must coexist, got %v", err)
	}
}

func TestValidatePhenomenonRuleRejectsEmptyLiteral(t *testing.T) {
	rule := storage.ExtraFeeRule{Metric: domain.MetricPhenomenon, ValueType: domain.ValueTypePhenomenon, Value: "", Vehicle: domain.VehicleBike, Fee: amount(t, "0.5"), ValidFrom: testTime}
	conflict := conflictOf(t, validatePhenomenonRule(rule, nil))
	if conflict.Error() != "Invalid rule parameter(s)" {
		t.Fatalf("unexpected message %q", conflict.Error())
	}
}
