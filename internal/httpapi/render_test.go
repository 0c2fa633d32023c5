package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

type renderManager struct {
	fakeManager
	baseCurrent map[domain.City]map[domain.VehicleType]*storage.BaseFeeRule
	extraActive map[domain.VehicleType][]storage.ExtraFeeRule
	baseHistory []storage.BaseFeeRule
	extraHist   []storage.ExtraFeeRule
}

func (r *renderManager) CurrentBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType) (*storage.BaseFeeRule, error) {
	return r.baseCurrent[city][vehicle], nil
}

func (r *renderManager) CurrentExtraRules(ctx context.Context, vehicle domain.VehicleType) ([]storage.ExtraFeeRule, error) {
	return r.extraActive[vehicle], nil
}

func (r *renderManager) BaseRuleHistory(ctx context.Context) ([]storage.BaseFeeRule, error) {
	return r.baseHistory, nil
}

func (r *renderManager) ExtraRuleHistory(ctx context.Context) ([]storage.ExtraFeeRule, error) {
	return r.extraHist, nil
}

func feePtr(t *testing.T, v string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("bad fee literal %q: %v", v, err)
	}
	return &d
}

func TestModePrintRendersRuleTables(t *testing.T) {
	manager := &renderManager{
		baseCurrent: map[domain.City]map[domain.VehicleType]*storage.BaseFeeRule{
			domain.CityTallinn: {
				domain.VehicleCar: {ID: 1, City: domain.CityTallinn, Vehicle: domain.VehicleCar, Fee: feePtr(t, "4.0")},
			},
		},
		extraActive: map[domain.VehicleType][]storage.ExtraFeeRule{
			domain.VehicleBike: {
				{
					ID:        12,
					Metric:    domain.MetricWindSpeed,
					ValueType: domain.ValueTypeFrom,
					Value:     "20",
					Vehicle:   domain.VehicleBike,
					Fee:       nil,
				},
			},
		},
	}

	body := get(t, newTestServer(&fakeEvaluator{}, manager), "/getFee?mode=print").Body.String()

	for _, want := range []string{
		"BASE FEES",
		"EXTRA FEES",
		"<td>4.00</td>",
		// pairs without an effective rule show a dash
		"<td>-</td>",
		"windspeed from 20",
		"<b>forbidden</b>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("print output should contain %q\n%s", want, body)
		}
	}
}

func TestModeHistoryRendersEpochsAndOpenIntervals(t *testing.T) {
	validFrom := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := validFrom.Add(48 * time.Hour)
	manager := &renderManager{
		baseHistory: []storage.BaseFeeRule{
			{ID: 1, City: domain.CityTartu, Vehicle: domain.VehicleBike, Fee: feePtr(t, "2.5"), ValidFrom: validFrom},
		},
		extraHist: []storage.ExtraFeeRule{
			{
				ID:         2,
				Metric:     domain.MetricPhenomenon,
				ValueType:  domain.ValueTypePhenomenon,
				Value:      "Glaze & ice",
				Vehicle:    domain.VehicleBike,
				Fee:        feePtr(t, "1.0"),
				ValidFrom:  validFrom,
				ValidUntil: &until,
			},
			{
				ID:        3,
				Metric:    domain.MetricAirTemp,
				ValueType: domain.ValueTypeUntil,
				Value:     "0",
				Vehicle:   domain.VehicleScooter,
				Fee:       feePtr(t, "0.5"),
				ValidFrom: validFrom,
			},
		},
	}

	body := get(t, newTestServer(&fakeEvaluator{}, manager), "/getFee?mode=history").Body.String()

	for _, want := range []string{
		"<td>1767225600</td>",
		"<td>1767398400</td>",
		// still-active rule shows an open interval
		"<td><b>now</b></td>",
		// phenomenon literals are escaped
		"Glaze &amp; ice",
		"airtemp until 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("history output should contain %q\n%s", want, body)
		}
	}
}
