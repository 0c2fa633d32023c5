package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

type fakeStore struct {
	baseRules  []storage.BaseFeeRule
	extraRules []storage.ExtraFeeRule
	nextID     int64
}

func (f *fakeStore) assignID() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) InsertBaseRule(ctx context.Context, rule storage.BaseFeeRule) (storage.BaseFeeRule, error) {
	rule.ID = f.assignID()
	f.baseRules = append(f.baseRules, rule)
	return rule, nil
}

func (f *fakeStore) EffectiveBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (*storage.BaseFeeRule, error) {
	var best *storage.BaseFeeRule
	for i := range f.baseRules {
		rule := &f.baseRules[i]
		if rule.City != city || rule.Vehicle != vehicle || rule.ValidFrom.After(at) {
			continue
		}
		if best == nil || rule.ValidFrom.After(best.ValidFrom) {
			best = rule
		}
	}
	return best, nil
}

func (f *fakeStore) ListBaseRules(ctx context.Context) ([]storage.BaseFeeRule, error) {
	return f.baseRules, nil
}

func (f *fakeStore) InsertExtraRule(ctx context.Context, rule storage.ExtraFeeRule) (storage.ExtraFeeRule, error) {
	rule.ID = f.assignID()
	f.extraRules = append(f.extraRules, rule)
	return rule, nil
}

func (f *fakeStore) EffectiveExtraRules(ctx context.Context, vehicle domain.VehicleType, at time.Time) ([]storage.ExtraFeeRule, error) {
	var active []storage.ExtraFeeRule
	for _, rule := range f.extraRules {
		if rule.Vehicle == vehicle && rule.ActiveAt(at) {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (f *fakeStore) ListExtraRules(ctx context.Context) ([]storage.ExtraFeeRule, error) {
	return f.extraRules, nil
}

func (f *fakeStore) DisableExtraRule(ctx context.Context, id int64, at time.Time) error {
	for i := range f.extraRules {
		if f.extraRules[i].ID != id {
			continue
		}
		if f.extraRules[i].ValidUntil != nil {
			return storage.ErrRuleAlreadyDisabled
		}
		until := at
		f.extraRules[i].ValidUntil = &until
		return nil
	}
	return storage.ErrRuleNotFound
}

func (f *fakeStore) ReplaceAllRules(ctx context.Context, base []storage.BaseFeeRule, extra []storage.ExtraFeeRule) error {
	f.baseRules = nil
	f.extraRules = nil
	for _, rule := range base {
		if _, err := f.InsertBaseRule(ctx, rule); err != nil {
			return err
		}
	}
	for _, rule := range extra {
		if _, err := f.InsertExtraRule(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) CountRules(ctx context.Context) (int64, error) {
	return int64(len(f.baseRules) + len(f.extraRules)), nil
}

func newTestManager(store *fakeStore) *Manager {
	m := NewManager(store, store, store, zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m
}

func TestAddBaseRuleSupersedesOlderVersion(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	first, err := manager.AddBaseRule(ctx, domain.CityTallinn, domain.VehicleBike, amount(t, "3.0"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second, err := manager.AddBaseRule(ctx, domain.CityTallinn, domain.VehicleBike, amount(t, "3.2"))
	if err != nil {
		t.Fatalf("second insert should supersede: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("supersession must create a new row")
	}

	current, err := manager.CurrentBaseRule(ctx, domain.CityTallinn, domain.VehicleBike)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current == nil || current.ID != second.ID {
		t.Fatalf("newest version should be effective, got %+v", current)
	}
	if len(store.baseRules) != 2 {
		t.Fatalf("history must keep both versions, got %d", len(store.baseRules))
	}
}

func TestAddNumericRuleFormatsThreshold(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)

	rule, err := manager.AddNumericRule(context.Background(), domain.MetricAirTemp, domain.ValueTypeUntil, -10.5, domain.VehicleBike, amount(t, "1.0"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rule.Value != "-10.5" {
		t.Fatalf("threshold should round-trip as text, got %q", rule.Value)
	}
}

func TestAddNumericRuleRejectsConflict(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	if _, err := manager.AddNumericRule(ctx, domain.MetricWindSpeed, domain.ValueTypeFrom, 10, domain.VehicleBike, amount(t, "0.5")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err := manager.AddNumericRule(ctx, domain.MetricWindSpeed, domain.ValueTypeFrom, 10, domain.VehicleBike, amount(t, "1.0"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("duplicate threshold must conflict, got %v", err)
	}
	if len(store.extraRules) != 1 {
		t.Fatalf("rejected rule must not be stored, got %d rules", len(store.extraRules))
	}
}

func TestAddPhenomenonRuleAfterDisableSucceeds(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	first, err := manager.AddPhenomenonRule(ctx, "Glaze", domain.VehicleBike, nil)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}

	if _, err := manager.AddPhenomenonRule(ctx, "Glaze", domain.VehicleBike, nil); err == nil {
		t.Fatal("duplicate literal must conflict while active")
	}

	if err := manager.DisableRule(ctx, first.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := manager.AddPhenomenonRule(ctx, "Glaze", domain.VehicleBike, nil); err != nil {
		t.Fatalf("literal freed by disable should insert, got %v", err)
	}
}

func TestDisableRuleErrors(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	if err := manager.DisableRule(ctx, 42); !errors.Is(err, storage.ErrRuleNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	rule, err := manager.AddPhenomenonRule(ctx, "Hail", domain.VehicleBike, nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := manager.DisableRule(ctx, rule.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := manager.DisableRule(ctx, rule.ID); !errors.Is(err, storage.ErrRuleAlreadyDisabled) {
		t.Fatalf("expected already disabled, got %v", err)
	}
}

func TestResetDefaultsInstallsFullTable(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	if _, err := manager.AddPhenomenonRule(ctx, "Fog", domain.VehicleBike, amount(t, "0.5")); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	if err := manager.ResetDefaults(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if len(store.baseRules) != 9 {
		t.Fatalf("expected 9 default base rules, got %d", len(store.baseRules))
	}
	if len(store.extraRules) != 26 {
		t.Fatalf("expected 26 default extra rules, got %d", len(store.extraRules))
	}
	for _, rule := range store.extraRules {
		if rule.Value == "Fog" {
			t.Fatal("reset must drop pre-existing rules")
		}
	}
}

func TestEnsureDefaultsOnlyWhenEmpty(t *testing.T) {
	store := &fakeStore{}
	manager := newTestManager(store)
	ctx := context.Background()

	if err := manager.EnsureDefaults(ctx); err != nil {
		t.Fatalf("ensure on empty store: %v", err)
	}
	if len(store.baseRules) == 0 {
		t.Fatal("defaults should be installed on an empty store")
	}

	rule, err := manager.AddPhenomenonRule(ctx, "Mist", domain.VehicleScooter, amount(t, "0.5"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := manager.EnsureDefaults(ctx); err != nil {
		t.Fatalf("ensure on populated store: %v", err)
	}
	found := false
	for _, existing := range store.extraRules {
		if existing.ID == rule.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("ensure must not clobber a populated store")
	}
}
