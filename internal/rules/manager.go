package rules

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
	"courier-fees/internal/storage"
)

// Manager owns rule lifecycle: validated inserts, soft-disable, reset to the
// built-in defaults, and history listings. The validate-then-insert path is a
// critical section; Manager serialises it so two concurrent inserts cannot
// both pass validation against a stale snapshot.
type Manager struct {
	base   storage.BaseFeeRuleStore
	extra  storage.ExtraFeeRuleStore
	reset  storage.RuleResetStore
	logger zerolog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewManager constructs a rule manager.
func NewManager(base storage.BaseFeeRuleStore, extra storage.ExtraFeeRuleStore, reset storage.RuleResetStore, logger zerolog.Logger) *Manager {
	return &Manager{
		base:   base,
		extra:  extra,
		reset:  reset,
		logger: logger.With().Str("component", "rules").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddBaseRule appends a new base fee rule version effective immediately.
// A nil fee records a prohibition.
func (m *Manager) AddBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.BaseFeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule := storage.BaseFeeRule{
		City:      city,
		Vehicle:   vehicle,
		Fee:       amount,
		ValidFrom: m.now(),
	}

	current, err := m.base.EffectiveBaseRule(ctx, city, vehicle, rule.ValidFrom)
	if err != nil {
		return storage.BaseFeeRule{}, err
	}
	if err := validateBaseRule(rule, current); err != nil {
		return storage.BaseFeeRule{}, err
	}

	inserted, err := m.base.InsertBaseRule(ctx, rule)
	if err != nil {
		return storage.BaseFeeRule{}, err
	}

	m.logger.Info().Int64("rule_id", inserted.ID).
		Str("city", city.String()).
		Str("vehicle", vehicle.String()).
		Msg("base fee rule added")
	return inserted, nil
}

// AddNumericRule inserts a FROM/UNTIL threshold rule effective immediately.
func (m *Manager) AddNumericRule(ctx context.Context, metric domain.Metric, valueType domain.ValueType, threshold float64, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.ExtraFeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule := storage.ExtraFeeRule{
		Metric:    metric,
		ValueType: valueType,
		Value:     strconv.FormatFloat(threshold, 'f', -1, 64),
		Vehicle:   vehicle,
		Fee:       amount,
		ValidFrom: m.now(),
	}

	active, err := m.extra.EffectiveExtraRules(ctx, vehicle, rule.ValidFrom)
	if err != nil {
		return storage.ExtraFeeRule{}, err
	}
	if err := validateNumericRule(rule, active); err != nil {
		return storage.ExtraFeeRule{}, err
	}

	inserted, err := m.extra.InsertExtraRule(ctx, rule)
	if err != nil {
		return storage.ExtraFeeRule{}, err
	}

	m.logger.Info().Int64("rule_id", inserted.ID).
		Str("metric", metric.String()).
		Str("value_type", valueType.String()).
		Str("vehicle", vehicle.String()).
		Msg("numeric extra fee rule added")
	return inserted, nil
}

// AddPhenomenonRule inserts a phenomenon literal rule effective immediately.
func (m *Manager) AddPhenomenonRule(ctx context.Context, literal string, vehicle domain.VehicleType, amount *decimal.Decimal) (storage.ExtraFeeRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule := storage.ExtraFeeRule{
		Metric:    domain.MetricPhenomenon,
		ValueType: domain.ValueTypePhenomenon,
		Value:     literal,
		Vehicle:   vehicle,
		Fee:       amount,
		ValidFrom: m.now(),
	}

	active, err := m.extra.EffectiveExtraRules(ctx, vehicle, rule.ValidFrom)
	if err != nil {
		return storage.ExtraFeeRule{}, err
	}
	if err := validatePhenomenonRule(rule, active); err != nil {
		return storage.ExtraFeeRule{}, err
	}

	inserted, err := m.extra.InsertExtraRule(ctx, rule)
	if err != nil {
		return storage.ExtraFeeRule{}, err
	}

	m.logger.Info().Int64("rule_id", inserted.ID).
		Str("vehicle", vehicle.String()).
		Msg("phenomenon extra fee rule added")
	return inserted, nil
}

// DisableRule soft-disables an extra fee rule by closing its validity
// interval now. History stays intact and past evaluations are unaffected.
func (m *Manager) DisableRule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.extra.DisableExtraRule(ctx, id, m.now()); err != nil {
		return err
	}
	m.logger.Info().Int64("rule_id", id).Msg("extra fee rule disabled")
	return nil
}

// ResetDefaults destructively replaces the whole rule set with the built-in
// default table. Not versioned.
func (m *Manager) ResetDefaults(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if err := m.reset.ReplaceAllRules(ctx, DefaultBaseRules(now), DefaultExtraRules(now)); err != nil {
		return err
	}
	m.logger.Info().Msg("fee rules reset to defaults")
	return nil
}

// EnsureDefaults installs the default rule set when both collections are
// empty, so a fresh deployment can serve fees immediately.
func (m *Manager) EnsureDefaults(ctx context.Context) error {
	count, err := m.reset.CountRules(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	m.logger.Info().Msg("no fee rules present; installing defaults")
	return m.ResetDefaults(ctx)
}

// CurrentBaseRule returns the base rule effective now for the pair, or nil.
func (m *Manager) CurrentBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType) (*storage.BaseFeeRule, error) {
	return m.base.EffectiveBaseRule(ctx, city, vehicle, m.now())
}

// CurrentExtraRules returns the extra rules effective now for the vehicle.
func (m *Manager) CurrentExtraRules(ctx context.Context, vehicle domain.VehicleType) ([]storage.ExtraFeeRule, error) {
	return m.extra.EffectiveExtraRules(ctx, vehicle, m.now())
}

// BaseRuleHistory returns all base rule versions, newest first.
func (m *Manager) BaseRuleHistory(ctx context.Context) ([]storage.BaseFeeRule, error) {
	return m.base.ListBaseRules(ctx)
}

// ExtraRuleHistory returns all extra rules ever recorded, newest first.
func (m *Manager) ExtraRuleHistory(ctx context.Context) ([]storage.ExtraFeeRule, error) {
	return m.extra.ListExtraRules(ctx)
}
