package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"courier-fees/internal/domain"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrRuleNotFound indicates no rule exists with the given ID.
	ErrRuleNotFound = errors.New("storage: rule not found")
	// ErrRuleAlreadyDisabled indicates the rule's valid-until is already set.
	ErrRuleAlreadyDisabled = errors.New("storage: rule already disabled")
)

const (
	insertBaseRuleSQL = `INSERT INTO base_fee_rules (
        city,
        vehicle,
        fee,
        valid_from
    ) VALUES ($1,$2,$3,$4)
    RETURNING id;`

	effectiveBaseRuleSQL = `SELECT
        id, city, vehicle, fee, valid_from
    FROM base_fee_rules
    WHERE city = $1
      AND vehicle = $2
      AND valid_from <= $3
    ORDER BY valid_from DESC
    LIMIT 1;`

	listBaseRulesSQL = `SELECT
        id, city, vehicle, fee, valid_from
    FROM base_fee_rules
    ORDER BY valid_from DESC, id DESC;`

	insertExtraRuleSQL = `INSERT INTO extra_fee_rules (
        metric,
        value_type,
        value,
        vehicle,
        fee,
        valid_from,
        valid_until
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id;`

	effectiveExtraRulesSQL = `SELECT
        id, metric, value_type, value, vehicle, fee, valid_from, valid_until
    FROM extra_fee_rules
    WHERE vehicle = $1
      AND valid_from <= $2
      AND (valid_until IS NULL OR valid_until > $2)
    ORDER BY id;`

	listExtraRulesSQL = `SELECT
        id, metric, value_type, value, vehicle, fee, valid_from, valid_until
    FROM extra_fee_rules
    ORDER BY valid_from DESC, id DESC;`

	selectExtraRuleUntilSQL = `SELECT valid_until FROM extra_fee_rules WHERE id = $1;`

	disableExtraRuleSQL = `UPDATE extra_fee_rules
    SET valid_until = $2
    WHERE id = $1
      AND valid_until IS NULL;`

	deleteBaseRulesSQL  = `DELETE FROM base_fee_rules;`
	deleteExtraRulesSQL = `DELETE FROM extra_fee_rules;`

	countRulesSQL = `SELECT
        (SELECT COUNT(*) FROM base_fee_rules) + (SELECT COUNT(*) FROM extra_fee_rules);`

	insertObservationSQL = `INSERT INTO weather_observations (
        station_wmo,
        station_name,
        air_temp,
        wind_speed,
        phenomenon,
        observed_at
    ) VALUES ($1,$2,$3,$4,$5,$6)
    ON CONFLICT (station_wmo, observed_at) DO NOTHING;`

	observationAtSQL = `SELECT
        station_wmo, station_name, air_temp, wind_speed, phenomenon, observed_at, created_at
    FROM weather_observations
    WHERE station_wmo = $1
      AND observed_at <= $2
    ORDER BY observed_at DESC
    LIMIT 1;`

	listObservationsBetweenSQL = `SELECT
        station_wmo, station_name, air_temp, wind_speed, phenomenon, observed_at, created_at
    FROM weather_observations
    WHERE station_wmo = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY observed_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// BaseFeeRuleStore defines operations for base fee rule persistence.
type BaseFeeRuleStore interface {
	InsertBaseRule(ctx context.Context, rule BaseFeeRule) (BaseFeeRule, error)
	EffectiveBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (*BaseFeeRule, error)
	ListBaseRules(ctx context.Context) ([]BaseFeeRule, error)
}

// ExtraFeeRuleStore defines operations for extra fee rule persistence.
type ExtraFeeRuleStore interface {
	InsertExtraRule(ctx context.Context, rule ExtraFeeRule) (ExtraFeeRule, error)
	EffectiveExtraRules(ctx context.Context, vehicle domain.VehicleType, at time.Time) ([]ExtraFeeRule, error)
	ListExtraRules(ctx context.Context) ([]ExtraFeeRule, error)
	DisableExtraRule(ctx context.Context, id int64, at time.Time) error
}

// RuleResetStore defines the destructive bulk operations behind resets.
type RuleResetStore interface {
	ReplaceAllRules(ctx context.Context, base []BaseFeeRule, extra []ExtraFeeRule) error
	CountRules(ctx context.Context) (int64, error)
}

// WeatherObservationStore defines operations for observation persistence.
type WeatherObservationStore interface {
	InsertObservations(ctx context.Context, observations []WeatherObservation) error
	ObservationAt(ctx context.Context, stationWMO int, at time.Time) (*WeatherObservation, error)
	ListObservationsBetween(ctx context.Context, stationWMO int, from, to time.Time) ([]WeatherObservation, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// InsertBaseRule appends a new base fee rule version and returns it with its
// allocated ID. Conflict validation is the caller's responsibility.
func (s *Store) InsertBaseRule(ctx context.Context, rule BaseFeeRule) (BaseFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return BaseFeeRule{}, err
	}

	row := pool.QueryRow(ctx, insertBaseRuleSQL,
		rule.City.String(),
		rule.Vehicle.String(),
		feeParam(rule.Fee),
		rule.ValidFrom,
	)
	if err := row.Scan(&rule.ID); err != nil {
		return BaseFeeRule{}, fmt.Errorf("insert base rule: %w", err)
	}
	return rule, nil
}

// EffectiveBaseRule returns the base rule with the greatest valid-from at or
// before the reference time for the (city, vehicle) pair, or nil if none.
func (s *Store) EffectiveBaseRule(ctx context.Context, city domain.City, vehicle domain.VehicleType, at time.Time) (*BaseFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, effectiveBaseRuleSQL, city.String(), vehicle.String(), at)
	rule, err := scanBaseRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("effective base rule: %w", err)
	}
	return &rule, nil
}

// ListBaseRules returns the full base rule history, newest first.
func (s *Store) ListBaseRules(ctx context.Context) ([]BaseFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listBaseRulesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list base rules: %w", queryErr)
	}
	defer rows.Close()

	rules := make([]BaseFeeRule, 0)
	for rows.Next() {
		rule, scanErr := scanBaseRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// InsertExtraRule appends a new extra fee rule and returns it with its
// allocated ID. Conflict validation is the caller's responsibility.
func (s *Store) InsertExtraRule(ctx context.Context, rule ExtraFeeRule) (ExtraFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return ExtraFeeRule{}, err
	}

	row := pool.QueryRow(ctx, insertExtraRuleSQL,
		rule.Metric.String(),
		rule.ValueType.String(),
		rule.Value,
		rule.Vehicle.String(),
		feeParam(rule.Fee),
		rule.ValidFrom,
		untilParam(rule.ValidUntil),
	)
	if err := row.Scan(&rule.ID); err != nil {
		return ExtraFeeRule{}, fmt.Errorf("insert extra rule: %w", err)
	}
	return rule, nil
}

// EffectiveExtraRules returns the extra rules for the vehicle whose validity
// interval contains the reference time.
func (s *Store) EffectiveExtraRules(ctx context.Context, vehicle domain.VehicleType, at time.Time) ([]ExtraFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, effectiveExtraRulesSQL, vehicle.String(), at)
	if queryErr != nil {
		return nil, fmt.Errorf("effective extra rules: %w", queryErr)
	}
	defer rows.Close()

	rules := make([]ExtraFeeRule, 0)
	for rows.Next() {
		rule, scanErr := scanExtraRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// ListExtraRules returns the full extra rule history, newest first.
func (s *Store) ListExtraRules(ctx context.Context) ([]ExtraFeeRule, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listExtraRulesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list extra rules: %w", queryErr)
	}
	defer rows.Close()

	rules := make([]ExtraFeeRule, 0)
	for rows.Next() {
		rule, scanErr := scanExtraRule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

// DisableExtraRule soft-disables the rule by setting its valid-until to at.
func (s *Store) DisableExtraRule(ctx context.Context, id int64, at time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	cmdTag, execErr := pool.Exec(ctx, disableExtraRuleSQL, id, at)
	if execErr != nil {
		return fmt.Errorf("disable extra rule: %w", execErr)
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var until *time.Time
	if scanErr := pool.QueryRow(ctx, selectExtraRuleUntilSQL, id).Scan(&until); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return ErrRuleNotFound
		}
		return fmt.Errorf("disable extra rule: %w", scanErr)
	}
	return ErrRuleAlreadyDisabled
}

// ReplaceAllRules atomically swaps the entire rule set. Destructive.
func (s *Store) ReplaceAllRules(ctx context.Context, base []BaseFeeRule, extra []ExtraFeeRule) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace rules: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteExtraRulesSQL); err != nil {
		return fmt.Errorf("clear extra rules: %w", err)
	}
	if _, err := tx.Exec(ctx, deleteBaseRulesSQL); err != nil {
		return fmt.Errorf("clear base rules: %w", err)
	}

	for _, rule := range base {
		if _, err := tx.Exec(ctx, insertBaseRuleSQL,
			rule.City.String(),
			rule.Vehicle.String(),
			feeParam(rule.Fee),
			rule.ValidFrom,
		); err != nil {
			return fmt.Errorf("insert default base rule: %w", err)
		}
	}
	for _, rule := range extra {
		if _, err := tx.Exec(ctx, insertExtraRuleSQL,
			rule.Metric.String(),
			rule.ValueType.String(),
			rule.Value,
			rule.Vehicle.String(),
			feeParam(rule.Fee),
			rule.ValidFrom,
			untilParam(rule.ValidUntil),
		); err != nil {
			return fmt.Errorf("insert default extra rule: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// CountRules counts rules across both collections.
func (s *Store) CountRules(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRulesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count rules: %w", scanErr)
	}
	return count, nil
}

// InsertObservations persists a batch of station readings. Re-imports of the
// same (station, timestamp) are ignored.
func (s *Store) InsertObservations(ctx context.Context, observations []WeatherObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, obs := range observations {
		if _, execErr := pool.Exec(ctx, insertObservationSQL,
			obs.StationWMO,
			obs.StationName,
			obs.AirTemp,
			obs.WindSpeed,
			obs.Phenomenon,
			obs.ObservedAt,
		); execErr != nil {
			return fmt.Errorf("insert observation: %w", execErr)
		}
	}
	return nil
}

// ObservationAt returns the most recent observation for the station at or
// before the reference time, or nil if none exists.
func (s *Store) ObservationAt(ctx context.Context, stationWMO int, at time.Time) (*WeatherObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, observationAtSQL, stationWMO, at)
	obs, err := scanObservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("observation at: %w", err)
	}
	return &obs, nil
}

// ListObservationsBetween lists a station's observations within a time window.
func (s *Store) ListObservationsBetween(ctx context.Context, stationWMO int, from, to time.Time) ([]WeatherObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listObservationsBetweenSQL, stationWMO, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations between: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]WeatherObservation, 0)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

func feeParam(fee *decimal.Decimal) interface{} {
	if fee == nil {
		return nil
	}
	return fee.String()
}

func untilParam(until *time.Time) interface{} {
	if until == nil {
		return nil
	}
	return *until
}

func scanBaseRule(row pgx.Row) (BaseFeeRule, error) {
	var (
		rule    BaseFeeRule
		city    string
		vehicle string
		fee     sql.NullString
	)

	if err := row.Scan(&rule.ID, &city, &vehicle, &fee, &rule.ValidFrom); err != nil {
		return BaseFeeRule{}, err
	}

	rule.City = domain.ParseCity(city)
	if !rule.City.Known() {
		return BaseFeeRule{}, fmt.Errorf("base rule %d: unknown city %q", rule.ID, city)
	}
	rule.Vehicle = domain.ParseVehicleType(vehicle)
	if !rule.Vehicle.Known() {
		return BaseFeeRule{}, fmt.Errorf("base rule %d: unknown vehicle %q", rule.ID, vehicle)
	}

	if fee.Valid {
		amount, err := decimal.NewFromString(fee.String)
		if err != nil {
			return BaseFeeRule{}, fmt.Errorf("base rule %d: parse fee: %w", rule.ID, err)
		}
		rule.Fee = &amount
	}
	return rule, nil
}

func scanExtraRule(row pgx.Row) (ExtraFeeRule, error) {
	var (
		rule      ExtraFeeRule
		metric    string
		valueType string
		vehicle   string
		fee       sql.NullString
	)

	if err := row.Scan(&rule.ID, &metric, &valueType, &rule.Value, &vehicle, &fee, &rule.ValidFrom, &rule.ValidUntil); err != nil {
		return ExtraFeeRule{}, err
	}

	rule.Metric = domain.ParseMetric(metric)
	if rule.Metric == domain.MetricUnknown {
		return ExtraFeeRule{}, fmt.Errorf("extra rule %d: unknown metric %q", rule.ID, metric)
	}
	rule.ValueType = domain.ParseValueType(valueType)
	if rule.ValueType == domain.ValueTypeUnknown {
		return ExtraFeeRule{}, fmt.Errorf("extra rule %d: unknown value type %q", rule.ID, valueType)
	}
	rule.Vehicle = domain.ParseVehicleType(vehicle)
	if !rule.Vehicle.Known() {
		return ExtraFeeRule{}, fmt.Errorf("extra rule %d: unknown vehicle %q", rule.ID, vehicle)
	}

	if fee.Valid {
		amount, err := decimal.NewFromString(fee.String)
		if err != nil {
			return ExtraFeeRule{}, fmt.Errorf("extra rule %d: parse fee: %w", rule.ID, err)
		}
		rule.Fee = &amount
	}
	return rule, nil
}

func scanObservation(row pgx.Row) (WeatherObservation, error) {
	var obs WeatherObservation
	if err := row.Scan(
		&obs.StationWMO,
		&obs.StationName,
		&obs.AirTemp,
		&obs.WindSpeed,
		&obs.Phenomenon,
		&obs.ObservedAt,
		&obs.CreatedAt,
	); err != nil {
		return WeatherObservation{}, err
	}
	return obs, nil
}
