package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of ObservationRepository.
// Cached windows survive restarts, so repeated queries for the same period
// skip the upstream fetch entirely.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL observation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetWindow implements ObservationRepository.
func (r *PostgresRepository) GetWindow(ctx context.Context, start, end time.Time) ([]*Observation, error) {
	var windowID int64
	err := r.pool.QueryRow(ctx, `
		SELECT id
		FROM observation_windows
		WHERE window_start = $1 AND window_end = $2
	`, start.UTC(), end.UTC()).Scan(&windowID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotCached
		}
		return nil, fmt.Errorf("lookup window: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT station_id, obs_date, obs_hour, temperature, wind_speed, irradiation
		FROM observations
		WHERE window_id = $1
		ORDER BY obs_date, obs_hour, station_id
	`, windowID)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []*Observation
	for rows.Next() {
		var (
			obs         Observation
			temperature *float64
			windSpeed   *float64
			irradiation *float64
		)
		if err := rows.Scan(&obs.StationID, &obs.Date, &obs.Hour, &temperature, &windSpeed, &irradiation); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}

		obs.Values = make(map[Variable]float64, 3)
		if temperature != nil {
			obs.Values[VariableTemperature] = *temperature
		}
		if windSpeed != nil {
			obs.Values[VariableWindSpeed] = *windSpeed
		}
		if irradiation != nil {
			obs.Values[VariableIrradiation] = *irradiation
		}
		observations = append(observations, &obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return observations, nil
}

// SaveWindow implements ObservationRepository.
func (r *PostgresRepository) SaveWindow(ctx context.Context, start, end time.Time, observations []*Observation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var windowID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO observation_windows (window_start, window_end, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (window_start, window_end)
		DO UPDATE SET fetched_at = EXCLUDED.fetched_at
		RETURNING id
	`, start.UTC(), end.UTC(), time.Now().UTC()).Scan(&windowID)
	if err != nil {
		return fmt.Errorf("upsert window: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM observations WHERE window_id = $1`, windowID); err != nil {
		return fmt.Errorf("clear window rows: %w", err)
	}

	for _, obs := range observations {
		_, err := tx.Exec(ctx, `
			INSERT INTO observations (window_id, station_id, obs_date, obs_hour, temperature, wind_speed, irradiation)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, windowID, obs.StationID, obs.Date, obs.Hour,
			nullable(obs, VariableTemperature),
			nullable(obs, VariableWindSpeed),
			nullable(obs, VariableIrradiation),
		)
		if err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Purge implements ObservationRepository.
func (r *PostgresRepository) Purge(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM observation_windows`); err != nil {
		return fmt.Errorf("purge windows: %w", err)
	}
	return nil
}

// nullable returns the reading as a *float64 so missing values map to NULL.
func nullable(obs *Observation, v Variable) *float64 {
	if val, ok := obs.Values[v]; ok {
		return &val
	}
	return nil
}
