package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/signalsfoundry/gridgen/model"
)

// PostgresStore persists scenarios and validation results as JSON documents.
// Schema:
//
//	CREATE TABLE scenarios (
//	    id         TEXT PRIMARY KEY,
//	    doc        JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE validation_results (
//	    scenario_id TEXT PRIMARY KEY REFERENCES scenarios(id),
//	    doc         JSONB NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle. The caller owns the handle
// and its lifecycle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a connection pool against dsn and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

// AddScenario inserts a scenario document, refusing duplicates.
func (s *PostgresStore) AddScenario(ctx context.Context, sc *model.Scenario) error {
	if sc == nil || sc.Key() == "" {
		return fmt.Errorf("%w: scenario key is required", ErrScenarioNotFound)
	}
	doc, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario %q: %w", sc.Key(), err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, doc, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		sc.Key(), doc, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert scenario %q: %w", sc.Key(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrScenarioExists, sc.Key())
	}
	return nil
}

// GetScenario loads one scenario document by id.
func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM scenarios WHERE id = $1`, id,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query scenario %q: %w", id, err)
	}

	var sc model.Scenario
	if err := json.Unmarshal(doc, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario %q: %w", id, err)
	}
	return &sc, nil
}

// ListScenarios returns all stored scenarios ordered by id.
func (s *PostgresStore) ListScenarios(ctx context.Context) ([]*model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM scenarios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []*model.Scenario
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sc model.Scenario
		if err := json.Unmarshal(doc, &sc); err != nil {
			return nil, fmt.Errorf("decode scenario row: %w", err)
		}
		out = append(out, &sc)
	}
	return out, rows.Err()
}

// RecordResult upserts the latest validation result for a scenario.
func (s *PostgresStore) RecordResult(ctx context.Context, r model.ValidationResult) error {
	if r.ScenarioID == "" {
		return fmt.Errorf("%w: result without scenario_id", ErrResultNotFound)
	}
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result for %q: %w", r.ScenarioID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO validation_results (scenario_id, doc, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (scenario_id) DO UPDATE SET doc = $2, created_at = $3`,
		r.ScenarioID, doc, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record result for %q: %w", r.ScenarioID, err)
	}
	return nil
}

// GetResult loads the latest validation result for scenarioID.
func (s *PostgresStore) GetResult(ctx context.Context, scenarioID string) (*model.ValidationResult, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM validation_results WHERE scenario_id = $1`, scenarioID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", ErrResultNotFound, scenarioID)
	}
	if err != nil {
		return nil, fmt.Errorf("query result for %q: %w", scenarioID, err)
	}

	var r model.ValidationResult
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, fmt.Errorf("decode result for %q: %w", scenarioID, err)
	}
	return &r, nil
}

var _ Store = (*Library)(nil)
var _ Store = (*PostgresStore)(nil)
