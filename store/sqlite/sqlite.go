/*
Package sqlite provides SQLite-backed storage for tariff configuration.

PURPOSE:
  Persists the configuration a consolidation run consumes: rate policies
  (as their JSON definitions) and holiday-date overrides. Batch results are
  never stored here; a run's output lives in the workbook it produces.

KEY TABLES:
  policies:  Tariff definitions, versioned on every save
  holidays:  Override holiday dates, replacing the computed calendar

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/tariffs.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  policies, err := store.ListPolicies(ctx)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - factory/policy.go: JSON tariff schema
  - tariff/registry.go: In-memory policy selection
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/groundside/shift-engine/billing"
	"github.com/groundside/shift-engine/factory"
)

// Store persists tariff policies and holiday overrides.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.PolicyFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, factory: factory.NewPolicyFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Tariff policies, stored as their JSON definitions
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		operator TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_operator
		ON policies(operator);

	-- Holiday overrides (replace the computed calendar when present)
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// POLICY STORE
// =============================================================================

// PolicyRecord is a stored tariff with its JSON definition.
type PolicyRecord struct {
	ID         string
	Name       string
	Operator   string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SavePolicy stores a rate policy, bumping the version when it already
// exists.
func (s *Store) SavePolicy(ctx context.Context, p *billing.RatePolicy, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO policies (id, name, operator, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			operator = excluded.operator,
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		string(p.ID), p.Name, string(p.Operator), configJSON, now, now,
	)
	return err
}

// GetPolicy retrieves a policy by ID. Returns nil when absent.
func (s *Store) GetPolicy(ctx context.Context, id billing.PolicyID) (*billing.RatePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policies WHERE id = ?",
		string(id),
	).Scan(&configJSON)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s.factory.ParsePolicy(configJSON)
}

// ListPolicies returns every stored policy, parsed.
func (s *Store) ListPolicies(ctx context.Context) ([]*billing.RatePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, config_json FROM policies ORDER BY operator, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*billing.RatePolicy
	for rows.Next() {
		var id, configJSON string
		if err := rows.Scan(&id, &configJSON); err != nil {
			return nil, err
		}
		p, err := s.factory.ParsePolicy(configJSON)
		if err != nil {
			return nil, fmt.Errorf("stored policy %s: %w", id, err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// ListPolicyRecords returns stored policy metadata without parsing.
func (s *Store) ListPolicyRecords(ctx context.Context) ([]PolicyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, operator, config_json, version, created_at, updated_at FROM policies ORDER BY operator, name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PolicyRecord
	for rows.Next() {
		var r PolicyRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.Name, &r.Operator, &r.ConfigJSON, &r.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeletePolicy removes a policy.
func (s *Store) DeletePolicy(ctx context.Context, id billing.PolicyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM policies WHERE id = ?", string(id))
	return err
}

// LoadRegistry builds a tariff registry from every stored policy. The
// caller layers built-in presets on top as needed.
func (s *Store) LoadRegistry(ctx context.Context, register func(*billing.RatePolicy)) error {
	policies, err := s.ListPolicies(ctx)
	if err != nil {
		return err
	}
	for _, p := range policies {
		register(p)
	}
	return nil
}

// =============================================================================
// HOLIDAY OVERRIDE STORE
// =============================================================================

// Holiday is one stored override date.
type Holiday struct {
	Date time.Time
	Name string
}

// SaveHoliday stores an override date.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (date, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		billing.DayKey(h.Date), h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DeleteHoliday removes an override date.
func (s *Store) DeleteHoliday(ctx context.Context, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE date = ?", billing.DayKey(date))
	return err
}

// ListHolidays returns every stored override date, ordered.
func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT date, name FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var dateStr, name string
		if err := rows.Scan(&dateStr, &name); err != nil {
			return nil, err
		}
		t, err := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}
		holidays = append(holidays, Holiday{Date: t, Name: name})
	}
	return holidays, rows.Err()
}

// HolidaySet returns the stored override dates as a billing set, empty when
// no overrides are stored.
func (s *Store) HolidaySet(ctx context.Context) (billing.HolidaySet, error) {
	holidays, err := s.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return billing.NewHolidaySet(dates...), nil
}
