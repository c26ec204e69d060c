package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	// database drivers selectable via Config.Driver
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"progresskit/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Config holds SQL storage configuration
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		DSN:             "",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the engine.Storage interface over a SQL database.
// Tables:
//   - learner_progress (learner_id PK, snapshot JSON, updated_at)
//   - ledger_transactions (id PK, learner_id, tx_type, status, amount,
//     payment_method, points_earned, points_used, discount_amount, created_at)
//
// The aggregate snapshot is stored as one JSON document so a save is a
// single-row upsert; transactions are append-only rows.
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New opens a database connection from configuration.
func New(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("sql storage requires a DSN")
	}
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return &Store{db: db, driver: cfg.Driver}, nil
}

// NewWithDB creates a Store using an existing sqlx handle (useful for testing)
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the storage tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	snapshotType := "JSONB"
	if s.driver == DriverMySQL {
		snapshotType = "JSON"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS learner_progress (
			learner_id VARCHAR(255) PRIMARY KEY,
			snapshot %s NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, snapshotType),
		`CREATE TABLE IF NOT EXISTS ledger_transactions (
			id VARCHAR(64) PRIMARY KEY,
			learner_id VARCHAR(255) NOT NULL,
			tx_type VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			payment_method VARCHAR(32),
			points_earned BIGINT,
			points_used BIGINT,
			discount_amount DOUBLE PRECISION,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// LoadProgress fetches the aggregate snapshot, or a zero-valued one for a
// learner with no persisted row.
func (s *Store) LoadProgress(ctx context.Context, learner core.LearnerID) (*core.Progress, error) {
	var raw []byte
	query := s.db.Rebind(`SELECT snapshot FROM learner_progress WHERE learner_id = ?`)
	err := s.db.QueryRowxContext(ctx, query, learner).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewProgress(learner), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	var p core.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, nil
}

// SaveProgress upserts the aggregate snapshot in a transaction.
func (s *Store) SaveProgress(ctx context.Context, p *core.Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	existsQuery := tx.Rebind(`SELECT EXISTS (SELECT 1 FROM learner_progress WHERE learner_id = ?)`)
	if err := tx.QueryRowxContext(ctx, existsQuery, p.Learner).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check progress row: %w", err)
	}

	if exists {
		update := tx.Rebind(`UPDATE learner_progress SET snapshot = ?, updated_at = ? WHERE learner_id = ?`)
		if _, err := tx.ExecContext(ctx, update, raw, p.Updated, p.Learner); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
	} else {
		insert := tx.Rebind(`INSERT INTO learner_progress (learner_id, snapshot, updated_at) VALUES (?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insert, p.Learner, raw, p.Updated); err != nil {
			return fmt.Errorf("failed to insert progress: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress: %w", err)
	}
	return nil
}

// AppendTransaction inserts an append-only ledger transaction row.
func (s *Store) AppendTransaction(ctx context.Context, t core.Transaction) error {
	insert := s.db.Rebind(`INSERT INTO ledger_transactions
		(id, learner_id, tx_type, status, amount, payment_method, points_earned, points_used, discount_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, insert,
		t.ID, t.Learner, t.Type, t.Status, t.Amount,
		nullString(string(t.PaymentMethod)), t.PointsEarned, t.PointsUsed, t.DiscountAmount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Transactions returns the learner's transaction rows in append order.
func (s *Store) Transactions(ctx context.Context, learner core.LearnerID) ([]core.Transaction, error) {
	query := s.db.Rebind(`SELECT id, learner_id, tx_type, status, amount, payment_method, points_earned, points_used, discount_amount, created_at
		FROM ledger_transactions WHERE learner_id = ? ORDER BY created_at`)
	rows, err := s.db.QueryxContext(ctx, query, learner)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t      core.Transaction
			method sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Learner, &t.Type, &t.Status, &t.Amount,
			&method, &t.PointsEarned, &t.PointsUsed, &t.DiscountAmount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if method.Valid {
			t.PaymentMethod = core.PaymentMethod(method.String)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
