package blacklist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PostgresStore is the production Store backed by a blacklist table.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates the store and its schema. Schema creation is
// idempotent, so concurrent instances can start against the same database.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) (*PostgresStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blacklist (
			identifier  TEXT   PRIMARY KEY,
			inserted_at BIGINT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: create table: %w", err)
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_blacklist_inserted_at ON blacklist (inserted_at DESC)`)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: create index: %w", err)
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Add(ctx context.Context, identifier string) bool {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blacklist (identifier, inserted_at)
		VALUES ($1, $2)
		ON CONFLICT (identifier) DO UPDATE SET inserted_at = EXCLUDED.inserted_at`,
		identifier, time.Now().Unix(),
	)
	if err != nil {
		s.logger.Error("blacklist add failed",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *PostgresStore) Remove(ctx context.Context, identifier string) bool {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE identifier = $1`, identifier)
	if err != nil {
		s.logger.Error("blacklist remove failed",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *PostgresStore) Contains(ctx context.Context, identifier string) bool {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM blacklist WHERE identifier = $1`, identifier,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		// Fail open: a read fault is reported as "not blacklisted".
		s.logger.Error("blacklist contains failed",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *PostgresStore) List(ctx context.Context) []Entry {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, inserted_at
		FROM blacklist
		ORDER BY inserted_at DESC, identifier`)
	if err != nil {
		s.logger.Error("blacklist list failed", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Identifier, &e.InsertedAt); err != nil {
			s.logger.Error("blacklist list scan failed", zap.Error(err))
			return nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("blacklist list rows failed", zap.Error(err))
		return nil
	}
	return entries
}
