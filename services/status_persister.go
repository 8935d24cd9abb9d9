package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// StatusPersister is the durable tier of the status cache: one slot per user,
// replaced whole on every write. Load returns (nil, nil) on a miss.
type StatusPersister interface {
	Load(ctx context.Context, userID string) (*models.CacheEntry, error)
	Store(ctx context.Context, userID string, entry *models.CacheEntry) error
	Delete(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error)
}

// TransitionAuditor records observed status transitions for audit. Failures
// are logged and dropped; audit never blocks a status read.
type TransitionAuditor interface {
	RecordTransition(ctx context.Context, entry *models.StatusTransitionLog) error
}

// PostgresStatusPersister stores cache slots and transition audit rows in
// Postgres.
type PostgresStatusPersister struct {
	DB *sql.DB
}

// NewPostgresStatusPersister creates a Postgres-backed persister.
func NewPostgresStatusPersister(db *sql.DB) *PostgresStatusPersister {
	return &PostgresStatusPersister{DB: db}
}

// Load reads the persisted slot for a user. A corrupted payload is treated
// as a cache miss: the row is dropped and a warning logged, never an error.
func (p *PostgresStatusPersister) Load(ctx context.Context, userID string) (*models.CacheEntry, error) {
	query := `SELECT data, fetched_at FROM status_cache WHERE user_id = $1`

	var payload []byte
	var fetchedAt time.Time
	err := p.DB.QueryRowContext(ctx, query, userID).Scan(&payload, &fetchedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, shared.WrapError(err, shared.ErrorCategoryDatabase, "CACHE_LOAD_FAILED", "Load", true)
	}

	var snapshot models.ApplicationStatusSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "PostgresStatusPersister",
			"user_id":   userID,
			"cause":     err,
		}).Warn("Corrupted persisted status cache entry, treating as miss")
		if _, deleteErr := p.DB.ExecContext(ctx, `DELETE FROM status_cache WHERE user_id = $1`, userID); deleteErr != nil {
			logrus.WithField("component", "PostgresStatusPersister").Warnf("Failed to drop corrupted cache row: %v", deleteErr)
		}
		return nil, nil
	}

	return &models.CacheEntry{Snapshot: &snapshot, FetchedAt: fetchedAt}, nil
}

// Store upserts the slot for a user, replacing any previous payload.
func (p *PostgresStatusPersister) Store(ctx context.Context, userID string, entry *models.CacheEntry) error {
	payload, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryCache, "CACHE_ENCODE_FAILED", "Store", false)
	}

	query := `
		INSERT INTO status_cache (user_id, data, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			data = EXCLUDED.data,
			fetched_at = EXCLUDED.fetched_at
	`
	if _, err := p.DB.ExecContext(ctx, query, userID, payload, entry.FetchedAt); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "CACHE_STORE_FAILED", "Store", true)
	}
	return nil
}

// Delete drops the slot for a user unconditionally.
func (p *PostgresStatusPersister) Delete(ctx context.Context, userID string) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM status_cache WHERE user_id = $1`, userID); err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "CACHE_DELETE_FAILED", "Delete", true)
	}
	return nil
}

// DeleteExpired removes every slot older than the TTL and returns the number
// of rows dropped.
func (p *PostgresStatusPersister) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	result, err := p.DB.ExecContext(ctx, `DELETE FROM status_cache WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, shared.WrapError(err, shared.ErrorCategoryDatabase, "CACHE_CLEANUP_FAILED", "DeleteExpired", true)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// RecordTransition writes one observed status transition.
func (p *PostgresStatusPersister) RecordTransition(ctx context.Context, entry *models.StatusTransitionLog) error {
	query := `
		INSERT INTO status_transition_log (user_id, from_status, to_status, version, source, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.DB.ExecContext(ctx, query,
		entry.UserID, entry.FromStatus, entry.ToStatus, entry.Version, entry.Source, entry.ObservedAt,
	)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryDatabase, "AUDIT_WRITE_FAILED", "RecordTransition", true)
	}
	return nil
}
