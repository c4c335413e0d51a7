package feedrefresh

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"

	"gitlab.com/socialfeed/worker/store"
)

const (
	limit = 100

	claimQuery = `
UPDATE feed_refresh_jobs
SET ran_at = NOW()
WHERE id IN (
  SELECT id
  FROM feed_refresh_jobs
  WHERE deleted_at IS NULL
  AND run_at <= NOW()
  AND ran_at IS NULL
  LIMIT $1
  FOR UPDATE SKIP LOCKED
)
RETURNING
  id,
  provider_type,
  provider_id,
  run_at,
  ttl_seconds,
  lead_seconds
;
`

	// at most one pending entry per (type, id) filter
	scheduleQuery = `
INSERT INTO feed_refresh_jobs
  (created_at, updated_at, provider_type, provider_id, run_at, ttl_seconds, lead_seconds)
SELECT NOW(), NOW(), $1, $2, $3, $4, $5
WHERE NOT EXISTS (
  SELECT 1
  FROM feed_refresh_jobs
  WHERE deleted_at IS NULL
  AND ran_at IS NULL
  AND provider_type = $1
  AND provider_id = $2
)
;
`

	pendingQuery = `
SELECT COUNT(*)
FROM feed_refresh_jobs
WHERE deleted_at IS NULL
AND ran_at IS NULL
;
`
)

// entryStore is the persistence surface the job and planner run on.
type entryStore interface {
	ClaimDue(ctx context.Context, limit int) ([]Entry, error)
	Schedule(
		providerType store.ProviderType,
		providerID uint,
		runAt time.Time,
		ttlSeconds int,
		leadSeconds int,
	) error
}

type gormEntryStore struct {
	db *gorm.DB
}

// ClaimDue marks up to limit due entries as ran and returns them.
// Concurrent claimers skip each other's rows.
func (s *gormEntryStore) ClaimDue(ctx context.Context, claimLimit int) ([]Entry, error) {
	tx, err := s.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, claimQuery, claimLimit)
	if err != nil {
		tx.Rollback() // nolint: errcheck
		return nil, err
	}

	var entries []Entry
	for rows.Next() {
		var entry Entry

		err = rows.Scan(
			&entry.ID,
			&entry.ProviderType,
			&entry.ProviderID,
			&entry.RunAt,
			&entry.TTLSeconds,
			&entry.LeadSeconds,
		)
		if err != nil {
			rows.Close()  // nolint: errcheck
			tx.Rollback() // nolint: errcheck
			return nil, err
		}

		entries = append(entries, entry)
	}

	err = rows.Close()
	if err != nil {
		tx.Rollback() // nolint: errcheck
		return nil, err
	}

	return entries, tx.Commit()
}

// Schedule enqueues a refresh unless an unprocessed entry with the same
// filter already exists.
func (s *gormEntryStore) Schedule(
	providerType store.ProviderType,
	providerID uint,
	runAt time.Time,
	ttlSeconds int,
	leadSeconds int,
) error {
	return s.db.Exec(
		scheduleQuery,
		providerType, providerID, runAt, ttlSeconds, leadSeconds,
	).Error
}

// PendingCount returns the number of unprocessed refresh entries.
func PendingCount(db *gorm.DB) (int, error) {
	var count int
	err := db.Raw(pendingQuery).Row().Scan(&count)
	return count, err
}
