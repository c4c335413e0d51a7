package feedrefresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/jobs/common"
	"gitlab.com/socialfeed/worker/metrics"
	"gitlab.com/socialfeed/worker/store"
)

type fetcher interface {
	FetchAndCache(
		ctx context.Context, record *store.Provider, ttl time.Duration,
	) ([]json.RawMessage, error)
}

type providerSource interface {
	Find(providerID uint) (*store.Provider, error)
	EnabledByType(providerType store.ProviderType) ([]store.Provider, error)
}

// Job drains due refresh entries, performs the live fetches, and keeps
// the refresh chain alive by re-enqueueing each processed entry.
type Job struct {
	logger  *zap.Logger
	redis   *redis.Client
	fetcher fetcher
	source  providerSource
	entries entryStore
}

func (j *Job) Name() string {
	return "feed-refresh"
}

func (j *Job) Interval() time.Duration {
	return 30 * time.Second
}

func (j *Job) Start(params common.StartParameters) error {
	err := params.DB.AutoMigrate(Entry{}).Error
	if err != nil {
		return err
	}

	j.logger = params.Logger
	j.redis = params.Redis
	j.fetcher = params.Aggregator
	j.source = store.NewReader(params.DB)
	j.entries = &gormEntryStore{db: params.DB}

	return nil
}

func (j *Job) Stop(params common.StopParameters) error {
	return nil
}

func (j *Job) Run(run *common.Run) error {
	lock := j.getRunLock()
	locked, err := lock.LockWithContext(run.Context())
	if err != nil {
		return errors.Wrap(err, "error acquiring run lock")
	}
	if !locked {
		run.Logger().Debug("skipped run, another run is already in progress")
		return nil
	}
	defer lock.Unlock() // nolint: errcheck

	entries, err := j.entries.ClaimDue(run.Context(), limit)
	if err != nil {
		return errors.Wrap(err, "error claiming due refresh entries")
	}
	if len(entries) == 0 {
		return nil
	}

	run.Logger().Info("processing refresh entries", zap.Int("amount", len(entries)))

	for i := range entries {
		err = j.process(run, &entries[i])
		if err != nil {
			run.Except(err)
		}

		metrics.FeedRefreshRuns.Add(1)
	}

	return nil
}

// process refreshes the providers an entry selects and re-enqueues the
// entry with its captured lifetimes. Entries whose provider vanished or
// got disabled end their chain here.
func (j *Job) process(run *common.Run, entry *Entry) error {
	records, err := j.resolveRecords(entry)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		run.Logger().Info("refresh entry matches no enabled provider, ending its chain",
			zap.Uint("entry_id", entry.ID),
			zap.String("provider_type", string(entry.ProviderType)),
			zap.Uint("provider_id", entry.ProviderID),
		)
		return nil
	}

	ttl := time.Duration(entry.TTLSeconds) * time.Second
	lead := time.Duration(entry.LeadSeconds) * time.Second

	for i := range records {
		// fetch failures are recorded on the provider row; the entry
		// is still re-enqueued so a transient outage does not end the
		// refresh chain
		_, err = j.fetcher.FetchAndCache(run.Context(), &records[i], ttl)
		if err != nil {
			run.Logger().Warn("scheduled refresh fetch failed",
				zap.String("provider_type", string(records[i].Type)),
				zap.Uint("provider_id", records[i].ID),
				zap.Error(err),
			)
		}
	}

	err = j.entries.Schedule(
		entry.ProviderType,
		entry.ProviderID,
		NextRunAt(time.Now(), ttl, lead),
		entry.TTLSeconds,
		entry.LeadSeconds,
	)
	if err != nil {
		return errors.Wrap(err, "error re-enqueueing refresh entry")
	}

	return nil
}

func (j *Job) resolveRecords(entry *Entry) ([]store.Provider, error) {
	if entry.ProviderID != 0 {
		record, err := j.source.Find(entry.ProviderID)
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "error looking up refresh entry provider")
		}

		if !record.Enabled {
			return nil, nil
		}
		if entry.ProviderType != "" && record.Type != entry.ProviderType {
			return nil, nil
		}

		return []store.Provider{*record}, nil
	}

	if entry.ProviderType != "" {
		records, err := j.source.EnabledByType(entry.ProviderType)
		if err != nil {
			return nil, errors.Wrap(err, "error listing refresh entry providers")
		}
		return records, nil
	}

	// an entry without any filter selects nothing
	return nil, nil
}
