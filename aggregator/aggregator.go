package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/feedcache"
	"gitlab.com/socialfeed/worker/metrics"
	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/providers"
	"gitlab.com/socialfeed/worker/store"
)

// Cache is the feed cache surface the aggregator consumes.
type Cache interface {
	Get(key feedcache.Key) ([]byte, bool, error)
	Set(key feedcache.Key, payload []byte, ttl time.Duration) error
	Delete(key feedcache.Key) error
}

// Scheduler plans the follow-up refresh after a live fetch. completedAt
// is the moment the fetch finished, regardless of its outcome.
type Scheduler interface {
	ScheduleRefresh(
		providerType store.ProviderType,
		providerID uint,
		completedAt time.Time,
		ttl time.Duration,
		lead time.Duration,
	) error
}

// ProviderSource lists the provider records to aggregate.
type ProviderSource interface {
	Enabled() ([]store.Provider, error)
}

// StatusStore records per-provider fetch outcomes for administrators.
type StatusStore interface {
	SetError(providerID uint, message string) error
	ClearError(providerID uint) error
}

// Options control one aggregation read.
type Options struct {
	// Flush bypasses the cache and forces a live fetch for every
	// provider.
	Flush bool
}

// Aggregator produces the combined feed across all enabled providers.
// Each provider is isolated: a failing upstream records its error on
// the provider row and the remaining feeds still aggregate.
type Aggregator struct {
	logger    *zap.Logger
	deps      providers.Dependencies
	source    ProviderSource
	cache     Cache
	scheduler Scheduler
	status    StatusStore

	defaultTTL time.Duration
	leadTime   time.Duration
}

func New(
	logger *zap.Logger,
	deps providers.Dependencies,
	source ProviderSource,
	cache Cache,
	scheduler Scheduler,
	status StatusStore,
	defaultTTL time.Duration,
	leadTime time.Duration,
) *Aggregator {
	return &Aggregator{
		logger:     logger,
		deps:       deps,
		source:     source,
		cache:      cache,
		scheduler:  scheduler,
		status:     status,
		defaultTTL: defaultTTL,
		leadTime:   leadTime,
	}
}

// DefaultTTL returns the configured cache lifetime for providers
// without a per-record override.
func (a *Aggregator) DefaultTTL() time.Duration {
	return a.defaultTTL
}

// LeadTime returns how long before expiry scheduled refreshes run.
func (a *Aggregator) LeadTime() time.Duration {
	return a.leadTime
}

// Aggregate returns the combined feed, newest posts first. Cached
// entries are served as-is; cache misses (or every provider, when
// opts.Flush is set) trigger a live fetch, a cache write, and a
// scheduled follow-up refresh.
func (a *Aggregator) Aggregate(ctx context.Context, opts Options) ([]feed.Post, error) {
	records, err := a.source.Enabled()
	if err != nil {
		return nil, errors.Wrap(err, "failure listing enabled providers")
	}

	posts := make([]feed.Post, 0)
	for i := range records {
		record := &records[i]

		providerPosts, err := a.aggregateProvider(ctx, record, opts.Flush)
		if err != nil {
			a.logger.Warn("provider aggregation failed",
				zap.String("provider_type", string(record.Type)),
				zap.Uint("provider_id", record.ID),
				zap.Error(err),
			)
			continue
		}

		posts = append(posts, providerPosts...)
	}

	feed.SortPosts(posts)
	return posts, nil
}

func (a *Aggregator) aggregateProvider(
	ctx context.Context, record *store.Provider, flush bool,
) ([]feed.Post, error) {
	provider, err := providers.New(a.deps, record)
	if err != nil {
		a.recordError(record.ID, err)
		return nil, err
	}

	key := feedcache.Key{ProviderType: record.Type, ProviderID: record.ID}

	if !flush {
		payload, hit, err := a.cache.Get(key)
		if err != nil {
			return nil, err
		}
		if hit {
			metrics.FeedCacheHits.Add(1)

			var raw []json.RawMessage
			err = json.Unmarshal(payload, &raw)
			if err != nil {
				return nil, errors.Wrap(err, "failure parsing cached feed payload")
			}
			return a.normalize(provider, raw), nil
		}
	}

	metrics.FeedCacheMisses.Add(1)

	ttl := a.providerTTL(record)
	raw, fetchErr := a.FetchAndCache(ctx, record, ttl)

	// the follow-up refresh is planned even when the live fetch
	// failed, otherwise a transient upstream outage would end the
	// refresh chain for good
	err = a.scheduler.ScheduleRefresh(record.Type, record.ID, time.Now(), ttl, a.leadTime)
	if err != nil {
		a.logger.Error("failure scheduling feed refresh",
			zap.String("provider_type", string(record.Type)),
			zap.Uint("provider_id", record.ID),
			zap.Error(err),
		)
	}

	if fetchErr != nil {
		return nil, fetchErr
	}

	return a.normalize(provider, raw), nil
}

// FetchAndCache performs a live fetch for the record, overwrites its
// cache entry on success, and maintains the provider error slot. It
// does not plan any follow-up refresh; callers own that decision.
func (a *Aggregator) FetchAndCache(
	ctx context.Context, record *store.Provider, ttl time.Duration,
) ([]json.RawMessage, error) {
	provider, err := providers.New(a.deps, record)
	if err != nil {
		a.recordError(record.ID, err)
		return nil, err
	}

	raw, err := provider.FetchRawFeed(ctx)
	if err != nil {
		a.recordError(record.ID, err)
		return nil, err
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "failure encoding feed payload")
	}

	key := feedcache.Key{ProviderType: record.Type, ProviderID: record.ID}
	err = a.cache.Set(key, payload, ttl)
	if err != nil {
		return nil, err
	}

	err = a.status.ClearError(record.ID)
	if err != nil {
		a.logger.Error("failure clearing provider error slot",
			zap.Uint("provider_id", record.ID),
			zap.Error(err),
		)
	}

	return raw, nil
}

// ClearAllCaches drops every enabled provider's cache entry. The next
// aggregation read repopulates them.
func (a *Aggregator) ClearAllCaches() error {
	records, err := a.source.Enabled()
	if err != nil {
		return errors.Wrap(err, "failure listing enabled providers")
	}

	for i := range records {
		key := feedcache.Key{ProviderType: records[i].Type, ProviderID: records[i].ID}

		err = a.cache.Delete(key)
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *Aggregator) normalize(provider providers.Provider, raw []json.RawMessage) []feed.Post {
	posts := make([]feed.Post, 0, len(raw))
	for _, item := range raw {
		post, err := provider.NormalizePost(item)
		if err != nil {
			a.logger.Warn("skipping unparsable post",
				zap.String("provider_type", string(provider.Type())),
				zap.Uint("provider_id", provider.Record().ID),
				zap.Error(err),
			)
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

func (a *Aggregator) providerTTL(record *store.Provider) time.Duration {
	if record.CacheLifetime > 0 {
		return time.Duration(record.CacheLifetime) * time.Second
	}
	return a.defaultTTL
}

func (a *Aggregator) recordError(providerID uint, cause error) {
	err := a.status.SetError(providerID, cause.Error())
	if err != nil {
		a.logger.Error("failure recording provider error",
			zap.Uint("provider_id", providerID),
			zap.Error(err),
		)
	}
}
