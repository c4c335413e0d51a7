package feedrefresh

import (
	"time"

	"github.com/jinzhu/gorm"

	"gitlab.com/socialfeed/worker/store"
)

// Planner enqueues refresh entries. It is what the aggregator's
// Scheduler dependency is wired to in production.
type Planner struct {
	entries entryStore
}

func NewPlanner(db *gorm.DB) *Planner {
	return &Planner{
		entries: &gormEntryStore{db: db},
	}
}

func (p *Planner) ScheduleRefresh(
	providerType store.ProviderType,
	providerID uint,
	completedAt time.Time,
	ttl time.Duration,
	lead time.Duration,
) error {
	return p.entries.Schedule(
		providerType,
		providerID,
		NextRunAt(completedAt, ttl, lead),
		int(ttl/time.Second),
		int(lead/time.Second),
	)
}
