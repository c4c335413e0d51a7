package feedrefresh

import (
	"time"

	"github.com/jinzhu/gorm"

	"gitlab.com/socialfeed/worker/store"
)

// Entry is one durable refresh order. TTL and lead time are captured at
// enqueue time, so later configuration changes only affect newly
// planned refreshes.
type Entry struct {
	gorm.Model
	ProviderType store.ProviderType
	ProviderID   uint
	RunAt        time.Time
	TTLSeconds   int
	LeadSeconds  int
	RanAt        *time.Time
}

func (*Entry) TableName() string {
	return "feed_refresh_jobs"
}
