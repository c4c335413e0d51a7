package feedrefresh

import (
	"time"
)

// minDelay keeps misconfigured lifetimes (lead >= ttl) from hammering
// upstreams with back-to-back refreshes.
const minDelay = time.Minute

// NextRunAt plans the follow-up refresh: the entry becomes due one lead
// time before the freshly written cache entry expires.
func NextRunAt(completedAt time.Time, ttl, lead time.Duration) time.Time {
	delay := ttl - lead
	if delay < minDelay {
		delay = minDelay
	}

	return completedAt.Add(delay)
}
