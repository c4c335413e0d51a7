package metrics

import (
	"expvar"
	"time"
)

var (
	// Uptime stores the timestamp of the Worker boot
	Uptime = expvar.NewInt("uptime")
	// FeedCacheHits counts aggregation reads served from the cache
	FeedCacheHits = expvar.NewInt("feed_cache_hits")
	// FeedCacheMisses counts aggregation reads that required a live fetch
	FeedCacheMisses = expvar.NewInt("feed_cache_misses")
	// FeedRefreshRuns counts processed scheduled refresh jobs
	FeedRefreshRuns = expvar.NewInt("feed_refresh_runs")
	// TokenRefreshes counts completed chained token exchanges
	TokenRefreshes = expvar.NewInt("token_refreshes")
)

// Init starts metrics collection
func Init() {
	Uptime.Set(time.Now().Unix())
}
