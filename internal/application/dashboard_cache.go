package application

import (
	"sync"
	"time"
)

// summaryCache keeps recently computed dashboard summaries keyed by month so
// repeated dashboard loads do not rerun the aggregate queries.
type summaryCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]summaryCacheEntry
}

type summaryCacheEntry struct {
	summary   DashboardSummary
	expiresAt time.Time
}

func newSummaryCache(ttl time.Duration, maxEntries int, now func() time.Time) *summaryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 12
	}
	if now == nil {
		now = time.Now
	}
	return &summaryCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]summaryCacheEntry),
	}
}

func (c *summaryCache) Get(key string) (DashboardSummary, bool) {
	if c == nil {
		return DashboardSummary{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return DashboardSummary{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return DashboardSummary{}, false
	}
	return cloneSummary(entry.summary), true
}

func (c *summaryCache) Store(key string, summary DashboardSummary) {
	if c == nil {
		return
	}
	cloned := cloneSummary(summary)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = summaryCacheEntry{summary: cloned, expiresAt: expiry}
}

func (c *summaryCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]summaryCacheEntry)
	c.mu.Unlock()
}

func (c *summaryCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *summaryCache) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	delete(c.entries, oldestKey)
}

func cloneSummary(summary DashboardSummary) DashboardSummary {
	out := summary
	if summary.ByStatus != nil {
		out.ByStatus = make(map[string]int, len(summary.ByStatus))
		for k, v := range summary.ByStatus {
			out.ByStatus[k] = v
		}
	}
	if summary.Trends != nil {
		out.Trends = make([]MonthlyTrend, len(summary.Trends))
		copy(out.Trends, summary.Trends)
	}
	return out
}

func summaryCacheKey(month time.Time) string {
	return month.UTC().Format("2006-01")
}
