package analysis

import (
	"regexp"
	"sync"
	"time"
)

// Category is a coarse bucket a question is classified into for
// short-TTL answer reuse. Questions that fit no category always get a
// fresh generative call.
type Category string

const (
	CategoryStatus   Category = "status"
	CategoryGoodTime Category = "good_time"
	CategoryQueue    Category = "queue"
	CategoryLSToSA   Category = "ls_to_sa"
	CategorySAToLS   Category = "sa_to_ls"
)

// categoryRules are evaluated in order; the first match wins. Order
// matters: direction-specific phrasings must be claimed before the
// generic status bucket.
var categoryRules = []struct {
	category Category
	pattern  *regexp.Regexp
}{
	{CategoryGoodTime, regexp.MustCompile(`(?i)\b(good|best|better|right)\s+time\b|when\s+should\s+i`)},
	{CategoryQueue, regexp.MustCompile(`(?i)\bqueue\b|\bengen\b|\bline\s+(at|to|for)\b|how\s+long\s+is\s+the\s+line`)},
	{CategoryLSToSA, regexp.MustCompile(`(?i)\bto\s+(sa|south\s+africa)\b|\bfrom\s+(ls|lesotho)\b|leaving\s+lesotho`)},
	{CategorySAToLS, regexp.MustCompile(`(?i)\bto\s+(ls|lesotho)\b|\bfrom\s+(sa|south\s+africa)\b|into\s+lesotho`)},
	{CategoryStatus, regexp.MustCompile(`(?i)\btraffic\b|\bstatus\b|\bbusy\b|\bbacked\s+up\b|how\s+(is|are|does)\s+(it|the\s+border|the\s+bridge)`)},
}

// Categorize maps raw question text to a cache category. The boolean is
// false when the question fits no category and must bypass the cache.
func Categorize(question string) (Category, bool) {
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(question) {
			return rule.category, true
		}
	}
	return "", false
}

type cacheEntry struct {
	message    string
	frameTime  time.Time
	frameCount int
	createdAt  time.Time
}

// ResponseCache holds one answer per category with lazy expiry: an
// entry past its TTL is treated as absent and simply overwritten by the
// next write, no sweeper involved.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[Category]cacheEntry
	ttl     time.Duration

	now func() time.Time
}

// NewResponseCache creates a category-keyed cache.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &ResponseCache{
		entries: make(map[Category]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached answer, the frame time it was built from and
// how many frames it used, if a live entry exists.
func (c *ResponseCache) Get(category Category) (message string, frameTime time.Time, frameCount int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[category]
	if !found || c.now().Sub(entry.createdAt) >= c.ttl {
		return "", time.Time{}, 0, false
	}
	return entry.message, entry.frameTime, entry.frameCount, true
}

// Put stores an answer for a category, replacing any previous entry.
func (c *ResponseCache) Put(category Category, message string, frameTime time.Time, frameCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[category] = cacheEntry{
		message:    message,
		frameTime:  frameTime,
		frameCount: frameCount,
		createdAt:  c.now(),
	}
}

// LatestHolder is the single-slot cache for the most recent unprompted
// analysis, with its own TTL. It absorbs bursts of identical polling
// without touching the per-category cache.
type LatestHolder struct {
	mu     sync.RWMutex
	result *Result
	ttl    time.Duration

	now func() time.Time
}

// NewLatestHolder creates the holder.
func NewLatestHolder(ttl time.Duration) *LatestHolder {
	if ttl <= 0 {
		ttl = 180 * time.Second
	}
	return &LatestHolder{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the held result if it is still within its TTL.
func (h *LatestHolder) Get() (*Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.result == nil || h.now().Sub(h.result.Timestamp) >= h.ttl {
		return nil, false
	}
	return h.result, true
}

// Set replaces the held result.
func (h *LatestHolder) Set(r *Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = r
}
