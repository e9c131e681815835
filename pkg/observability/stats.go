package observability

import (
	"context"
	"math"
	"sync"
)

// =============================================================================
// Cache Statistics
// =============================================================================

// CacheCounts holds the counters for one key type.
type CacheCounts struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Bytes   int64   `json:"bytes_written"`
	HitRate float64 `json:"hit_rate_percent"`
}

// CacheReport is a point-in-time view of a [CacheStats].
type CacheReport struct {
	Requests int64                  `json:"total_requests"`
	Hits     int64                  `json:"total_hits"`
	Misses   int64                  `json:"total_misses"`
	HitRate  float64                `json:"hit_rate_percent"`
	ByType   map[string]CacheCounts `json:"by_type"`
}

// CacheStats counts cache events per key type. It implements [CacheHooks]
// and is safe for concurrent use.
//
//	stats := observability.NewCacheStats()
//	observability.SetCacheHooks(stats)
type CacheStats struct {
	mu     sync.Mutex
	byType map[string]*CacheCounts
}

// NewCacheStats returns an empty collector.
func NewCacheStats() *CacheStats {
	return &CacheStats{byType: make(map[string]*CacheCounts)}
}

func (s *CacheStats) counts(keyType string) *CacheCounts {
	c, ok := s.byType[keyType]
	if !ok {
		c = &CacheCounts{}
		s.byType[keyType] = c
	}
	return c
}

func (s *CacheStats) OnCacheHit(_ context.Context, keyType string) {
	s.mu.Lock()
	s.counts(keyType).Hits++
	s.mu.Unlock()
}

func (s *CacheStats) OnCacheMiss(_ context.Context, keyType string) {
	s.mu.Lock()
	s.counts(keyType).Misses++
	s.mu.Unlock()
}

func (s *CacheStats) OnCacheSet(_ context.Context, keyType string, size int) {
	s.mu.Lock()
	c := s.counts(keyType)
	c.Sets++
	c.Bytes += int64(size)
	s.mu.Unlock()
}

// Snapshot returns the current totals. A nil collector reports zeros.
func (s *CacheStats) Snapshot() CacheReport {
	rep := CacheReport{ByType: map[string]CacheCounts{}}
	if s == nil {
		return rep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, c := range s.byType {
		out := *c
		out.HitRate = hitRate(c.Hits, c.Misses)
		rep.ByType[k] = out
		rep.Hits += c.Hits
		rep.Misses += c.Misses
	}
	rep.Requests = rep.Hits + rep.Misses
	rep.HitRate = hitRate(rep.Hits, rep.Misses)
	return rep
}

// hitRate returns hits as a percentage of lookups, rounded to two places.
func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*10000) / 100
}
