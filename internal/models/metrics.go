package models

import "time"

// SystemMetrics is a lightweight snapshot of gateway activity.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheEntries             int       `json:"cache_entries"`
	DiscardedResponses       uint64    `json:"discarded_responses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	UpstreamCalls            uint64    `json:"upstream_calls"`
	AverageUpstreamMs        float64   `json:"avg_upstream_ms"`
	AdoptionRollbacks        uint64    `json:"adoption_rollbacks"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
