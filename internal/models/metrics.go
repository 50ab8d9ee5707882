package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot exposed alongside the
// Prometheus endpoint for quick API consumption.
type SystemMetrics struct {
	TurnsProcessed           uint64    `json:"turns_processed"`
	TrajectoriesBuilt        uint64    `json:"trajectories_built"`
	TrajectoryStepsTotal     uint64    `json:"trajectory_steps_total"`
	OracleFallbacks          uint64    `json:"oracle_fallbacks"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
