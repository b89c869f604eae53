// Package types contains the stats views shared by the service and the HTTP API.
package types

import "github.com/okian/visualverse/internal/domain/content"

// RenderCounters counts synchronous and asynchronous renders since start.
type RenderCounters struct {
	Total  int64 `json:"total"`
	Failed int64 `json:"failed"`
}

// ServiceStats is the operational view served by /stats.
type ServiceStats struct {
	Started       bool           `json:"started"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	WorkerCount   int            `json:"worker_count"`
	QueueLength   int            `json:"queue_length"`
	QueueCapacity int            `json:"queue_capacity"`
	DedupeKeys    int64          `json:"dedupe_keys"`
	Jobs          map[string]int `json:"jobs"`
	Renders       RenderCounters `json:"renders"`
	CatalogKinds  int            `json:"catalog_kinds"`
}

// DashboardStats is the admin console summary. Every figure comes from
// live state.
type DashboardStats struct {
	Content        content.Counts `json:"content"`
	Jobs           map[string]int `json:"jobs"`
	Renders        RenderCounters `json:"renders"`
	Users          int            `json:"users"`
	ActiveSessions int            `json:"active_sessions"`
	CatalogKinds   int            `json:"catalog_kinds"`
	UptimeSeconds  float64        `json:"uptime_seconds"`
}

// FailureRate returns Failed/Total, or 0 before any render.
func (r RenderCounters) FailureRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Total)
}
