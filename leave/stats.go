package leave

import "time"

// =============================================================================
// STATISTICS - Aggregation over the request collection
// =============================================================================

// Stats summarizes requests submitted within a date range.
type Stats struct {
	Total     int                   `json:"total"`
	ByStatus  map[RequestStatus]int `json:"byStatus"`
	TotalDays int                   `json:"totalDays"`
	ByType    map[Type]TypeStats    `json:"byType"`
}

// TypeStats is the per-leave-type breakdown.
type TypeStats struct {
	Requests int `json:"requests"`
	Days     int `json:"days"`
}

// ComputeStats aggregates requests whose submission date falls in [from, to]
// (calendar days, inclusive). A zero bound is open.
func ComputeStats(reqs []Request, from, to time.Time) *Stats {
	stats := &Stats{
		ByStatus: make(map[RequestStatus]int),
		ByType:   make(map[Type]TypeStats),
	}
	for _, r := range reqs {
		if !submittedInRange(r, from, to) {
			continue
		}
		stats.Total++
		stats.ByStatus[r.Status]++
		stats.TotalDays += r.Days
		ts := stats.ByType[r.Type]
		ts.Requests++
		ts.Days += r.Days
		stats.ByType[r.Type] = ts
	}
	return stats
}

func submittedInRange(r Request, from, to time.Time) bool {
	day := StartOfDay(r.SubmittedAt)
	if !from.IsZero() && day.Before(StartOfDay(from)) {
		return false
	}
	if !to.IsZero() && day.After(StartOfDay(to)) {
		return false
	}
	return true
}
