// AngelaMos | 2026
// dto.go

package admin

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
)

type MarketplaceCounts struct {
	Users          int            `db:"users"           json:"users"`
	SuspendedUsers int            `db:"suspended_users" json:"suspended_users"`
	ActiveGigs     int            `db:"active_gigs"     json:"active_gigs"`
	OpenDisputes   int            `db:"open_disputes"   json:"open_disputes"`
	PendingFlags   int            `db:"pending_flags"   json:"pending_flags"`
	OpenTasks      int            `db:"open_tasks"      json:"open_tasks"`
	OrdersByStatus map[string]int `db:"-"               json:"orders_by_status"`
}

type Overview struct {
	Marketplace *MarketplaceCounts `json:"marketplace"`
	System      SystemStats        `json:"system"`
}

type SystemStats struct {
	Database Component     `json:"database"`
	Redis    Component     `json:"redis"`
	Runtime  *RuntimeStats `json:"runtime,omitempty"`
}

// Component is one backing store. Pool is only filled on the admin-only
// system view.
type Component struct {
	Healthy bool       `json:"healthy"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// PoolStats is the common subset of database/sql and go-redis pool stats.
type PoolStats struct {
	Open     int    `json:"open"`
	Idle     int    `json:"idle"`
	InUse    int    `json:"in_use,omitempty"`
	MaxOpen  int    `json:"max_open,omitempty"`
	Waits    int64  `json:"waits"`
	WaitTime string `json:"wait_time,omitempty"`
	Timeouts int64  `json:"timeouts"`
}

func dbPool(s sql.DBStats) *PoolStats {
	return &PoolStats{
		Open:     s.OpenConnections,
		Idle:     s.Idle,
		InUse:    s.InUse,
		MaxOpen:  s.MaxOpenConnections,
		Waits:    s.WaitCount,
		WaitTime: s.WaitDuration.String(),
	}
}

func redisPool(s *redis.PoolStats) *PoolStats {
	if s == nil {
		return nil
	}
	return &PoolStats{
		Open:     int(s.TotalConns),
		Idle:     int(s.IdleConns),
		Waits:    int64(s.Misses),
		Timeouts: int64(s.Timeouts),
	}
}

type RuntimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	CPUs       int    `json:"cpus"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	GCCycles   uint32 `json:"gc_cycles"`
}
