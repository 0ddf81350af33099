package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/camgate/internal/dispatch"
)

const dbHealthTimeout = 2 * time.Second

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Cameras       CameraMetrics    `json:"cameras"`
	Dispatch      dispatch.Stats   `json:"dispatch"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains broker connection and inbound message counters.
type MQTTMetrics struct {
	Connected bool   `json:"connected"`
	Decoded   uint64 `json:"decoded"`
	Malformed uint64 `json:"malformed"`
}

// CameraMetrics contains registry counts.
type CameraMetrics struct {
	Total     int `json:"total"`
	Capturing int `json:"capturing"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	Healthy         bool  `json:"healthy"`
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, gateway and database metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := s.status.Snapshot()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		MQTT: MQTTMetrics{
			Connected: snap.Connected,
			Decoded:   snap.Decoded,
			Malformed: snap.Malformed,
		},
		Cameras: CameraMetrics{
			Total:     snap.Cameras,
			Capturing: snap.Capturing,
		},
		Dispatch: snap.Stats,
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), dbHealthTimeout)
		defer cancel()

		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			Healthy:         s.db.HealthCheck(ctx) == nil,
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
