package gateway

import "time"

// HealthStatus is the operational status reported on the status topic.
type HealthStatus string

const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the retained gateway status. The status, reason and
// timestamp fields share their names with the transport's online and
// offline messages on the same topic.
type HealthMessage struct {
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     string       `json:"timestamp"`
	GatewayID     string       `json:"gateway_id"`
	InstanceID    string       `json:"instance_id"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Cameras       int          `json:"cameras"`
	ActiveStreams int64        `json:"active_streams"`
	InFlight      int64        `json:"in_flight"`
	Commands      uint64       `json:"commands"`
	Frames        uint64       `json:"frames"`
}

func newHealthMessage(status HealthStatus, reason string, snap Snapshot, startTime time.Time) HealthMessage {
	return HealthMessage{
		Status:        status,
		Reason:        reason,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		GatewayID:     snap.GatewayID,
		InstanceID:    snap.InstanceID,
		Version:       snap.Version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Cameras:       snap.Cameras,
		ActiveStreams: snap.Stats.ActiveStreams,
		InFlight:      snap.Stats.InFlight,
		Commands:      snap.Stats.Commands,
		Frames:        snap.Stats.Frames,
	}
}
