package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultHealthInterval = 30 * time.Second

// HealthPublisher is the part of the MQTT client the reporter needs.
// PublishRetained uses the client's configured QoS.
type HealthPublisher interface {
	PublishRetained(topic string, payload []byte) error
	IsConnected() bool
}

// GatewayRecorder receives periodic gateway snapshots. Satisfied by
// *influxdb.Client.
type GatewayRecorder interface {
	RecordGateway(cameras, capturing int)
}

// HealthReporter publishes the retained gateway status at an interval.
type HealthReporter struct {
	topic     string
	interval  time.Duration
	startTime time.Time
	publisher HealthPublisher
	recorder  GatewayRecorder
	snapshot  func() Snapshot

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// Topic is the retained status topic. Reporting is disabled when empty.
	Topic string

	// Interval defaults to 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher

	// Recorder is optional.
	Recorder GatewayRecorder

	// Snapshot supplies the counters reported in each message.
	Snapshot func() Snapshot

	Logger Logger
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &HealthReporter{
		topic:     cfg.Topic,
		interval:  interval,
		startTime: time.Now(),
		publisher: cfg.Publisher,
		recorder:  cfg.Recorder,
		snapshot:  cfg.Snapshot,
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final stopping status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best effort during shutdown
		h.publish(HealthStopping, "gateway stopping")
	})
}

// PublishStarting publishes a starting status.
func (h *HealthReporter) PublishStarting() error {
	return h.publish(HealthStarting, "gateway starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.current().Cameras == 0 {
		return HealthDegraded, "no cameras enumerated"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) current() Snapshot {
	if h.snapshot == nil {
		return Snapshot{}
	}
	return h.snapshot()
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	snap := h.current()
	if h.recorder != nil {
		h.recorder.RecordGateway(snap.Cameras, snap.Capturing)
	}

	if h.publisher == nil || h.topic == "" {
		return nil
	}

	payload, err := json.Marshal(newHealthMessage(status, reason, snap, h.startTime))
	if err != nil {
		return err
	}
	return h.publisher.PublishRetained(h.topic, payload)
}
