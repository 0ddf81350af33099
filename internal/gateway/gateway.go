package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/camgate/internal/dispatch"
	"github.com/nerrad567/camgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
)

// MQTTClient is the transport surface the runtime needs. Satisfied by
// *mqtt.Client.
type MQTTClient interface {
	HealthPublisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Registry is the device set the runtime addresses. Satisfied by
// *registry.Registry.
type Registry interface {
	Get(idx int) (*registry.Handle, error)
	Len() int
	Capturing() int
}

// Dispatcher executes decoded commands. Satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, h *registry.Handle, env protocol.CommandEnvelope) error
	Init(ctx context.Context, env protocol.CommandEnvelope) error
	Reject(env protocol.CommandEnvelope, reason error) error
	Stats() dispatch.Stats
}

// Logger defines the logging interface used by the runtime.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Runtime.
type Options struct {
	GatewayID string
	Version   string

	MQTT   MQTTClient
	Topics mqtt.Topics
	QoS    byte
	Codec  protocol.Codec

	Registry   Registry
	Dispatcher Dispatcher

	HealthInterval time.Duration

	// Telemetry is optional.
	Telemetry GatewayRecorder

	// Logger is optional.
	Logger Logger
}

// Snapshot is the runtime state reported by health messages and the
// status API.
type Snapshot struct {
	GatewayID  string         `json:"gateway_id"`
	InstanceID string         `json:"instance_id"`
	Version    string         `json:"version"`
	Connected  bool           `json:"connected"`
	Cameras    int            `json:"cameras"`
	Capturing  int            `json:"capturing"`
	Decoded    uint64         `json:"decoded"`
	Malformed  uint64         `json:"malformed"`
	Stats      dispatch.Stats `json:"dispatch"`
}

// Runtime receives commands from MQTT and dispatches them.
//
// Thread Safety: All methods are safe for concurrent use.
type Runtime struct {
	gatewayID  string
	instanceID string
	version    string

	mqtt       MQTTClient
	topics     mqtt.Topics
	qos        byte
	codec      protocol.Codec
	registry   Registry
	dispatcher Dispatcher
	health     *HealthReporter
	logger     Logger

	decoded   atomic.Uint64
	malformed atomic.Uint64

	// spawnMu orders wg.Add against the cancel in Stop.
	spawnMu   sync.RWMutex
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

// New creates a runtime. Call Start to subscribe.
func New(opts Options) (*Runtime, error) {
	switch {
	case opts.MQTT == nil:
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	case opts.Codec == nil:
		return nil, fmt.Errorf("%w: codec", ErrMissingDependency)
	case opts.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case opts.Dispatcher == nil:
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		gatewayID:  opts.GatewayID,
		instanceID: uuid.NewString(),
		version:    opts.Version,
		mqtt:       opts.MQTT,
		topics:     opts.Topics,
		qos:        opts.QoS,
		codec:      opts.Codec,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		logger:     logger,
		ctx:        ctx,
		ctxCancel:  cancel,
	}

	r.health = NewHealthReporter(HealthReporterConfig{
		Topic:     opts.Topics.Status(),
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTT,
		Recorder:  opts.Telemetry,
		Snapshot:  r.Snapshot,
		Logger:    logger,
	})

	return r, nil
}

// InstanceID identifies this process in health messages.
func (r *Runtime) InstanceID() string { return r.instanceID }

// Start subscribes to the inbound topics and starts health reporting.
func (r *Runtime) Start(ctx context.Context) error {
	if r.ctx.Err() != nil {
		return ErrStopped
	}

	if err := r.health.PublishStarting(); err != nil {
		r.logger.Warn("failed to publish starting status", "error", err)
	}

	for _, topic := range r.topics.Inbound() {
		if err := r.mqtt.Subscribe(topic, r.qos, r.handleMessage); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
		r.logger.Info("subscribed", "topic", topic)
	}

	r.health.Start(ctx)

	r.logger.Info("gateway started",
		"gateway_id", r.gatewayID,
		"instance_id", r.instanceID,
		"cameras", r.registry.Len(),
		"codec", r.codec.Name())
	return nil
}

// Stop unsubscribes from the inbound topics, cancels running commands and
// capture streams, waits for them to finish and publishes a stopping status.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		r.unsubscribe()

		r.spawnMu.Lock()
		r.ctxCancel()
		r.spawnMu.Unlock()

		r.wg.Wait()
		r.health.Stop()
		r.logger.Info("gateway stopped")
	})
}

// unsubscribe is best effort; a disconnected client has no live
// subscriptions to remove.
func (r *Runtime) unsubscribe() {
	if !r.mqtt.IsConnected() {
		return
	}
	for _, topic := range r.topics.Inbound() {
		if err := r.mqtt.Unsubscribe(topic); err != nil {
			r.logger.Warn("failed to unsubscribe", "topic", topic, "error", err)
		}
	}
}

// Snapshot returns the current runtime state.
func (r *Runtime) Snapshot() Snapshot {
	return Snapshot{
		GatewayID:  r.gatewayID,
		InstanceID: r.instanceID,
		Version:    r.version,
		Connected:  r.mqtt.IsConnected(),
		Cameras:    r.registry.Len(),
		Capturing:  r.registry.Capturing(),
		Decoded:    r.decoded.Load(),
		Malformed:  r.malformed.Load(),
		Stats:      r.dispatcher.Stats(),
	}
}

// handleMessage decodes one inbound message and dispatches it on its own
// goroutine. A returned error is logged by the transport.
func (r *Runtime) handleMessage(topic string, payload []byte) error {
	if r.ctx.Err() != nil {
		return nil
	}

	env, err := r.codec.DecodeCommand(payload)
	if err != nil {
		r.malformed.Add(1)
		return fmt.Errorf("dropping message on %s: %w", topic, err)
	}
	r.decoded.Add(1)

	r.logger.Debug("received command",
		"topic", topic,
		"transaction_id", env.TransactionID,
		"camera_idx", env.CameraIdx,
		"cmd_idx", env.CmdIdx)

	if mqtt.Match(r.topics.Init(), topic) || env.Command() == protocol.CmdInit {
		r.spawn(func(ctx context.Context) error {
			return r.dispatcher.Init(ctx, env)
		})
		return nil
	}

	h, err := r.registry.Get(env.CameraIdx)
	if err != nil {
		r.spawn(func(context.Context) error {
			return r.dispatcher.Reject(env, err)
		})
		return nil
	}

	r.spawn(func(ctx context.Context) error {
		return r.dispatcher.Dispatch(ctx, h, env)
	})
	return nil
}

// spawn runs fn on a tracked goroutine with the runtime context.
func (r *Runtime) spawn(fn func(ctx context.Context) error) {
	r.spawnMu.RLock()
	defer r.spawnMu.RUnlock()
	if r.ctx.Err() != nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug("command finished with error", "error", err)
		}
	}()
}
