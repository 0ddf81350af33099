package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
)

// initCameraIdx is the camera index carried by Init responses.
const initCameraIdx = -1

// Publisher sends encoded responses. Satisfied by *mqtt.Client.
type Publisher interface {
	// Publish waits for the broker acknowledgement.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// PublishAsync returns once the message is queued.
	PublishAsync(topic string, payload []byte, qos byte) error
}

// Recorder receives command and stream telemetry. Satisfied by
// *influxdb.Client.
type Recorder interface {
	RecordCommand(cameraIdx int, command string, ok bool, elapsed time.Duration)
	RecordFrame(cameraIdx int, size int, elapsed time.Duration)
	RecordStream(cameraIdx int, active bool, frames int)
}

// Enumerator rebuilds the device set. Satisfied by *registry.Registry.
type Enumerator interface {
	Rebuild(ctx context.Context) (int, error)
}

// Logger defines the logging interface used by the Dispatcher.
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

type noopRecorder struct{}

func (noopRecorder) RecordCommand(int, string, bool, time.Duration) {}
func (noopRecorder) RecordFrame(int, int, time.Duration)            {}
func (noopRecorder) RecordStream(int, bool, int)                    {}

// Options configures a Dispatcher.
type Options struct {
	Publisher Publisher
	Codec     protocol.Codec

	// Topic is the shared response topic.
	Topic string

	// QoS applies to command responses, FrameQoS to streamed frames.
	QoS      byte
	FrameQoS byte

	// WaitForAck makes each frame publish wait for the broker
	// acknowledgement before the next acquisition.
	WaitForAck bool

	// Enumerator serves Init. Optional.
	Enumerator Enumerator

	// Recorder is optional.
	Recorder Recorder

	// Logger is optional.
	Logger Logger
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	Commands       uint64 `json:"commands"`
	Failures       uint64 `json:"failures"`
	Dropped        uint64 `json:"dropped"`
	Frames         uint64 `json:"frames"`
	FrameBytes     uint64 `json:"frame_bytes"`
	PublishErrors  uint64 `json:"publish_errors"`
	InFlight       int64  `json:"in_flight"`
	ActiveStreams  int64  `json:"active_streams"`
	Enumerations   uint64 `json:"enumerations"`
	LastEnumerated int    `json:"last_enumerated"`
}

// Dispatcher runs commands and publishes their responses.
//
// Thread Safety: Dispatch may be called concurrently for any handles.
type Dispatcher struct {
	pub        Publisher
	codec      protocol.Codec
	topic      string
	qos        byte
	frameQoS   byte
	waitForAck bool
	enumerator Enumerator
	recorder   Recorder
	logger     Logger

	commands       atomic.Uint64
	failures       atomic.Uint64
	dropped        atomic.Uint64
	frames         atomic.Uint64
	frameBytes     atomic.Uint64
	publishErrors  atomic.Uint64
	inFlight       atomic.Int64
	activeStreams  atomic.Int64
	enumerations   atomic.Uint64
	lastEnumerated atomic.Int64
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	switch {
	case opts.Publisher == nil:
		return nil, ErrNoPublisher
	case opts.Codec == nil:
		return nil, ErrNoCodec
	case opts.Topic == "":
		return nil, ErrNoTopic
	}

	d := &Dispatcher{
		pub:        opts.Publisher,
		codec:      opts.Codec,
		topic:      opts.Topic,
		qos:        opts.QoS,
		frameQoS:   opts.FrameQoS,
		waitForAck: opts.WaitForAck,
		enumerator: opts.Enumerator,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}
	if d.recorder == nil {
		d.recorder = noopRecorder{}
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d, nil
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Commands:       d.commands.Load(),
		Failures:       d.failures.Load(),
		Dropped:        d.dropped.Load(),
		Frames:         d.frames.Load(),
		FrameBytes:     d.frameBytes.Load(),
		PublishErrors:  d.publishErrors.Load(),
		InFlight:       d.inFlight.Load(),
		ActiveStreams:  d.activeStreams.Load(),
		Enumerations:   d.enumerations.Load(),
		LastEnumerated: int(d.lastEnumerated.Load()),
	}
}

// Dispatch runs one command against h. For StartCapture it returns when
// the stream ends.
//
// The returned error is informational; the response, if any, has
// already been published.
func (d *Dispatcher) Dispatch(ctx context.Context, h *registry.Handle, env protocol.CommandEnvelope) error {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	d.commands.Add(1)

	cmd := env.Command()
	d.logger.Debug("dispatching command",
		"transaction_id", env.TransactionID,
		"camera_idx", env.CameraIdx,
		"command", cmd.String())

	switch cmd {
	case protocol.CmdInit:
		return d.init(ctx, env)
	case protocol.CmdStartCapture:
		return d.capture(ctx, h, env)
	}

	start := time.Now()
	var payload any
	var opErr error
	err := h.Do(func(dev *registry.Device) error {
		payload, opErr = d.execute(dev, env)
		return nil
	})
	if err != nil {
		payload, opErr = nil, err
	}

	return d.finish(env, cmd, payload, opErr, time.Since(start))
}

// finish publishes the outcome of a single command.
func (d *Dispatcher) finish(env protocol.CommandEnvelope, cmd protocol.Command, payload any, opErr error, elapsed time.Duration) error {
	ok := opErr == nil
	d.recorder.RecordCommand(env.CameraIdx, cmd.String(), ok, elapsed)
	if !ok {
		d.failures.Add(1)
	}

	if isParamError(opErr) {
		d.dropped.Add(1)
		d.logger.Warn("dropping command with bad parameters",
			"transaction_id", env.TransactionID,
			"camera_idx", env.CameraIdx,
			"command", cmd.String(),
			"error", opErr)
		return opErr
	}

	if opErr != nil {
		d.logger.Warn("command failed",
			"transaction_id", env.TransactionID,
			"camera_idx", env.CameraIdx,
			"command", cmd.String(),
			"error", opErr)
		if payload == nil {
			payload = protocol.ErrorPayload{Error: opErr.Error()}
		}
	}

	if err := d.respond(env.Reply(payload)); err != nil {
		return errors.Join(opErr, err)
	}
	return opErr
}

// Reject answers env with an error payload without touching a device.
// Used for commands addressed to an unknown camera index.
func (d *Dispatcher) Reject(env protocol.CommandEnvelope, reason error) error {
	d.commands.Add(1)
	d.failures.Add(1)
	d.recorder.RecordCommand(env.CameraIdx, env.Command().String(), false, 0)
	d.logger.Warn("rejecting command",
		"transaction_id", env.TransactionID,
		"camera_idx", env.CameraIdx,
		"cmd_idx", env.CmdIdx,
		"error", reason)
	return d.respond(env.Reply(protocol.ErrorPayload{Error: reason.Error()}))
}

// Init re-enumerates devices and answers with the new device count.
// The response carries camera index -1 and the Init command code.
func (d *Dispatcher) Init(ctx context.Context, env protocol.CommandEnvelope) error {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	d.commands.Add(1)
	return d.init(ctx, env)
}

func (d *Dispatcher) init(ctx context.Context, env protocol.CommandEnvelope) error {
	start := time.Now()
	if d.enumerator == nil {
		d.failures.Add(1)
		return ErrNoEnumerator
	}

	n, err := d.enumerator.Rebuild(ctx)
	d.recorder.RecordCommand(initCameraIdx, protocol.CmdInit.String(), err == nil, time.Since(start))
	d.enumerations.Add(1)
	d.lastEnumerated.Store(int64(n))
	if err != nil {
		d.failures.Add(1)
		d.logger.Error("re-enumeration incomplete", "devices", n, "error", err)
	} else {
		d.logger.Info("re-enumerated devices", "devices", n)
	}

	resp := protocol.ResponseEnvelope{
		TransactionID: env.TransactionID,
		CameraIdx:     initCameraIdx,
		CmdIdx:        int(protocol.CmdInit),
		Payload:       protocol.NewInitPayload(n),
	}
	if pubErr := d.respond(resp); pubErr != nil {
		return errors.Join(err, pubErr)
	}
	return err
}

// respond encodes and publishes a command response, waiting for the ack.
func (d *Dispatcher) respond(resp protocol.ResponseEnvelope) error {
	b, err := d.codec.EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := d.pub.Publish(d.topic, b, d.qos, false); err != nil {
		d.publishErrors.Add(1)
		d.logger.Error("failed to publish response",
			"transaction_id", resp.TransactionID,
			"camera_idx", resp.CameraIdx,
			"error", err)
		return fmt.Errorf("publishing response: %w", err)
	}
	return nil
}

func isParamError(err error) bool {
	return errors.Is(err, protocol.ErrMissingParam) || errors.Is(err, protocol.ErrInvalidParam)
}
