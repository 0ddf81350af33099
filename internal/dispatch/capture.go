package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
)

// capture starts a stream on h and publishes frames until the session
// ends, capture is switched off or acquisition fails. A terminal {} is
// published when the stream ends.
func (d *Dispatcher) capture(ctx context.Context, h *registry.Handle, env protocol.CommandEnvelope) error {
	start := time.Now()

	var session context.Context
	err := h.Do(func(dev *registry.Device) error {
		dev.SetCapturing(true)
		if err := dev.StartCapture(); err != nil {
			dev.SetCapturing(false)
			return fmt.Errorf("starting capture: %w", err)
		}
		session = dev.BeginSession(ctx)
		return nil
	})
	if err != nil {
		return d.finish(env, protocol.CmdStartCapture, nil, err, time.Since(start))
	}

	d.activeStreams.Add(1)
	d.recorder.RecordStream(env.CameraIdx, true, 0)
	d.logger.Info("capture started",
		"transaction_id", env.TransactionID,
		"camera_idx", env.CameraIdx)

	frames, streamErr := d.stream(session, h, env)

	d.activeStreams.Add(-1)
	d.recorder.RecordStream(env.CameraIdx, false, frames)
	d.logger.Info("capture ended",
		"transaction_id", env.TransactionID,
		"camera_idx", env.CameraIdx,
		"frames", frames)

	if errors.Is(streamErr, registry.ErrHandleClosed) {
		streamErr = nil
	}
	return d.finish(env, protocol.CmdStartCapture, protocol.EmptyPayload{}, streamErr, time.Since(start))
}

// stream runs the frame loop. Each iteration holds the device lock for
// one acquisition and one publish.
func (d *Dispatcher) stream(session context.Context, h *registry.Handle, env protocol.CommandEnvelope) (int, error) {
	frames := 0
	for {
		done := false
		err := h.Do(func(dev *registry.Device) error {
			if session.Err() != nil || !dev.IsCapturing() {
				done = true
				return nil
			}

			acquired := time.Now()
			frame, err := dev.Frame(session)
			if err != nil {
				if session.Err() != nil {
					done = true
					return nil
				}
				dev.SetCapturing(false)
				if stopErr := dev.StopCapture(); stopErr != nil {
					d.logger.Warn("stop after failed acquisition", "camera_idx", env.CameraIdx, "error", stopErr)
				}
				dev.EndSession()
				return fmt.Errorf("acquiring frame: %w", err)
			}
			elapsed := time.Since(acquired)

			d.publishFrame(env, frame)
			d.recorder.RecordFrame(env.CameraIdx, len(frame), elapsed)
			frames++
			return nil
		})
		if err != nil {
			return frames, err
		}
		if done {
			return frames, nil
		}
	}
}

// publishFrame sends one frame response. Publish failures are counted
// and logged; the stream continues.
func (d *Dispatcher) publishFrame(env protocol.CommandEnvelope, frame []byte) {
	b, err := d.codec.EncodeResponse(env.Reply(protocol.FramePayload{Frame: frame}))
	if err != nil {
		d.publishErrors.Add(1)
		d.logger.Error("failed to encode frame", "camera_idx", env.CameraIdx, "error", err)
		return
	}

	if d.waitForAck {
		err = d.pub.Publish(d.topic, b, d.frameQoS, false)
	} else {
		err = d.pub.PublishAsync(d.topic, b, d.frameQoS)
	}
	if err != nil {
		d.publishErrors.Add(1)
		d.logger.Warn("failed to publish frame", "camera_idx", env.CameraIdx, "bytes", len(b), "error", err)
		return
	}

	d.frames.Add(1)
	d.frameBytes.Add(uint64(len(frame)))
}
