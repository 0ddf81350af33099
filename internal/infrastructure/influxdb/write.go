package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommand = "camera_command"
	MeasurementFrame   = "camera_frame"
	MeasurementStream  = "camera_stream"
	MeasurementGateway = "gateway"
)

// Command outcomes used as the outcome tag.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// RecordCommand writes one point per handled command.
func (c *Client) RecordCommand(cameraIdx int, command string, ok bool, elapsed time.Duration) {
	c.write(commandPoint(cameraIdx, command, ok, elapsed, time.Now()))
}

// RecordFrame writes one point per published frame.
func (c *Client) RecordFrame(cameraIdx int, size int, elapsed time.Duration) {
	c.write(framePoint(cameraIdx, size, elapsed, time.Now()))
}

// RecordStream writes a point when a capture stream starts or ends.
// frames is the number of frames published by the ending stream.
func (c *Client) RecordStream(cameraIdx int, active bool, frames int) {
	c.write(streamPoint(cameraIdx, active, frames, time.Now()))
}

// RecordGateway writes a gateway snapshot, normally from the health loop.
func (c *Client) RecordGateway(cameras, capturing int) {
	c.write(write.NewPoint(
		MeasurementGateway,
		nil,
		map[string]interface{}{
			"cameras":   cameras,
			"capturing": capturing,
		},
		time.Now(),
	))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func commandPoint(cameraIdx int, command string, ok bool, elapsed time.Duration, ts time.Time) *write.Point {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeError
	}
	return write.NewPoint(
		MeasurementCommand,
		map[string]string{
			"camera_idx": strconv.Itoa(cameraIdx),
			"command":    command,
			"outcome":    outcome,
		},
		map[string]interface{}{
			"latency_ms": float64(elapsed.Microseconds()) / 1000,
		},
		ts,
	)
}

func framePoint(cameraIdx int, size int, elapsed time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFrame,
		map[string]string{
			"camera_idx": strconv.Itoa(cameraIdx),
		},
		map[string]interface{}{
			"bytes":      size,
			"acquire_ms": float64(elapsed.Microseconds()) / 1000,
		},
		ts,
	)
}

func streamPoint(cameraIdx int, active bool, frames int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementStream,
		map[string]string{
			"camera_idx": strconv.Itoa(cameraIdx),
		},
		map[string]interface{}{
			"active": active,
			"frames": frames,
		},
		ts,
	)
}
