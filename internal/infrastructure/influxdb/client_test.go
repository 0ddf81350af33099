package influxdb

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/camgate/internal/infrastructure/config"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "camgate-dev-token",
		Org:           "camgate",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip skips the test when no InfluxDB is reachable, unless
// RUN_INTEGRATION is set.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(testConfig(), "camgate-test")
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") != "" {
			t.Fatalf("Connect() error = %v", err)
		}
		t.Skip("InfluxDB not available, skipping integration test")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func tagValue(t *testing.T, tags map[string]string, key string) string {
	t.Helper()
	v, ok := tags[key]
	if !ok {
		t.Fatalf("tag %q missing", key)
	}
	return v
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(cfg, "gw")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := Connect(cfg, "gw")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCommandPoint(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := commandPoint(2, "SetRoi", false, 1500*time.Microsecond, ts)

	if p.Name() != MeasurementCommand {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementCommand)
	}
	if !p.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", p.Time(), ts)
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if got := tagValue(t, tags, "camera_idx"); got != "2" {
		t.Errorf("camera_idx = %q, want 2", got)
	}
	if got := tagValue(t, tags, "command"); got != "SetRoi" {
		t.Errorf("command = %q, want SetRoi", got)
	}
	if got := tagValue(t, tags, "outcome"); got != OutcomeError {
		t.Errorf("outcome = %q, want %q", got, OutcomeError)
	}

	fields := p.FieldList()
	if len(fields) != 1 || fields[0].Key != "latency_ms" || fields[0].Value != 1.5 {
		t.Errorf("fields = %+v, want latency_ms=1.5", fields)
	}
}

func TestFramePoint(t *testing.T) {
	p := framePoint(0, 4096, 2*time.Millisecond, time.Now())

	if p.Name() != MeasurementFrame {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementFrame)
	}

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	// write.NewPoint converts int to int64.
	if fields["bytes"] != int64(4096) {
		t.Errorf("bytes = %v (%T), want 4096", fields["bytes"], fields["bytes"])
	}
	if fields["acquire_ms"] != 2.0 {
		t.Errorf("acquire_ms = %v, want 2", fields["acquire_ms"])
	}
}

func TestStreamPoint(t *testing.T) {
	p := streamPoint(3, false, 120, time.Now())

	if p.Name() != MeasurementStream {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementStream)
	}
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["active"] != false {
		t.Errorf("active = %v, want false", fields["active"])
	}
	if fields["frames"] != int64(120) {
		t.Errorf("frames = %v (%T), want 120", fields["frames"], fields["frames"])
	}
}

func TestWrites_NoopWhenClosed(t *testing.T) {
	c := &Client{}

	// None of these may touch the nil write API.
	c.RecordCommand(0, "GetInfo", true, time.Millisecond)
	c.RecordFrame(0, 10, time.Millisecond)
	c.RecordStream(0, true, 0)
	c.RecordGateway(1, 0)
	c.Flush()

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestHandleWriteErrors_WrapsWriteFailed(t *testing.T) {
	c := &Client{}
	var got []error
	c.SetOnError(func(err error) { got = append(got, err) })

	cause := errors.New("503 service unavailable")
	ch := make(chan error, 1)
	ch <- cause
	close(ch)
	c.handleWriteErrors(ch)

	if len(got) != 1 {
		t.Fatalf("callback calls = %d, want 1", len(got))
	}
	if !errors.Is(got[0], ErrWriteFailed) || !errors.Is(got[0], cause) {
		t.Errorf("callback error = %v, want ErrWriteFailed wrapping the cause", got[0])
	}
}

func TestIntegration_RecordAndFlush(t *testing.T) {
	client := connectOrSkip(t)

	var writeErr error
	var mu sync.Mutex
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.RecordCommand(0, "GetInfo", true, 3*time.Millisecond)
	client.RecordFrame(0, 1912*1304, 40*time.Millisecond)
	client.RecordGateway(1, 1)
	client.Flush()

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
