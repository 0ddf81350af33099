package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/camgate/internal/camera"
	"github.com/nerrad567/camgate/internal/dispatch"
	"github.com/nerrad567/camgate/internal/infrastructure/config"
	"github.com/nerrad567/camgate/internal/infrastructure/mqtt"
	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
)

// MockMQTTClient implements MQTTClient and dispatch.Publisher for testing.
type MockMQTTClient struct {
	mu           sync.Mutex
	published    []mockPublish
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	connected    bool
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]mqtt.MessageHandler),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{Topic: topic, Payload: payload, QoS: qos, Retained: retained})
	return nil
}

// PublishRetained mirrors the client default of mqtt.qos 1.
func (m *MockMQTTClient) PublishRetained(topic string, payload []byte) error {
	return m.Publish(topic, payload, 1, true)
}

func (m *MockMQTTClient) PublishAsync(topic string, payload []byte, qos byte) error {
	return m.Publish(topic, payload, qos, false)
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

// Unsubscribe records the topic. The handler stays registered so tests
// can deliver messages that were already in flight.
func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, topic)
	return nil
}

func (m *MockMQTTClient) Unsubscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unsubscribed...)
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	m.mu.Unlock()
}

func (m *MockMQTTClient) SimulateMessage(t *testing.T, topic, payload string) error {
	t.Helper()
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %s", topic)
	}
	return handler(topic, []byte(payload))
}

func (m *MockMQTTClient) GetPublished(topic string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

var testTopics = mqtt.NewTopics(config.MQTTTopicsConfig{
	Command:  "camera/instr",
	Init:     "camera/init",
	Response: "camera/response",
	Status:   "camera/gateway/status",
})

type testGateway struct {
	rt   *Runtime
	mqtt *MockMQTTClient
	reg  *registry.Registry
}

func newTestGateway(t *testing.T, cameras int) *testGateway {
	t.Helper()

	reg := registry.New(camera.NewSimulatedDriver(camera.SimulatedOptions{
		Count: cameras, Width: 32, Height: 24, FrameInterval: time.Millisecond,
	}))
	if _, err := reg.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	client := NewMockMQTTClient()
	d, err := dispatch.New(dispatch.Options{
		Publisher:  client,
		Codec:      protocol.JSONCodec{},
		Topic:      testTopics.Response(),
		QoS:        1,
		Enumerator: reg,
	})
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}

	rt, err := New(Options{
		GatewayID:      "gw-test",
		Version:        "test",
		MQTT:           client,
		Topics:         testTopics,
		QoS:            1,
		Codec:          protocol.JSONCodec{},
		Registry:       reg,
		Dispatcher:     d,
		HealthInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(rt.Stop)

	return &testGateway{rt: rt, mqtt: client, reg: reg}
}

func (g *testGateway) responses(t *testing.T) []protocol.DecodedResponse {
	t.Helper()
	var out []protocol.DecodedResponse
	for _, p := range g.mqtt.GetPublished(testTopics.Response()) {
		r, err := protocol.JSONCodec{}.DecodeResponse(p.Payload)
		if err != nil {
			t.Fatalf("DecodeResponse() error = %v", err)
		}
		out = append(out, r)
	}
	return out
}

func (g *testGateway) waitResponses(t *testing.T, n int) []protocol.DecodedResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resps := g.responses(t)
		if len(resps) >= n {
			return resps
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d responses, want %d", len(resps), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_MissingDependencies(t *testing.T) {
	client := NewMockMQTTClient()
	reg := registry.New()
	d, _ := dispatch.New(dispatch.Options{Publisher: client, Codec: protocol.JSONCodec{}, Topic: "r"})

	tests := []struct {
		name string
		opts Options
	}{
		{"no mqtt", Options{Codec: protocol.JSONCodec{}, Registry: reg, Dispatcher: d}},
		{"no codec", Options{MQTT: client, Registry: reg, Dispatcher: d}},
		{"no registry", Options{MQTT: client, Codec: protocol.JSONCodec{}, Dispatcher: d}},
		{"no dispatcher", Options{MQTT: client, Codec: protocol.JSONCodec{}, Registry: reg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, ErrMissingDependency) {
				t.Errorf("New() error = %v, want ErrMissingDependency", err)
			}
		})
	}
}

func TestStart_SubscribesAndPublishesStarting(t *testing.T) {
	g := newTestGateway(t, 1)

	for _, topic := range testTopics.Inbound() {
		g.mqtt.mu.Lock()
		_, ok := g.mqtt.handlers[topic]
		g.mqtt.mu.Unlock()
		if !ok {
			t.Errorf("not subscribed to %s", topic)
		}
	}

	status := g.mqtt.GetPublished(testTopics.Status())
	if len(status) == 0 {
		t.Fatal("no status published")
	}
	var msg HealthMessage
	if err := json.Unmarshal(status[0].Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Status != HealthStarting || !status[0].Retained {
		t.Errorf("first status = %+v retained=%v, want retained starting", msg, status[0].Retained)
	}
	if msg.InstanceID != g.rt.InstanceID() || msg.GatewayID != "gw-test" {
		t.Errorf("identity = %s/%s", msg.GatewayID, msg.InstanceID)
	}
}

func TestHandleMessage_Dispatches(t *testing.T) {
	g := newTestGateway(t, 2)

	err := g.mqtt.SimulateMessage(t, testTopics.Command(), `{"transaction_id":"abc","camera_idx":1,"cmd_idx":0}`)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}

	r := g.waitResponses(t, 1)[0]
	if r.TransactionID != "abc" || r.CameraIdx != 1 || r.CmdIdx != 0 {
		t.Errorf("response = %+v", r)
	}
	if !strings.Contains(string(r.Data), `"idx":1`) {
		t.Errorf("data = %s", r.Data)
	}
}

func TestHandleMessage_MalformedDropped(t *testing.T) {
	g := newTestGateway(t, 1)

	inputs := []string{
		`not json`,
		`{"transaction_id":"x","camera_idx":0}`,
		`{"camera_idx":0,"cmd_idx":0}`,
		`{"transaction_id":"t","camera_idx":0,"cmd_idx":0} {"garbage`,
	}
	for _, in := range inputs {
		if err := g.mqtt.SimulateMessage(t, testTopics.Command(), in); err == nil {
			t.Errorf("handler(%s) error = nil, want decode error", in)
		}
	}

	g.rt.Stop()
	if n := len(g.responses(t)); n != 0 {
		t.Errorf("published %d responses, want 0", n)
	}
	if got := g.rt.Snapshot().Malformed; got != uint64(len(inputs)) {
		t.Errorf("Malformed = %d, want %d", got, len(inputs))
	}
}

func TestHandleMessage_OutOfRange(t *testing.T) {
	g := newTestGateway(t, 1)

	for _, idx := range []string{"-1", "1", "99"} {
		payload := `{"transaction_id":"t","camera_idx":` + idx + `,"cmd_idx":2}`
		if err := g.mqtt.SimulateMessage(t, testTopics.Command(), payload); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}

	for _, r := range g.waitResponses(t, 3) {
		var p protocol.ErrorPayload
		if err := json.Unmarshal(r.Data, &p); err != nil || p.Error == "" {
			t.Errorf("response data = %s, want an error payload", r.Data)
		}
	}
}

func TestHandleMessage_Init(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		cmd   string
	}{
		{"init topic", testTopics.Init(), "8"},
		{"init code on command topic", testTopics.Command(), "8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, 3)
			payload := `{"transaction_id":"i","camera_idx":0,"cmd_idx":` + tt.cmd + `}`
			if err := g.mqtt.SimulateMessage(t, tt.topic, payload); err != nil {
				t.Fatalf("handler error = %v", err)
			}

			r := g.waitResponses(t, 1)[0]
			if r.CameraIdx != -1 || r.CmdIdx != 8 || string(r.Data) != `{"num_device":"3"}` {
				t.Errorf("response = %+v data=%s", r, r.Data)
			}
		})
	}
}

func TestStop_EndsCaptureStreams(t *testing.T) {
	g := newTestGateway(t, 2)

	for _, idx := range []string{"0", "1"} {
		payload := `{"transaction_id":"s` + idx + `","camera_idx":` + idx + `,"cmd_idx":6}`
		if err := g.mqtt.SimulateMessage(t, testTopics.Command(), payload); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}
	deadline := time.Now().Add(5 * time.Second)
	for g.rt.Snapshot().Stats.ActiveStreams != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ActiveStreams = %d, want 2", g.rt.Snapshot().Stats.ActiveStreams)
		}
		time.Sleep(time.Millisecond)
	}
	g.waitResponses(t, 2)

	stopped := make(chan struct{})
	go func() {
		g.rt.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if g.reg.Capturing() != 0 {
		t.Errorf("Capturing() = %d after stop", g.reg.Capturing())
	}

	status := g.mqtt.GetPublished(testTopics.Status())
	var last HealthMessage
	if err := json.Unmarshal(status[len(status)-1].Payload, &last); err != nil {
		t.Fatal(err)
	}
	if last.Status != HealthStopping {
		t.Errorf("last status = %s, want stopping", last.Status)
	}

	if got, want := g.mqtt.Unsubscribed(), testTopics.Inbound(); !slices.Equal(got, want) {
		t.Errorf("unsubscribed = %v, want %v", got, want)
	}

	// Messages after stop are ignored.
	before := len(g.responses(t))
	_ = g.mqtt.SimulateMessage(t, testTopics.Command(), `{"transaction_id":"late","camera_idx":0,"cmd_idx":0}`)
	time.Sleep(10 * time.Millisecond)
	if after := len(g.responses(t)); after != before {
		t.Errorf("responses grew from %d to %d after stop", before, after)
	}
}

func TestStop_DisconnectedSkipsUnsubscribe(t *testing.T) {
	g := newTestGateway(t, 1)
	g.mqtt.SetConnected(false)
	g.rt.Stop()

	if got := g.mqtt.Unsubscribed(); len(got) != 0 {
		t.Errorf("unsubscribed = %v, want none while disconnected", got)
	}
}

func TestStart_AfterStop(t *testing.T) {
	g := newTestGateway(t, 1)
	g.rt.Stop()

	if err := g.rt.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Start() error = %v, want ErrStopped", err)
	}
}
