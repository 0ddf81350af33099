package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/camgate/internal/camera"
)

// fakeDriver opens simulated cameras but reports a configurable kind,
// count error and per-index close errors.
type fakeDriver struct {
	kind     camera.Kind
	count    int
	countErr error
	closeErr map[int]error

	mu     sync.Mutex
	opened []*closeTracking
}

type closeTracking struct {
	camera.Capability
	err    error
	closed atomic.Bool
}

func (c *closeTracking) Close() error {
	c.closed.Store(true)
	c.Capability.Close() //nolint:errcheck // Underlying close result is not under test
	return c.err
}

func (d *fakeDriver) Kind() camera.Kind { return d.kind }

func (d *fakeDriver) Count(context.Context) (int, error) {
	return d.count, d.countErr
}

func (d *fakeDriver) Open(_ context.Context, idx int) (camera.Capability, error) {
	cam := &closeTracking{
		Capability: camera.NewSimulatedCamera(idx, 32, 16, 0),
		err:        d.closeErr[idx],
	}
	d.mu.Lock()
	d.opened = append(d.opened, cam)
	d.mu.Unlock()
	return cam, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	triggers []string
	counts   []int
}

func (o *recordingObserver) Enumerated(_ context.Context, trigger string, entries []Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.triggers = append(o.triggers, trigger)
	o.counts = append(o.counts, len(entries))
	return nil
}

func TestBuild_OrdersKinds(t *testing.T) {
	hw := &fakeDriver{kind: camera.KindHardware, count: 1}
	sim := &fakeDriver{kind: camera.KindSimulated, count: 2}

	r := New(hw, sim)
	n, err := r.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n != 3 || r.Len() != 3 {
		t.Fatalf("Build() = %d, Len() = %d; want 3", n, r.Len())
	}

	wantKinds := []camera.Kind{camera.KindSimulated, camera.KindSimulated, camera.KindHardware}
	for i, want := range wantKinds {
		h, err := r.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
		if h.Kind() != want {
			t.Errorf("Get(%d).Kind() = %v, want %v", i, h.Kind(), want)
		}
		if h.Index() != i || h.Info().Index != i {
			t.Errorf("Get(%d) index = %d, info index = %d", i, h.Index(), h.Info().Index)
		}
	}
}

func TestGet_OutOfRange(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 1})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, idx := range []int{-1, 1, 100} {
		if _, err := r.Get(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Get(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestBuild_PartialEnumeration(t *testing.T) {
	hw := &fakeDriver{kind: camera.KindHardware, countErr: errors.New("usb bus reset")}
	sim := &fakeDriver{kind: camera.KindSimulated, count: 2}

	r := New(sim, hw)
	n, err := r.Build(context.Background())
	if !errors.Is(err, ErrEnumeration) {
		t.Fatalf("Build() error = %v, want ErrEnumeration", err)
	}
	if n != 2 {
		t.Errorf("Build() = %d, want 2 simulated cameras installed", n)
	}
}

func TestRebuild_ClosesEveryHandle(t *testing.T) {
	sim := &fakeDriver{
		kind:     camera.KindSimulated,
		count:    3,
		closeErr: map[int]error{0: errors.New("stuck")},
	}
	obs := &recordingObserver{}

	r := New(sim)
	r.SetObserver(obs)
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	old := r.Handles()

	n, err := r.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Rebuild() = %d, want 3", n)
	}

	sim.mu.Lock()
	for i, cam := range sim.opened[:3] {
		if !cam.closed.Load() {
			t.Errorf("camera %d from first build was not closed", i)
		}
	}
	sim.mu.Unlock()

	for _, h := range old {
		err := h.Do(func(*Device) error { return nil })
		if !errors.Is(err, ErrHandleClosed) {
			t.Errorf("Do() on old handle error = %v, want ErrHandleClosed", err)
		}
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.triggers) != 2 || obs.triggers[0] != TriggerStartup || obs.triggers[1] != TriggerInit {
		t.Errorf("observer triggers = %v", obs.triggers)
	}
}

func TestRebuild_CancelsSession(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 1})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h, _ := r.Get(0)

	var session context.Context
	if err := h.Do(func(dev *Device) error {
		session = dev.BeginSession(context.Background())
		dev.SetCapturing(true)
		return nil
	}); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !h.Capturing() || r.Capturing() != 1 {
		t.Fatal("expected an active capture session")
	}

	if _, err := r.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if session.Err() == nil {
		t.Error("session not cancelled by Rebuild")
	}
	if r.Capturing() != 0 {
		t.Errorf("Capturing() = %d after Rebuild, want 0", r.Capturing())
	}
}

func TestRebuild_Concurrent(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 2})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n, err := r.Rebuild(context.Background()); err != nil || n != 2 {
				t.Errorf("Rebuild() = %d, %v", n, err)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRebuild_StuckDeviceDoesNotBlockLookups(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 2})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h, _ := r.Get(0)

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = h.Do(func(*Device) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	rebuilt := make(chan int, 1)
	go func() {
		n, _ := r.Rebuild(context.Background())
		rebuilt <- n
	}()

	// The rebuild is parked on device 0; lookups must still answer.
	lookups := make(chan struct{})
	go func() {
		defer close(lookups)
		for r.Len() != 0 {
			time.Sleep(time.Millisecond)
		}
		_, _ = r.Get(1)
		_ = r.Capturing()
	}()

	select {
	case <-lookups:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("registry lookups blocked behind a rebuild waiting on device 0")
	}

	close(release)
	select {
	case n := <-rebuilt:
		if n != 2 {
			t.Errorf("Rebuild() = %d, want 2", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Rebuild() did not finish after the device was released")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d after Rebuild, want 2", r.Len())
	}
}

func TestCapturing_DoesNotWaitForDeviceLock(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 1})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h, _ := r.Get(0)

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = h.Do(func(dev *Device) error {
			dev.BeginSession(context.Background())
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	got := make(chan int, 1)
	go func() { got <- r.Capturing() }()

	select {
	case n := <-got:
		if n != 1 {
			t.Errorf("Capturing() = %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Capturing() blocked behind the device lock")
	}
}

func TestSession_BeginEnd(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 1})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h, _ := r.Get(0)

	var first, second context.Context
	_ = h.Do(func(dev *Device) error {
		first = dev.BeginSession(context.Background())
		second = dev.BeginSession(context.Background())
		return nil
	})
	if first.Err() == nil {
		t.Error("first session not cancelled by second BeginSession")
	}
	if second.Err() != nil {
		t.Error("second session cancelled early")
	}

	_ = h.Do(func(dev *Device) error {
		dev.EndSession()
		return nil
	})
	if second.Err() == nil {
		t.Error("EndSession did not cancel the session")
	}
	if h.Capturing() {
		t.Error("Capturing() = true after EndSession")
	}
}

func TestDo_DifferentDevicesDoNotBlock(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 2})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	a, _ := r.Get(0)
	b, _ := r.Get(1)

	release := make(chan struct{})
	holding := make(chan struct{})
	go func() {
		_ = a.Do(func(*Device) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = b.Do(func(*Device) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Do() on device 1 blocked behind device 0")
	}
}

func TestDo_SameDeviceSerialised(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 1})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h, _ := r.Get(0)

	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Do(func(*Device) error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if overlaps.Load() != 0 {
		t.Errorf("observed %d overlapping Do calls", overlaps.Load())
	}
}

func TestClose(t *testing.T) {
	r := New(&fakeDriver{kind: camera.KindSimulated, count: 2})
	if _, err := r.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", r.Len())
	}
}
