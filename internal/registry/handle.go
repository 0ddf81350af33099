package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/camgate/internal/camera"
)

// Handle is one camera in the registry.
type Handle struct {
	kind  camera.Kind
	index int
	info  camera.DeviceInfo

	mu     sync.Mutex
	cam    camera.Capability
	closed bool

	// session is written under mu and read without it by Capturing.
	session atomic.Pointer[captureSession]
}

type captureSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newHandle(kind camera.Kind, index int, info camera.DeviceInfo, cam camera.Capability) *Handle {
	info.Index = index
	return &Handle{kind: kind, index: index, info: info, cam: cam}
}

// Kind returns the device family tag.
func (h *Handle) Kind() camera.Kind { return h.kind }

// Index returns the global index clients address the device by.
func (h *Handle) Index() int { return h.index }

// Info returns the DeviceInfo cached at enumeration, with Index set to
// the global index. It does not take the device lock.
func (h *Handle) Info() camera.DeviceInfo { return h.info }

// Do runs fn while holding the device lock.
// Returns ErrHandleClosed without calling fn if the handle was closed.
func (h *Handle) Do(fn func(dev *Device) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHandleClosed
	}
	return fn(&Device{Capability: h.cam, h: h})
}

// Capturing reports whether a capture session is active. It does not
// take the device lock, so it never waits behind an in-flight frame.
func (h *Handle) Capturing() bool {
	s := h.session.Load()
	return s != nil && s.ctx.Err() == nil
}

// close ends any capture session and closes the capability.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.endSession()
	h.cam.SetCapturing(false)
	return h.cam.Close()
}

func (h *Handle) endSession() {
	if s := h.session.Swap(nil); s != nil {
		s.cancel()
	}
}

// Device is the locked view of a Handle passed to Do. It must not be
// retained after fn returns.
type Device struct {
	camera.Capability
	h *Handle
}

// Index returns the global index of the device.
func (d *Device) Index() int { return d.h.index }

// BeginSession starts a capture session derived from parent, ending any
// previous one. The returned context is cancelled by EndSession, by the
// next BeginSession or when the handle closes.
func (d *Device) BeginSession(parent context.Context) context.Context {
	d.h.endSession()
	ctx, cancel := context.WithCancel(parent)
	d.h.session.Store(&captureSession{ctx: ctx, cancel: cancel})
	return ctx
}

// EndSession cancels the active capture session, if any.
func (d *Device) EndSession() {
	d.h.endSession()
}
