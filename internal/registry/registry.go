package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/camgate/internal/camera"
)

// Logger defines the logging interface used by the Registry.
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

// Enumeration triggers passed to observers.
const (
	TriggerStartup = "startup"
	TriggerInit    = "init"
)

// Entry describes one enumerated device.
type Entry struct {
	Kind  camera.Kind
	Index int
	Info  camera.DeviceInfo
}

// Observer is notified after every successful Build or Rebuild.
type Observer interface {
	Enumerated(ctx context.Context, trigger string, entries []Entry) error
}

// Registry is the ordered set of camera handles.
//
// All public methods are thread-safe.
type Registry struct {
	drivers []camera.Driver

	mu      sync.RWMutex
	handles []*Handle

	rebuilds singleflight.Group
	observer Observer
	logger   Logger
}

// New creates an empty registry over drivers. Drivers are enumerated in
// Kind order regardless of the order given.
func New(drivers ...camera.Driver) *Registry {
	sorted := slices.Clone(drivers)
	slices.SortStableFunc(sorted, func(a, b camera.Driver) int {
		return int(a.Kind()) - int(b.Kind())
	})
	return &Registry{drivers: sorted, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver sets the enumeration observer.
func (r *Registry) SetObserver(o Observer) {
	r.observer = o
}

// Build enumerates all drivers and installs the handles. It is meant for
// startup; use Rebuild to replace an existing set.
//
// A driver or device that fails to enumerate is skipped and reported in
// an ErrEnumeration error; the rest are installed.
func (r *Registry) Build(ctx context.Context) (int, error) {
	handles, enumErr := r.enumerate(ctx)

	r.mu.Lock()
	old := r.handles
	r.handles = handles
	r.mu.Unlock()

	r.closeAll(old)
	r.notify(ctx, TriggerStartup, handles)

	return len(handles), enumErr
}

// Rebuild closes every existing handle, best effort, then enumerates
// again. Concurrent callers share one rebuild and its result.
func (r *Registry) Rebuild(ctx context.Context) (int, error) {
	v, err, _ := r.rebuilds.Do("rebuild", func() (any, error) {
		// Device locks are only taken with r.mu released, so a device
		// stuck mid-frame delays this rebuild but not Get or Len.
		r.mu.Lock()
		old := r.handles
		r.handles = nil
		r.mu.Unlock()

		r.closeAll(old)
		handles, enumErr := r.enumerate(ctx)

		r.mu.Lock()
		r.handles = handles
		r.mu.Unlock()

		r.notify(ctx, TriggerInit, handles)
		return len(handles), enumErr
	})
	n, _ := v.(int)
	return n, err
}

func (r *Registry) enumerate(ctx context.Context) ([]*Handle, error) {
	var (
		handles []*Handle
		errs    []error
	)

	for _, drv := range r.drivers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		count, err := drv.Count(ctx)
		if err != nil {
			r.logger.Warn("camera driver enumeration failed", "kind", drv.Kind(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", drv.Kind(), err))
			continue
		}

		for i := 0; i < count; i++ {
			cam, err := drv.Open(ctx, i)
			if err != nil {
				r.logger.Warn("camera open failed", "kind", drv.Kind(), "kind_index", i, "error", err)
				errs = append(errs, fmt.Errorf("%s[%d]: %w", drv.Kind(), i, err))
				continue
			}
			info, err := cam.Info()
			if err != nil {
				r.logger.Warn("camera info failed", "kind", drv.Kind(), "kind_index", i, "error", err)
				errs = append(errs, fmt.Errorf("%s[%d] info: %w", drv.Kind(), i, err))
				_ = cam.Close() //nolint:errcheck // Best effort on a device we are discarding
				continue
			}

			h := newHandle(drv.Kind(), len(handles), info, cam)
			handles = append(handles, h)
			r.logger.Debug("camera enumerated", "kind", h.Kind(), "camera_idx", h.Index(), "name", info.Name)
		}
	}

	r.logger.Info("camera enumeration complete", "cameras", len(handles))

	if len(errs) > 0 {
		return handles, fmt.Errorf("%w: %w", ErrEnumeration, errors.Join(errs...))
	}
	return handles, nil
}

// closeAll closes every handle. A failure on one does not stop the rest.
func (r *Registry) closeAll(handles []*Handle) {
	for _, h := range handles {
		if err := h.close(); err != nil {
			r.logger.Warn("camera close failed", "kind", h.Kind(), "camera_idx", h.Index(), "error", err)
		}
	}
}

func (r *Registry) notify(ctx context.Context, trigger string, handles []*Handle) {
	if r.observer == nil {
		return
	}
	entries := make([]Entry, len(handles))
	for i, h := range handles {
		entries[i] = Entry{Kind: h.Kind(), Index: h.Index(), Info: h.Info()}
	}
	if err := r.observer.Enumerated(ctx, trigger, entries); err != nil {
		r.logger.Warn("enumeration observer failed", "trigger", trigger, "error", err)
	}
}

// Get returns the handle at idx.
func (r *Registry) Get(idx int) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if idx < 0 || idx >= len(r.handles) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, idx, len(r.handles))
	}
	return r.handles[idx], nil
}

// Len returns the number of handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Handles returns a snapshot of all handles in index order.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handles)
}

// Capturing returns the number of handles with an active capture session.
func (r *Registry) Capturing() int {
	n := 0
	for _, h := range r.Handles() {
		if h.Capturing() {
			n++
		}
	}
	return n
}

// Close closes every handle and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	old := r.handles
	r.handles = nil
	r.mu.Unlock()

	r.closeAll(old)
	return nil
}
