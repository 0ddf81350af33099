package camera

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SimulatedOptions configures the simulated kind.
type SimulatedOptions struct {
	Count         int
	Width         int
	Height        int
	FrameInterval time.Duration
}

// SimulatedDriver produces in-memory cameras with stateful ROI and
// controls. Frames are synthetic gradients sized from the current ROI.
type SimulatedDriver struct {
	opts SimulatedOptions
}

// NewSimulatedDriver creates a driver for opts.Count simulated cameras.
func NewSimulatedDriver(opts SimulatedOptions) *SimulatedDriver {
	return &SimulatedDriver{opts: opts}
}

// Kind returns KindSimulated.
func (d *SimulatedDriver) Kind() Kind { return KindSimulated }

// Count returns the configured number of cameras.
func (d *SimulatedDriver) Count(context.Context) (int, error) {
	return d.opts.Count, nil
}

// Open creates the idx-th simulated camera.
func (d *SimulatedDriver) Open(_ context.Context, idx int) (Capability, error) {
	if idx < 0 || idx >= d.opts.Count {
		return nil, fmt.Errorf("%w: simulated index %d", ErrNoDevice, idx)
	}
	return NewSimulatedCamera(idx, d.opts.Width, d.opts.Height, d.opts.FrameInterval), nil
}

type simControl struct {
	caps  ControlCaps
	value int64
	auto  bool
}

// SimulatedCamera is a Capability backed by memory.
type SimulatedCamera struct {
	mu        sync.Mutex
	info      DeviceInfo
	roi       ROI
	controls  map[ControlType]*simControl
	interval  time.Duration
	capturing bool
	started   bool
	closed    bool
	seq       uint8
}

// NewSimulatedCamera returns an open simulated camera with a full-frame
// RAW8 ROI at bin 1.
func NewSimulatedCamera(idx, width, height int, interval time.Duration) *SimulatedCamera {
	info := DeviceInfo{
		Name:           "Simulated Camera",
		Index:          idx,
		MaxWidth:       width,
		MaxHeight:      height,
		SupportedTypes: []ImgType{ImgRAW8, ImgRAW16},
		SupportedBins:  []int{1, 2, 4, 8},
		BitDepth:       12,
	}

	c := &SimulatedCamera{
		info:     info,
		roi:      ROI{Width: width, Height: height, Bin: 1, ImgType: ImgRAW8},
		controls: make(map[ControlType]*simControl),
		interval: interval,
	}
	for _, caps := range simulatedControls() {
		c.controls[caps.Type] = &simControl{caps: caps, value: int64(caps.DefaultValue)} // #nosec G115 -- defaults are small
	}
	return c
}

func simulatedControls() []ControlCaps {
	ctrl := func(t ControlType, lo, hi, def uint64, auto, writable bool) ControlCaps {
		return ControlCaps{
			Name: t.String(), Type: t,
			MinValue: lo, MaxValue: hi, DefaultValue: def,
			AutoSupported: auto, Writable: writable,
		}
	}
	return []ControlCaps{
		ctrl(CtrlGain, 0, 600, 10, true, true),
		ctrl(CtrlExposure, 32, 2_000_000_000, 10_000, true, true),
		ctrl(CtrlGamma, 0, 100, 50, false, true),
		ctrl(CtrlGammaContrast, 0, 100, 50, false, true),
		ctrl(CtrlWBR, 0, 255, 128, true, true),
		ctrl(CtrlWBG, 0, 255, 128, true, true),
		ctrl(CtrlWBB, 0, 255, 128, true, true),
		ctrl(CtrlFlip, 0, 3, 0, false, true),
		ctrl(CtrlFrameSpeedMode, 0, 2, 1, false, true),
		ctrl(CtrlContrast, 0, 100, 50, false, true),
		ctrl(CtrlSharpness, 0, 100, 0, false, true),
		ctrl(CtrlSaturation, 0, 255, 128, false, true),
		ctrl(CtrlAutoTargetBrightness, 0, 255, 100, false, true),
		ctrl(CtrlBlackLevel, 0, 255, 0, false, true),
		// Sensor temperature in tenths of a degree; readable on uncooled sensors.
		ctrl(CtrlCurrentTemperature, 0, 1000, 250, false, false),
		ctrl(CtrlBadPixelCorrectionEnable, 0, 1, 1, false, true),
	}
}

func (c *SimulatedCamera) checkOpen() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Info returns the device description.
func (c *SimulatedCamera) Info() (DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return DeviceInfo{}, err
	}
	return c.info, nil
}

// ROI returns the current region of interest.
func (c *SimulatedCamera) ROI() (ROI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return ROI{}, err
	}
	return c.roi, nil
}

// SetROI replaces the region of interest after validating it.
func (c *SimulatedCamera) SetROI(roi ROI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := roi.Validate(c.info); err != nil {
		return err
	}
	c.roi = roi
	return nil
}

// ListControls returns the control table in ordinal order.
func (c *SimulatedCamera) ListControls() ([]ControlCaps, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]ControlCaps, 0, len(c.controls))
	for t := ControlType(0); t < controlTypeCount; t++ {
		if ctrl, ok := c.controls[t]; ok {
			out = append(out, ctrl.caps)
		}
	}
	return out, nil
}

// ControlValue returns the current value of ctrl.
func (c *SimulatedCamera) ControlValue(ctrl ControlType) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	sc, ok := c.controls[ctrl]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownControl, ctrl)
	}
	return sc.value, nil
}

// SetControlValue writes ctrl, clamped to its range. The auto flag is
// kept only for controls that support auto mode.
func (c *SimulatedCamera) SetControlValue(ctrl ControlType, value int64, auto bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	sc, ok := c.controls[ctrl]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownControl, ctrl)
	}
	if !sc.caps.Writable {
		return fmt.Errorf("%w: %s", ErrReadOnlyControl, ctrl)
	}
	sc.value = clamp(value, sc.caps.MinValue, sc.caps.MaxValue)
	sc.auto = auto && sc.caps.AutoSupported
	return nil
}

func clamp(v int64, lo, hi uint64) int64 {
	if v < 0 || uint64(v) < lo {
		return int64(lo) // #nosec G115 -- control ranges fit in int64
	}
	if uint64(v) > hi {
		return int64(hi) // #nosec G115 -- control ranges fit in int64
	}
	return v
}

// StartCapture arms frame delivery.
func (c *SimulatedCamera) StartCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.started = true
	return nil
}

// StopCapture disarms frame delivery. Stopping an idle camera is a no-op.
func (c *SimulatedCamera) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.started = false
	return nil
}

// Frame waits one frame interval and returns a gradient frame sized
// from the current ROI.
func (c *SimulatedCamera) Frame(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if err := c.checkOpen(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if !c.started {
		c.mu.Unlock()
		return nil, ErrNotCapturing
	}
	size := c.roi.FrameSize()
	c.seq++
	seed := c.seq
	interval := c.interval
	c.mu.Unlock()

	if interval > 0 {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	frame := make([]byte, size)
	for i := range frame {
		frame[i] = byte(i) + seed
	}
	return frame, nil
}

// IsCapturing reports the capturing flag.
func (c *SimulatedCamera) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capturing
}

// SetCapturing sets the capturing flag.
func (c *SimulatedCamera) SetCapturing(capturing bool) {
	c.mu.Lock()
	c.capturing = capturing
	c.mu.Unlock()
}

// Close releases the camera. Further calls return ErrClosed.
func (c *SimulatedCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	c.started = false
	c.capturing = false
	return nil
}
