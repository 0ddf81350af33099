package camera

import "context"

// Capability is one open camera.
type Capability interface {
	Info() (DeviceInfo, error)

	ROI() (ROI, error)
	SetROI(roi ROI) error

	ListControls() ([]ControlCaps, error)
	ControlValue(ctrl ControlType) (int64, error)
	SetControlValue(ctrl ControlType, value int64, auto bool) error

	StartCapture() error
	StopCapture() error

	// Frame blocks until one frame is available and returns its raw bytes.
	Frame(ctx context.Context) ([]byte, error)

	IsCapturing() bool
	SetCapturing(capturing bool)

	Close() error
}

// Driver enumerates and opens devices of a single kind.
type Driver interface {
	Kind() Kind

	// Count returns the number of devices currently attached.
	Count(ctx context.Context) (int, error)

	// Open opens the idx-th device of this kind.
	Open(ctx context.Context, idx int) (Capability, error)
}
