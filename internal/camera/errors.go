package camera

import "errors"

// Sentinel errors returned by capabilities and drivers.
var (
	// ErrClosed is returned by every operation on a closed device.
	ErrClosed = errors.New("camera: device closed")

	// ErrNotCapturing is returned by Frame when capture has not been started.
	ErrNotCapturing = errors.New("camera: capture not started")

	// ErrInvalidROI is returned when a region does not fit the sensor.
	ErrInvalidROI = errors.New("camera: invalid region of interest")

	// ErrUnsupportedBin is returned for a binning factor the device lacks.
	ErrUnsupportedBin = errors.New("camera: unsupported binning factor")

	// ErrUnsupportedImgType is returned for an encoding the device lacks.
	ErrUnsupportedImgType = errors.New("camera: unsupported image type")

	// ErrUnknownControl is returned for a control the device does not expose.
	ErrUnknownControl = errors.New("camera: unknown control")

	// ErrReadOnlyControl is returned when writing a non-writable control.
	ErrReadOnlyControl = errors.New("camera: control is read-only")

	// ErrNoDevice is returned by a driver asked for an index it does not have.
	ErrNoDevice = errors.New("camera: no such device")
)
