package registry

import "errors"

var (
	// ErrIndexOutOfRange is returned by Get for an index outside the registry.
	ErrIndexOutOfRange = errors.New("registry: camera index out of range")

	// ErrHandleClosed is returned by Do on a handle closed by Rebuild or Close.
	ErrHandleClosed = errors.New("registry: camera handle closed")

	// ErrEnumeration wraps device enumeration failures. Devices that did
	// enumerate are still installed.
	ErrEnumeration = errors.New("registry: enumeration incomplete")
)
