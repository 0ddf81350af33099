package gateway

import "errors"

var (
	// ErrMissingDependency is returned by New when a required option is nil.
	ErrMissingDependency = errors.New("gateway: missing dependency")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("gateway: runtime stopped")
)
