// Package registry holds the gateway's cameras as index-addressed handles.
//
// Each Handle owns one camera.Capability behind an exclusive lock. Work on
// different handles never contends; work on the same handle is serialised
// in lock-acquisition order. A Handle also owns the device's capture
// session, the cancellation signal the streaming loop observes between
// frames.
//
// Global indices are assigned across drivers in Kind order (simulated
// first, hardware second) and stay stable until the next Rebuild.
package registry
