// Package camera defines the device capability the gateway drives and
// ships the simulated camera kind.
//
// A Capability is the full set of operations a camera implementation
// provides: info, region of interest, controls, capture and frame
// retrieval, a capturing flag and close. Concrete implementations are
// grouped by Kind and produced by a Driver; the registry selects drivers
// once at build time and never type-asserts a Capability.
//
// Capabilities are not required to be safe for concurrent use. The
// registry serialises every call through a per-device lock.
//
// Enum ordinals (ImgType, ControlType) are part of the wire protocol and
// must not be renumbered.
package camera
