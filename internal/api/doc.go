// Package api implements the read-only HTTP status surface of the camera
// gateway.
//
// This package provides:
//   - Liveness and broker connectivity (/api/v1/health)
//   - The current camera registry with capture state (/api/v1/cameras)
//   - Per-camera control tables with live values (/api/v1/cameras/{idx}/controls)
//   - The persistent camera inventory and enumeration history (/api/v1/inventory)
//   - Runtime, dispatch and database metrics (/api/v1/metrics)
//
// Commands are never accepted over HTTP. Camera clients talk to the gateway
// through the MQTT command topics only; this surface exists for operators.
//
// # Locking
//
// Control reads go through the same per-camera lock as MQTT commands, so a
// controls request on a camera that is streaming waits for the current
// frame to be acquired.
package api
