// Package inventory records every camera the gateway has enumerated.
//
// The SQLite repository implements registry.Observer: after each
// registry build it upserts one row per camera, keyed by kind and index,
// and appends a row to the enumeration log. The status API reads both.
package inventory
