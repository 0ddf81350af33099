// Package gateway connects the MQTT transport to the dispatcher.
//
// The runtime subscribes to the command and init topics, decodes each
// message and hands it to the dispatcher on its own goroutine, so
// commands for different cameras run concurrently while commands for the
// same camera queue on that camera's lock. Messages that fail to decode
// are logged and dropped without a response.
//
// A HealthReporter publishes a retained status message on the gateway
// status topic at a fixed interval.
package gateway
