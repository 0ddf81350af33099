// Package dispatch executes decoded camera commands against registry
// handles and publishes their responses.
//
// Every command runs under the addressed device's lock and produces one
// response on the response topic, carrying the request's transaction id,
// camera index and command code. StartCapture is the exception: it
// streams one response per frame and a terminal {} when the stream ends.
// The stream releases the device lock between frames so StopCapture can
// interleave; StopCapture cancels the stream's session and no frame is
// published after it has taken the lock.
//
// Parameter errors drop the command without a response. Capability
// failures are answered with {"error": ...}, except control reads, which
// report value -1.
package dispatch
