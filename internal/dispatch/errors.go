package dispatch

import "errors"

var (
	// ErrNoPublisher is returned by New without a publisher.
	ErrNoPublisher = errors.New("dispatch: publisher is required")

	// ErrNoCodec is returned by New without a codec.
	ErrNoCodec = errors.New("dispatch: codec is required")

	// ErrNoTopic is returned by New without a response topic.
	ErrNoTopic = errors.New("dispatch: response topic is required")

	// ErrNoEnumerator is returned by Init when no enumerator was configured.
	ErrNoEnumerator = errors.New("dispatch: enumerator is required for init")
)
