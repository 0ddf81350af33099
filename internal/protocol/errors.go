package protocol

import "errors"

var (
	// ErrMalformed is returned when an envelope cannot be decoded.
	ErrMalformed = errors.New("protocol: malformed envelope")

	// ErrMissingField is returned when a required envelope field is absent.
	ErrMissingField = errors.New("protocol: missing required field")

	// ErrMissingParam is returned when a command parameter is absent.
	ErrMissingParam = errors.New("protocol: missing parameter")

	// ErrInvalidParam is returned when a command parameter does not parse.
	ErrInvalidParam = errors.New("protocol: invalid parameter")

	// ErrUnknownCodec is returned by NewCodec for an unknown codec name.
	ErrUnknownCodec = errors.New("protocol: unknown codec")
)
