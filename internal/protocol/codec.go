package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Codec converts envelopes to and from wire bytes.
type Codec interface {
	// Name returns the codec name as used in configuration.
	Name() string

	// DecodeCommand parses an inbound command. Missing required fields
	// return ErrMissingField, anything unparseable ErrMalformed.
	DecodeCommand(payload []byte) (CommandEnvelope, error)

	// EncodeResponse serialises a response and its payload.
	EncodeResponse(resp ResponseEnvelope) ([]byte, error)

	// EncodeCommand serialises a command. Used by clients and tests.
	EncodeCommand(cmd CommandEnvelope) ([]byte, error)

	// DecodeResponse parses a response, leaving the payload encoded.
	DecodeResponse(payload []byte) (DecodedResponse, error)

	// DecodePayload unmarshals a payload returned by DecodeResponse.
	DecodePayload(data []byte, v any) error
}

// Codec names.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case CodecJSON, "":
		return JSONCodec{}, nil
	case CodecMsgpack:
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// normalizeParams converts decoded parameter values to their string form.
// Null values are dropped.
func normalizeParams(raw map[string]any) (map[string]string, error) {
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			params[k] = val
		case json.Number:
			params[k] = val.String()
		case bool:
			params[k] = strconv.FormatBool(val)
		case float64:
			params[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case float32:
			params[k] = strconv.FormatFloat(float64(val), 'f', -1, 32)
		case int8, int16, int32, int64, int:
			params[k] = fmt.Sprintf("%d", val)
		case uint8, uint16, uint32, uint64, uint:
			params[k] = fmt.Sprintf("%d", val)
		default:
			return nil, fmt.Errorf("%w: parameter %q has unsupported type %T", ErrMalformed, k, v)
		}
	}
	return params, nil
}
