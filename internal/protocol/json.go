package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// JSONCodec is the default wire format.
type JSONCodec struct{}

// flexInt accepts a JSON number or a decimal string.
type flexInt struct {
	set   bool
	value int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	f.set, f.value = true, n
	return nil
}

type jsonCommandIn struct {
	TransactionID *string        `json:"transaction_id"`
	CameraIdx     flexInt        `json:"camera_idx"`
	CmdIdx        flexInt        `json:"cmd_idx"`
	Data          map[string]any `json:"data"`
}

type jsonCommandOut struct {
	TransactionID string            `json:"transaction_id"`
	CameraIdx     int               `json:"camera_idx"`
	CmdIdx        int               `json:"cmd_idx"`
	Data          map[string]string `json:"data,omitempty"`
}

type jsonResponse struct {
	TransactionID string `json:"transaction_id"`
	CameraIdx     int    `json:"camera_idx,string"`
	CmdIdx        int    `json:"cmd_idx,string"`
	Data          string `json:"data"`
}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) DecodeCommand(payload []byte) (CommandEnvelope, error) {
	var in jsonCommandIn
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return CommandEnvelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// The payload must hold exactly one JSON value.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return CommandEnvelope{}, fmt.Errorf("%w: trailing data after command", ErrMalformed)
	}

	switch {
	case in.TransactionID == nil:
		return CommandEnvelope{}, fmt.Errorf("%w: transaction_id", ErrMissingField)
	case !in.CameraIdx.set:
		return CommandEnvelope{}, fmt.Errorf("%w: camera_idx", ErrMissingField)
	case !in.CmdIdx.set:
		return CommandEnvelope{}, fmt.Errorf("%w: cmd_idx", ErrMissingField)
	}

	params, err := normalizeParams(in.Data)
	if err != nil {
		return CommandEnvelope{}, err
	}

	return CommandEnvelope{
		TransactionID: *in.TransactionID,
		CameraIdx:     in.CameraIdx.value,
		CmdIdx:        in.CmdIdx.value,
		Data:          params,
	}, nil
}

func (JSONCodec) EncodeResponse(resp ResponseEnvelope) ([]byte, error) {
	payload := resp.Payload
	if payload == nil {
		payload = EmptyPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}
	return json.Marshal(jsonResponse{
		TransactionID: resp.TransactionID,
		CameraIdx:     resp.CameraIdx,
		CmdIdx:        resp.CmdIdx,
		Data:          string(data),
	})
}

func (JSONCodec) EncodeCommand(cmd CommandEnvelope) ([]byte, error) {
	return json.Marshal(jsonCommandOut{
		TransactionID: cmd.TransactionID,
		CameraIdx:     cmd.CameraIdx,
		CmdIdx:        cmd.CmdIdx,
		Data:          cmd.Data,
	})
}

func (JSONCodec) DecodeResponse(payload []byte) (DecodedResponse, error) {
	var in jsonResponse
	if err := json.Unmarshal(payload, &in); err != nil {
		return DecodedResponse{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodedResponse{
		TransactionID: in.TransactionID,
		CameraIdx:     in.CameraIdx,
		CmdIdx:        in.CmdIdx,
		Data:          []byte(in.Data),
	}, nil
}

func (JSONCodec) DecodePayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
