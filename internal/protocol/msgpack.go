package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec encodes envelopes as MessagePack maps.
type MsgpackCodec struct{}

type msgpackCommandIn struct {
	TransactionID *string        `msgpack:"transaction_id"`
	CameraIdx     *int           `msgpack:"camera_idx"`
	CmdIdx        *int           `msgpack:"cmd_idx"`
	Data          map[string]any `msgpack:"data"`
}

type msgpackCommandOut struct {
	TransactionID string            `msgpack:"transaction_id"`
	CameraIdx     int               `msgpack:"camera_idx"`
	CmdIdx        int               `msgpack:"cmd_idx"`
	Data          map[string]string `msgpack:"data,omitempty"`
}

type msgpackResponse struct {
	TransactionID string             `msgpack:"transaction_id"`
	CameraIdx     int                `msgpack:"camera_idx"`
	CmdIdx        int                `msgpack:"cmd_idx"`
	Data          msgpack.RawMessage `msgpack:"data"`
}

func (MsgpackCodec) Name() string { return CodecMsgpack }

func (MsgpackCodec) DecodeCommand(payload []byte) (CommandEnvelope, error) {
	var in msgpackCommandIn
	rd := bytes.NewReader(payload)
	if err := msgpack.NewDecoder(rd).Decode(&in); err != nil {
		return CommandEnvelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if rd.Len() != 0 {
		return CommandEnvelope{}, fmt.Errorf("%w: %d trailing bytes after command", ErrMalformed, rd.Len())
	}

	switch {
	case in.TransactionID == nil:
		return CommandEnvelope{}, fmt.Errorf("%w: transaction_id", ErrMissingField)
	case in.CameraIdx == nil:
		return CommandEnvelope{}, fmt.Errorf("%w: camera_idx", ErrMissingField)
	case in.CmdIdx == nil:
		return CommandEnvelope{}, fmt.Errorf("%w: cmd_idx", ErrMissingField)
	}

	params, err := normalizeParams(in.Data)
	if err != nil {
		return CommandEnvelope{}, err
	}

	return CommandEnvelope{
		TransactionID: *in.TransactionID,
		CameraIdx:     *in.CameraIdx,
		CmdIdx:        *in.CmdIdx,
		Data:          params,
	}, nil
}

func (MsgpackCodec) EncodeResponse(resp ResponseEnvelope) ([]byte, error) {
	payload := resp.Payload
	if payload == nil {
		payload = EmptyPayload{}
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}
	return msgpack.Marshal(msgpackResponse{
		TransactionID: resp.TransactionID,
		CameraIdx:     resp.CameraIdx,
		CmdIdx:        resp.CmdIdx,
		Data:          data,
	})
}

func (MsgpackCodec) EncodeCommand(cmd CommandEnvelope) ([]byte, error) {
	return msgpack.Marshal(msgpackCommandOut{
		TransactionID: cmd.TransactionID,
		CameraIdx:     cmd.CameraIdx,
		CmdIdx:        cmd.CmdIdx,
		Data:          cmd.Data,
	})
}

func (MsgpackCodec) DecodeResponse(payload []byte) (DecodedResponse, error) {
	var in msgpackResponse
	if err := msgpack.Unmarshal(payload, &in); err != nil {
		return DecodedResponse{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodedResponse{
		TransactionID: in.TransactionID,
		CameraIdx:     in.CameraIdx,
		CmdIdx:        in.CmdIdx,
		Data:          []byte(in.Data),
	}, nil
}

func (MsgpackCodec) DecodePayload(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
