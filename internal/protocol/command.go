package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a command code. The ordinals are fixed by the wire protocol.
type Command int

const (
	CmdGetInfo Command = iota
	CmdGetStatus
	CmdGetRoi
	CmdGetCtrlVal
	CmdSetRoi
	CmdSetCtrlVal
	CmdStartCapture
	CmdStopCapture
	CmdInit

	// CmdUnrecognized stands for any code outside 0-8.
	CmdUnrecognized Command = -1
)

var commandNames = [...]string{
	"GetInfo", "GetStatus", "GetRoi", "GetCtrlVal", "SetRoi",
	"SetCtrlVal", "StartCapture", "StopCapture", "Init",
}

// ParseCommand maps a wire code to a Command.
func ParseCommand(code int) Command {
	if code < int(CmdGetInfo) || code > int(CmdInit) {
		return CmdUnrecognized
	}
	return Command(code)
}

func (c Command) String() string {
	if c < CmdGetInfo || c > CmdInit {
		return "Unrecognized"
	}
	return commandNames[c]
}

// CommandEnvelope is a decoded inbound command.
type CommandEnvelope struct {
	TransactionID string
	CameraIdx     int
	// CmdIdx is the raw code as received; responses echo it verbatim.
	CmdIdx int
	Data   map[string]string
}

// Command returns the parsed command code.
func (e CommandEnvelope) Command() Command {
	return ParseCommand(e.CmdIdx)
}

// Param returns the named parameter.
func (e CommandEnvelope) Param(key string) (string, error) {
	v, ok := e.Data[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingParam, key)
	}
	return v, nil
}

// IntParam returns the named parameter parsed as a base-10 integer.
// Surrounding whitespace is ignored.
func (e CommandEnvelope) IntParam(key string) (int64, error) {
	v, err := e.Param(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q=%q is not an integer", ErrInvalidParam, key, v)
	}
	return n, nil
}

// ResponseEnvelope is an outbound response. Payload is one of the
// payload types in this package and is serialised by the codec.
type ResponseEnvelope struct {
	TransactionID string
	CameraIdx     int
	CmdIdx        int
	Payload       any
}

// Reply builds a response correlated with e.
func (e CommandEnvelope) Reply(payload any) ResponseEnvelope {
	return ResponseEnvelope{
		TransactionID: e.TransactionID,
		CameraIdx:     e.CameraIdx,
		CmdIdx:        e.CmdIdx,
		Payload:       payload,
	}
}

// DecodedResponse is a response read back off the wire. Data holds the
// payload still encoded in the codec's format; use Codec.DecodePayload.
type DecodedResponse struct {
	TransactionID string
	CameraIdx     int
	CmdIdx        int
	Data          []byte
}
