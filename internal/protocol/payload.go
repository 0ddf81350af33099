package protocol

import (
	"strconv"

	"github.com/nerrad567/camgate/internal/camera"
)

// InfoPayload is the GetInfo result. Image types are wire ordinals.
type InfoPayload struct {
	Name             string `json:"name" msgpack:"name"`
	Idx              int    `json:"idx" msgpack:"idx"`
	MaxWidth         int    `json:"max_width" msgpack:"max_width"`
	MaxHeight        int    `json:"max_height" msgpack:"max_height"`
	SupportedImgType []int  `json:"supported_img_type" msgpack:"supported_img_type"`
	SupportedBins    []int  `json:"supported_bins" msgpack:"supported_bins"`
	IsCoolable       bool   `json:"is_coolable" msgpack:"is_coolable"`
}

// ROIPayload is the GetRoi and SetRoi result.
type ROIPayload struct {
	StartX  int `json:"startx" msgpack:"startx"`
	StartY  int `json:"starty" msgpack:"starty"`
	Width   int `json:"width" msgpack:"width"`
	Height  int `json:"height" msgpack:"height"`
	Bin     int `json:"bin" msgpack:"bin"`
	ImgType int `json:"img_type" msgpack:"img_type"`
}

// ControlPayload is the GetCtrlVal and SetCtrlVal result. Both fields
// are decimal strings.
type ControlPayload struct {
	CtrlType string `json:"ctrl_type" msgpack:"ctrl_type"`
	Value    string `json:"value" msgpack:"value"`
}

// InitPayload is the Init result.
type InitPayload struct {
	NumDevice string `json:"num_device" msgpack:"num_device"`
}

// FramePayload carries one captured frame. JSON encodes it as standard
// base64; MessagePack as binary.
type FramePayload struct {
	Frame []byte `json:"frame" msgpack:"frame"`
}

// ErrorPayload reports a failed command.
type ErrorPayload struct {
	Error string `json:"error" msgpack:"error"`
}

// EmptyPayload is the {} result.
type EmptyPayload struct{}

// ControlReadFailed is the value reported when a control cannot be read.
const ControlReadFailed int64 = -1

// NewInfoPayload converts a DeviceInfo.
func NewInfoPayload(info camera.DeviceInfo) InfoPayload {
	types := make([]int, len(info.SupportedTypes))
	for i, t := range info.SupportedTypes {
		types[i] = int(t)
	}
	bins := make([]int, len(info.SupportedBins))
	copy(bins, info.SupportedBins)

	return InfoPayload{
		Name:             info.Name,
		Idx:              info.Index,
		MaxWidth:         info.MaxWidth,
		MaxHeight:        info.MaxHeight,
		SupportedImgType: types,
		SupportedBins:    bins,
		IsCoolable:       info.IsCoolable,
	}
}

// NewROIPayload converts a ROI.
func NewROIPayload(roi camera.ROI) ROIPayload {
	return ROIPayload{
		StartX:  roi.StartX,
		StartY:  roi.StartY,
		Width:   roi.Width,
		Height:  roi.Height,
		Bin:     roi.Bin,
		ImgType: int(roi.ImgType),
	}
}

// NewControlPayload formats a control reading.
func NewControlPayload(ctrl camera.ControlType, value int64) ControlPayload {
	return ControlPayload{
		CtrlType: strconv.Itoa(int(ctrl)),
		Value:    strconv.FormatInt(value, 10),
	}
}

// NewInitPayload formats a device count.
func NewInitPayload(n int) InitPayload {
	return InitPayload{NumDevice: strconv.Itoa(n)}
}
