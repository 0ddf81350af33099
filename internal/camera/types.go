package camera

import "fmt"

// Kind tags a device family. Kinds are enumerated in declaration order.
type Kind int

const (
	KindSimulated Kind = iota
	KindHardware
)

// String returns the kind name used in logs, inventory and the status API.
func (k Kind) String() string {
	switch k {
	case KindSimulated:
		return "simulated"
	case KindHardware:
		return "hardware"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ImgType is an image encoding. Values at or beyond ImgTypeEnd are the
// unsupported sentinel rather than a decode failure.
type ImgType int

const (
	ImgRAW8 ImgType = iota
	ImgRAW10
	ImgRAW12
	ImgRAW14
	ImgRAW16
	ImgY8
	ImgY10
	ImgY12
	ImgY14
	ImgY16
	ImgRGB24
	ImgRGB32
	ImgTypeEnd
)

var imgTypeNames = [...]string{
	"RAW8", "RAW10", "RAW12", "RAW14", "RAW16",
	"Y8", "Y10", "Y12", "Y14", "Y16",
	"RGB24", "RGB32",
}

// ParseImgType maps a wire ordinal to an ImgType. Negative or unknown
// ordinals map to ImgTypeEnd.
func ParseImgType(n int) ImgType {
	if n < 0 || n >= int(ImgTypeEnd) {
		return ImgTypeEnd
	}
	return ImgType(n)
}

// Valid reports whether t is a real encoding.
func (t ImgType) Valid() bool {
	return t >= 0 && t < ImgTypeEnd
}

func (t ImgType) String() string {
	if !t.Valid() {
		return "END"
	}
	return imgTypeNames[t]
}

// BytesPerPixel returns the storage size of one pixel. Packed 10-16 bit
// encodings are stored in two bytes.
func (t ImgType) BytesPerPixel() int {
	switch t {
	case ImgRAW8, ImgY8:
		return 1
	case ImgRGB24:
		return 3
	case ImgRGB32:
		return 4
	case ImgTypeEnd:
		return 0
	default:
		if !t.Valid() {
			return 0
		}
		return 2
	}
}

// ControlType identifies a device control. The set is closed.
type ControlType int

const (
	CtrlGain ControlType = iota
	CtrlExposure
	CtrlGamma
	CtrlGammaContrast
	CtrlWBR
	CtrlWBG
	CtrlWBB
	CtrlFlip
	CtrlFrameSpeedMode
	CtrlContrast
	CtrlSharpness
	CtrlSaturation
	CtrlAutoTargetBrightness
	CtrlBlackLevel
	CtrlCoolerEnable
	CtrlTargetTemperature
	CtrlCurrentTemperature
	CtrlCoolerPower
	CtrlBadPixelCorrectionEnable
	controlTypeCount
)

var controlNames = [...]string{
	"gain", "exposure", "gamma", "gamma_contrast",
	"wb_r", "wb_g", "wb_b", "flip", "frame_speed_mode",
	"contrast", "sharpness", "saturation", "auto_target_brightness",
	"black_level", "cooler_enable", "target_temperature",
	"current_temperature", "cooler_power", "bad_pixel_correction_enable",
}

// ParseControlType maps a wire ordinal to a ControlType.
func ParseControlType(n int) (ControlType, error) {
	if n < 0 || n >= int(controlTypeCount) {
		return 0, fmt.Errorf("%w: ordinal %d", ErrUnknownControl, n)
	}
	return ControlType(n), nil
}

func (c ControlType) String() string {
	if c < 0 || c >= controlTypeCount {
		return fmt.Sprintf("control(%d)", int(c))
	}
	return controlNames[c]
}

// DeviceInfo is the immutable description of a device.
type DeviceInfo struct {
	Name           string
	Index          int
	MaxWidth       int
	MaxHeight      int
	SupportedTypes []ImgType
	SupportedBins  []int
	IsCoolable     bool
	IsColor        bool
	BitDepth       int
}

// SupportsBin reports whether bin is one of the device's binning factors.
func (d DeviceInfo) SupportsBin(bin int) bool {
	for _, b := range d.SupportedBins {
		if b == bin {
			return true
		}
	}
	return false
}

// SupportsImgType reports whether t is one of the device's encodings.
func (d DeviceInfo) SupportsImgType(t ImgType) bool {
	for _, s := range d.SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// ROI is the captured sub-rectangle and its encoding. Width and Height
// are in sensor pixels; the delivered frame is Width/Bin by Height/Bin.
type ROI struct {
	StartX  int
	StartY  int
	Width   int
	Height  int
	Bin     int
	ImgType ImgType
}

// FrameSize returns the byte size of one frame captured with this ROI.
func (r ROI) FrameSize() int {
	if r.Bin <= 0 {
		return 0
	}
	return (r.Width / r.Bin) * (r.Height / r.Bin) * r.ImgType.BytesPerPixel()
}

// Validate checks r against the device description.
func (r ROI) Validate(info DeviceInfo) error {
	switch {
	case r.StartX < 0 || r.StartY < 0 || r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w: negative origin or empty size", ErrInvalidROI)
	// Compared by subtraction so a huge origin cannot wrap the sum.
	case r.StartX > info.MaxWidth || r.Width > info.MaxWidth-r.StartX:
		return fmt.Errorf("%w: startx %d width %d exceeds %d", ErrInvalidROI, r.StartX, r.Width, info.MaxWidth)
	case r.StartY > info.MaxHeight || r.Height > info.MaxHeight-r.StartY:
		return fmt.Errorf("%w: starty %d height %d exceeds %d", ErrInvalidROI, r.StartY, r.Height, info.MaxHeight)
	case !info.SupportsBin(r.Bin):
		return fmt.Errorf("%w: %d", ErrUnsupportedBin, r.Bin)
	case !info.SupportsImgType(r.ImgType):
		return fmt.Errorf("%w: %s", ErrUnsupportedImgType, r.ImgType)
	case r.Width < r.Bin || r.Height < r.Bin:
		return fmt.Errorf("%w: region smaller than one binned pixel", ErrInvalidROI)
	}
	return nil
}

// ControlCaps describes one control.
type ControlCaps struct {
	Name          string
	Type          ControlType
	MinValue      uint64
	MaxValue      uint64
	DefaultValue  uint64
	AutoSupported bool
	Writable      bool
}
