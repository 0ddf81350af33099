package dispatch

import (
	"fmt"

	"github.com/nerrad567/camgate/internal/camera"
	"github.com/nerrad567/camgate/internal/protocol"
	"github.com/nerrad567/camgate/internal/registry"
)

// ROI parameter keys, in wire order.
var roiParams = [...]string{"startx", "starty", "width", "height", "bin", "img_type"}

// execute runs a single-response command with the device lock held.
// A non-nil payload is published even when err is set.
func (d *Dispatcher) execute(dev *registry.Device, env protocol.CommandEnvelope) (any, error) {
	switch env.Command() {
	case protocol.CmdGetInfo:
		return d.getInfo(dev)
	case protocol.CmdGetStatus:
		return protocol.EmptyPayload{}, nil
	case protocol.CmdGetRoi:
		return d.getROI(dev)
	case protocol.CmdSetRoi:
		return d.setROI(dev, env)
	case protocol.CmdGetCtrlVal:
		return d.getControl(dev, env)
	case protocol.CmdSetCtrlVal:
		return d.setControl(dev, env)
	case protocol.CmdStopCapture:
		return d.stopCapture(dev)
	default:
		d.logger.Warn("unrecognized command",
			"transaction_id", env.TransactionID,
			"camera_idx", env.CameraIdx,
			"cmd_idx", env.CmdIdx)
		return protocol.EmptyPayload{}, nil
	}
}

func (d *Dispatcher) getInfo(dev *registry.Device) (any, error) {
	info, err := dev.Info()
	if err != nil {
		return nil, fmt.Errorf("reading device info: %w", err)
	}
	info.Index = dev.Index()
	return protocol.NewInfoPayload(info), nil
}

func (d *Dispatcher) getROI(dev *registry.Device) (any, error) {
	roi, err := dev.ROI()
	if err != nil {
		return nil, fmt.Errorf("reading roi: %w", err)
	}
	return protocol.NewROIPayload(roi), nil
}

// setROI applies the requested ROI and answers with the ROI read back
// from the device, whether or not the write succeeded.
func (d *Dispatcher) setROI(dev *registry.Device, env protocol.CommandEnvelope) (any, error) {
	var v [len(roiParams)]int
	for i, key := range roiParams {
		n, err := env.IntParam(key)
		if err != nil {
			return nil, err
		}
		v[i] = int(n)
	}

	writeErr := dev.SetROI(camera.ROI{
		StartX:  v[0],
		StartY:  v[1],
		Width:   v[2],
		Height:  v[3],
		Bin:     v[4],
		ImgType: camera.ParseImgType(v[5]),
	})
	if writeErr != nil {
		writeErr = fmt.Errorf("setting roi: %w", writeErr)
	}

	payload, readErr := d.getROI(dev)
	if readErr != nil {
		return nil, readErr
	}
	return payload, writeErr
}

// readControl returns the control's value or ControlReadFailed.
func (d *Dispatcher) readControl(dev *registry.Device, code int64) (int64, error) {
	ctrl, err := camera.ParseControlType(int(code))
	if err != nil {
		return protocol.ControlReadFailed, err
	}
	value, err := dev.ControlValue(ctrl)
	if err != nil {
		return protocol.ControlReadFailed, fmt.Errorf("reading %s: %w", ctrl, err)
	}
	return value, nil
}

func (d *Dispatcher) getControl(dev *registry.Device, env protocol.CommandEnvelope) (any, error) {
	code, err := env.IntParam("ctrl_type")
	if err != nil {
		return nil, err
	}
	value, err := d.readControl(dev, code)
	return protocol.NewControlPayload(camera.ControlType(code), value), err
}

// setControl writes with auto disabled and answers with the value read
// back from the device.
func (d *Dispatcher) setControl(dev *registry.Device, env protocol.CommandEnvelope) (any, error) {
	code, err := env.IntParam("ctrl_type")
	if err != nil {
		return nil, err
	}
	requested, err := env.IntParam("value")
	if err != nil {
		return nil, err
	}

	var writeErr error
	if ctrl, parseErr := camera.ParseControlType(int(code)); parseErr != nil {
		writeErr = parseErr
	} else if err := dev.SetControlValue(ctrl, requested, false); err != nil {
		writeErr = fmt.Errorf("writing %s: %w", ctrl, err)
	}

	value, readErr := d.readControl(dev, code)
	payload := protocol.NewControlPayload(camera.ControlType(code), value)
	if writeErr != nil {
		return payload, writeErr
	}
	return payload, readErr
}

func (d *Dispatcher) stopCapture(dev *registry.Device) (any, error) {
	dev.EndSession()
	dev.SetCapturing(false)
	if err := dev.StopCapture(); err != nil {
		return protocol.EmptyPayload{}, fmt.Errorf("stopping capture: %w", err)
	}
	return protocol.EmptyPayload{}, nil
}
