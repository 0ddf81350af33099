package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/camgate/internal/camera"
	"github.com/nerrad567/camgate/internal/registry"
)

// CameraResponse describes one registry entry.
type CameraResponse struct {
	Index          int      `json:"index"`
	Kind           string   `json:"kind"`
	Name           string   `json:"name"`
	MaxWidth       int      `json:"max_width"`
	MaxHeight      int      `json:"max_height"`
	SupportedTypes []string `json:"supported_img_types"`
	SupportedBins  []int    `json:"supported_bins"`
	IsColor        bool     `json:"is_color"`
	IsCoolable     bool     `json:"is_coolable"`
	BitDepth       int      `json:"bit_depth"`
	Capturing      bool     `json:"capturing"`
	ROI            *ROIView `json:"roi,omitempty"`
}

// ROIView is the region of interest as reported over HTTP.
type ROIView struct {
	StartX  int    `json:"startx"`
	StartY  int    `json:"starty"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bin     int    `json:"bin"`
	ImgType string `json:"img_type"`
}

// ControlResponse is one row of a camera's control table.
type ControlResponse struct {
	Type          int    `json:"type"`
	Name          string `json:"name"`
	Min           uint64 `json:"min"`
	Max           uint64 `json:"max"`
	Default       uint64 `json:"default"`
	AutoSupported bool   `json:"auto_supported"`
	Writable      bool   `json:"writable"`
	Value         *int64 `json:"value"`
}

func cameraResponse(h *registry.Handle) CameraResponse {
	info := h.Info()
	types := make([]string, len(info.SupportedTypes))
	for i, t := range info.SupportedTypes {
		types[i] = t.String()
	}
	return CameraResponse{
		Index:          h.Index(),
		Kind:           h.Kind().String(),
		Name:           info.Name,
		MaxWidth:       info.MaxWidth,
		MaxHeight:      info.MaxHeight,
		SupportedTypes: types,
		SupportedBins:  info.SupportedBins,
		IsColor:        info.IsColor,
		IsCoolable:     info.IsCoolable,
		BitDepth:       info.BitDepth,
		Capturing:      h.Capturing(),
	}
}

// handleListCameras returns every camera in index order.
func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	handles := s.cameras.Handles()
	cameras := make([]CameraResponse, 0, len(handles))
	for _, h := range handles {
		cameras = append(cameras, cameraResponse(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

// handleGetCamera returns one camera with its current ROI.
func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	resp := cameraResponse(h)
	var roi camera.ROI
	err := h.Do(func(dev *registry.Device) error {
		var err error
		roi, err = dev.ROI()
		return err
	})
	if err != nil {
		s.logger.Warn("reading camera ROI failed", "camera_idx", h.Index(), "error", err)
	} else {
		resp.ROI = &ROIView{
			StartX:  roi.StartX,
			StartY:  roi.StartY,
			Width:   roi.Width,
			Height:  roi.Height,
			Bin:     roi.Bin,
			ImgType: roi.ImgType.String(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListControls returns the control table of one camera with the
// current value of every control. A control whose value cannot be read
// is reported with a null value.
func (s *Server) handleListControls(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	var controls []ControlResponse
	err := h.Do(func(dev *registry.Device) error {
		caps, err := dev.ListControls()
		if err != nil {
			return err
		}
		controls = make([]ControlResponse, 0, len(caps))
		for _, c := range caps {
			row := ControlResponse{
				Type:          int(c.Type),
				Name:          c.Name,
				Min:           c.MinValue,
				Max:           c.MaxValue,
				Default:       c.DefaultValue,
				AutoSupported: c.AutoSupported,
				Writable:      c.Writable,
			}
			if v, err := dev.ControlValue(c.Type); err == nil {
				row.Value = &v
			}
			controls = append(controls, row)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, registry.ErrHandleClosed) {
			writeUnavailable(w, "camera is being re-enumerated")
			return
		}
		s.logger.Error("listing camera controls failed", "camera_idx", h.Index(), "error", err)
		writeInternalError(w, "failed to list controls")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"camera_idx": h.Index(),
		"controls":   controls,
	})
}

// lookupCamera resolves the {idx} URL parameter, writing the error
// response itself when it fails.
func (s *Server) lookupCamera(w http.ResponseWriter, r *http.Request) (*registry.Handle, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeBadRequest(w, "camera index must be an integer")
		return nil, false
	}
	h, err := s.cameras.Get(idx)
	if err != nil {
		writeNotFound(w, "camera not found")
		return nil, false
	}
	return h, true
}
