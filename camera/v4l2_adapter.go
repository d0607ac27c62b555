package camera

import (
	"context"
	"sync"

	"github.com/greatboxS/raw-display/camera/v4l2dev"
)

// V4L2Vendor adapts camera/v4l2dev's Device to the VendorCamera
// interface, so a Source can drive a real V4L2 capture device through
// the vendor-agnostic state machine.
type V4L2Vendor struct {
	path string

	mu     sync.Mutex
	dev    *v4l2dev.Device
	cancel context.CancelFunc
	config CameraConfig
}

// NewV4L2Vendor targets the V4L2 device node at path (e.g. /dev/video0).
// The camera id passed to Source.InitCamera is not used to pick the
// node — a fixed-mount RVC camera has exactly one, named at
// construction — it only gates the UNINITIALIZED → INITIALIZED
// transition per the state machine's contract.
func NewV4L2Vendor(path string) *V4L2Vendor {
	return &V4L2Vendor{
		path:   path,
		config: CameraConfig{Width: 1920, Height: 1080, Framerate: 30},
	}
}

func (v *V4L2Vendor) OnInit() CameraError {
	v.mu.Lock()
	defer v.mu.Unlock()

	dev, err := v4l2dev.Open(v.path, v4l2dev.WithPixFormat(v4l2dev.PixFormat{
		Width:       uint32(v.config.Width),
		Height:      uint32(v.config.Height),
		PixelFormat: v4l2dev.PixelFmtYUYV,
	}))
	if err != nil {
		return ErrorInitFailed
	}
	v.dev = dev
	return ErrorNone
}

func (v *V4L2Vendor) OnDeinit() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.dev != nil {
		_ = v.dev.Close()
		v.dev = nil
	}
}

func (v *V4L2Vendor) OnStartPreview() CameraError {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dev == nil {
		return ErrorStreamFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := v.dev.Start(ctx); err != nil {
		cancel()
		return ErrorStreamFailed
	}
	v.cancel = cancel
	return ErrorNone
}

func (v *V4L2Vendor) OnStopPreview() CameraError {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.dev == nil {
		return ErrorNone
	}
	if err := v.dev.Stop(); err != nil {
		return ErrorStopPreviewFailed
	}
	return ErrorNone
}

// GetFrame blocks on the device's output channel until a frame arrives
// or the channel closes (stream stopped / device gone).
func (v *V4L2Vendor) GetFrame() (CameraFrame, CameraError) {
	v.mu.Lock()
	dev := v.dev
	cfg := v.config
	v.mu.Unlock()

	if dev == nil {
		return CameraFrame{}, ErrorFrameUnavailable
	}

	data, ok := <-dev.GetOutput()
	if !ok {
		return CameraFrame{}, ErrorFrameUnavailable
	}
	return CameraFrame{Buffer: CameraBuffer{
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: int(v4l2dev.PixelFmtYUYV),
	}}, ErrorNone
}

func (v *V4L2Vendor) SetConfig(cfg CameraConfig) CameraError {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dev != nil {
		return ErrorSetConfigFailed
	}
	v.config = cfg
	return ErrorNone
}

func (v *V4L2Vendor) GetConfig() CameraConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.config
}

var _ VendorCamera = (*V4L2Vendor)(nil)
