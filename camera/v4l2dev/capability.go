package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Capability bits this fixed-input capture-only device cares about.
// A general V4L2 wrapper exposes dozens of these (tuner, VBI, radio,
// multi-planar, output overlay, ...); a rear-view camera negotiates
// exactly these two.
const (
	CapVideoCapture uint32 = C.V4L2_CAP_VIDEO_CAPTURE
	CapStreaming    uint32 = C.V4L2_CAP_STREAMING
	capDeviceCaps   uint32 = C.V4L2_CAP_DEVICE_CAPS
)

// Capability is the subset of v4l2_capability this package reads:
// identification strings plus the two capability bitmasks needed to
// reject a device that can't stream captured video.
type Capability struct {
	Driver             string
	Card               string
	BusInfo            string
	Capabilities       uint32
	DeviceCapabilities uint32
}

// getCapability issues VIDIOC_QUERYCAP.
func getCapability(fd uintptr) (Capability, error) {
	var v4l2Cap C.struct_v4l2_capability
	if err := send(fd, C.VIDIOC_QUERYCAP, uintptr(unsafe.Pointer(&v4l2Cap))); err != nil {
		return Capability{}, fmt.Errorf("capability: %w", err)
	}
	return Capability{
		Driver:             C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.driver[0]))),
		Card:               C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.card[0]))),
		BusInfo:            C.GoString((*C.char)(unsafe.Pointer(&v4l2Cap.bus_info[0]))),
		Capabilities:       uint32(v4l2Cap.capabilities),
		DeviceCapabilities: uint32(v4l2Cap.device_caps),
	}, nil
}

// effective returns DeviceCapabilities when the driver provides
// per-node capabilities (modern drivers), else the whole-device mask.
func (c Capability) effective() uint32 {
	if c.Capabilities&capDeviceCaps != 0 {
		return c.DeviceCapabilities
	}
	return c.Capabilities
}

// IsVideoCaptureSupported reports whether the opened node can capture
// video via the single-planar API.
func (c Capability) IsVideoCaptureSupported() bool {
	return c.effective()&CapVideoCapture != 0
}

// IsStreamingSupported reports whether the opened node supports
// streaming I/O (memory-mapped buffers), the only I/O method this
// package implements.
func (c Capability) IsStreamingSupported() bool {
	return c.effective()&CapStreaming != 0
}

func (c Capability) String() string {
	return fmt.Sprintf("driver: %s; card: %s; bus info: %s", c.Driver, c.Card, c.BusInfo)
}
