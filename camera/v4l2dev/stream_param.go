package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// CaptureParam is the subset of v4l2_captureparm this device reads:
// the driver-reported time-per-frame, from which GetFrameRate derives
// an fps figure.
type CaptureParam struct {
	TimePerFrame Fract
}

// getStreamCaptureParam issues VIDIOC_G_PARM for the capture queue.
func getStreamCaptureParam(fd uintptr) (CaptureParam, error) {
	var param C.struct_v4l2_streamparm
	param._type = C.uint(BufTypeVideoCapture)

	if err := send(fd, C.VIDIOC_G_PARM, uintptr(unsafe.Pointer(&param))); err != nil {
		return CaptureParam{}, fmt.Errorf("stream param: %w", err)
	}

	cp := (*C.struct_v4l2_captureparm)(unsafe.Pointer(&param.parm[0]))
	return CaptureParam{
		TimePerFrame: Fract{
			Numerator:   uint32(cp.timeperframe.numerator),
			Denominator: uint32(cp.timeperframe.denominator),
		},
	}, nil
}
