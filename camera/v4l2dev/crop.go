package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Rect is a pixel rectangle (v4l2_rect): crop bounds and the default
// crop window a driver reports for its one fixed input.
type Rect struct {
	Left   int32
	Top    int32
	Width  uint32
	Height uint32
}

// Fract is a numerator/denominator pair (v4l2_fract), used for both
// pixel aspect ratio and frame interval.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

// CropCapability reports a capture input's cropping bounds and the
// driver's default crop window. A fixed single-input camera never
// switches inputs or crop presets, so Open just applies DefaultRect
// once and moves on.
type CropCapability struct {
	Bounds      Rect
	DefaultRect Rect
	PixelAspect Fract
}

// getCropCapability issues VIDIOC_CROPCAP for the capture queue.
func getCropCapability(fd uintptr) (CropCapability, error) {
	var cc C.struct_v4l2_cropcap
	cc._type = C.uint(BufTypeVideoCapture)

	if err := send(fd, C.VIDIOC_CROPCAP, uintptr(unsafe.Pointer(&cc))); err != nil {
		return CropCapability{}, fmt.Errorf("crop capability: %w", err)
	}

	toRect := func(r C.struct_v4l2_rect) Rect {
		return Rect{Left: int32(r.left), Top: int32(r.top), Width: uint32(r.width), Height: uint32(r.height)}
	}
	return CropCapability{
		Bounds:      toRect(cc.bounds),
		DefaultRect: toRect(cc.defrect),
		PixelAspect: Fract{Numerator: uint32(cc.pixelaspect.numerator), Denominator: uint32(cc.pixelaspect.denominator)},
	}, nil
}

// setCropRect issues VIDIOC_S_CROP for the capture queue.
func setCropRect(fd uintptr, r Rect) error {
	var crop C.struct_v4l2_crop
	crop._type = C.uint(BufTypeVideoCapture)
	crop.c.left = C.int(r.Left)
	crop.c.top = C.int(r.Top)
	crop.c.width = C.uint(r.Width)
	crop.c.height = C.uint(r.Height)

	if err := send(fd, C.VIDIOC_S_CROP, uintptr(unsafe.Pointer(&crop))); err != nil {
		return fmt.Errorf("set crop: %w", err)
	}
	return nil
}
