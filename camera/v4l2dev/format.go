package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// BufType identifies the V4L2 buffer queue a request applies to. This
// device only ever opens the capture queue.
type BufType = uint32

const BufTypeVideoCapture BufType = C.V4L2_BUF_TYPE_VIDEO_CAPTURE

// FourCCType is a four-character pixel format code.
type FourCCType = uint32

// Pixel formats a fixed rear-view camera actually negotiates. go4vl's
// FourCC table also carries RGB24/GREY/JPEG/MPEG/H264/MPEG4 and the
// alternate YUV byte orderings (YYUV/YVYU/UYVY/VYUY) for general
// webcam/codec use; a single-input capture-only device picks between
// raw YUYV and, when the driver can't deliver enough bandwidth
// uncompressed, MJPEG.
const (
	PixelFmtYUYV  FourCCType = C.V4L2_PIX_FMT_YUYV
	PixelFmtMJPEG FourCCType = C.V4L2_PIX_FMT_MJPEG
)

var pixelFormatNames = map[FourCCType]string{
	PixelFmtYUYV:  "YUYV 4:2:2",
	PixelFmtMJPEG: "Motion-JPEG",
}

// FieldType is the field order of a captured frame.
type FieldType = uint32

const (
	FieldAny  FieldType = C.V4L2_FIELD_ANY
	FieldNone FieldType = C.V4L2_FIELD_NONE
)

// PixFormat is the negotiated capture format: dimensions, FourCC, and
// the handful of wire fields the driver fills in on VIDIOC_G_FMT. The
// full v4l2_pix_format union also carries YCbCr/HSV encoding,
// quantization range, and transfer function for colorimetry-aware
// pipelines (HDR, wide gamut); this pipeline does no color conversion
// and passes Colorspace through opaquely, so those breakdown fields
// aren't modeled.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  FourCCType
	Field        FieldType
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
}

func (f PixFormat) String() string {
	return fmt.Sprintf("%s [%dx%d]; bytes per line=%d; size image=%d",
		pixelFormatNames[f.PixelFormat], f.Width, f.Height, f.BytesPerLine, f.SizeImage)
}

// getPixFormat issues VIDIOC_G_FMT for the capture queue.
func getPixFormat(fd uintptr) (PixFormat, error) {
	var v4l2Format C.struct_v4l2_format
	v4l2Format._type = C.uint(BufTypeVideoCapture)

	if err := send(fd, C.VIDIOC_G_FMT, uintptr(unsafe.Pointer(&v4l2Format))); err != nil {
		return PixFormat{}, fmt.Errorf("pix format: %w", err)
	}

	pf := (*C.struct_v4l2_pix_format)(unsafe.Pointer(&v4l2Format.fmt[0]))
	return PixFormat{
		Width:        uint32(pf.width),
		Height:       uint32(pf.height),
		PixelFormat:  FourCCType(pf.pixelformat),
		Field:        FieldType(pf.field),
		BytesPerLine: uint32(pf.bytesperline),
		SizeImage:    uint32(pf.sizeimage),
		Colorspace:   uint32(pf.colorspace),
	}, nil
}

// setPixFormat issues VIDIOC_S_FMT for the capture queue, filling the
// C struct field by field rather than reinterpreting the Go struct's
// memory as the C one, so the two are free to diverge in field set.
func setPixFormat(fd uintptr, pixFmt PixFormat) error {
	var v4l2Format C.struct_v4l2_format
	v4l2Format._type = C.uint(BufTypeVideoCapture)

	pf := (*C.struct_v4l2_pix_format)(unsafe.Pointer(&v4l2Format.fmt[0]))
	pf.width = C.uint(pixFmt.Width)
	pf.height = C.uint(pixFmt.Height)
	pf.pixelformat = C.uint(pixFmt.PixelFormat)
	pf.field = C.uint(pixFmt.Field)
	pf.bytesperline = C.uint(pixFmt.BytesPerLine)
	pf.sizeimage = C.uint(pixFmt.SizeImage)
	pf.colorspace = C.uint(pixFmt.Colorspace)

	if err := send(fd, C.VIDIOC_S_FMT, uintptr(unsafe.Pointer(&v4l2Format))); err != nil {
		return fmt.Errorf("pix format: %w", err)
	}
	return nil
}
