package v4l2dev

/*
#include <linux/videodev2.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// FormatDescription is one entry in a device's list of pixel formats
// it can deliver on the capture queue.
type FormatDescription struct {
	Index       uint32
	PixelFormat FourCCType
	Description string
}

func (d FormatDescription) String() string {
	return fmt.Sprintf("%s [index %d, format %s]", d.Description, d.Index, pixelFormatNames[d.PixelFormat])
}

// getAllFormatDescriptions enumerates VIDIOC_ENUM_FMT from index 0
// until the driver returns EINVAL, which marks the end of the list.
func getAllFormatDescriptions(fd uintptr) ([]FormatDescription, error) {
	var result []FormatDescription
	for index := uint32(0); ; index++ {
		var fmtDesc C.struct_v4l2_fmtdesc
		fmtDesc.index = C.uint(index)
		fmtDesc._type = C.uint(BufTypeVideoCapture)

		if err := send(fd, C.VIDIOC_ENUM_FMT, uintptr(unsafe.Pointer(&fmtDesc))); err != nil {
			if errors.Is(err, ErrorBadArgument) && len(result) > 0 {
				break
			}
			return result, fmt.Errorf("format desc: index %d: %w", index, err)
		}
		result = append(result, FormatDescription{
			Index:       uint32(fmtDesc.index),
			PixelFormat: FourCCType(fmtDesc.pixelformat),
			Description: C.GoString((*C.char)(unsafe.Pointer(&fmtDesc.description[0]))),
		})
	}
	return result, nil
}
