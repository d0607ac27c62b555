package v4l2dev

/*
#cgo linux CFLAGS: -I/usr/include
#include <linux/videodev2.h>
#include <linux/v4l2-controls.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// CtrlID identifies a V4L2 user control.
type CtrlID = uint32

// CtrlValue is a user control's value.
type CtrlValue = int32

// The image-quality controls a rear-view camera's picture-tuning step
// actually exposes. go4vl's full CtrlID table also lists white
// balance, gain, gamma, sharpness, powerline frequency, color FX, and
// a dozen others aimed at general webcam tuning UIs; this device only
// ever reads or writes these four.
const (
	CtrlBrightness CtrlID = C.V4L2_CID_BRIGHTNESS
	CtrlContrast   CtrlID = C.V4L2_CID_CONTRAST
	CtrlSaturation CtrlID = C.V4L2_CID_SATURATION
	CtrlHue        CtrlID = C.V4L2_CID_HUE
)

// Control (v4l2_queryctrl + the control's current value) describes a
// single user control: its allowed range, default, and current
// setting.
type Control struct {
	fd      uintptr
	ID      CtrlID
	Value   CtrlValue
	Name    string
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
}

// getControlValue issues VIDIOC_G_CTRL.
func getControlValue(fd uintptr, id CtrlID) (CtrlValue, error) {
	var ctrl C.struct_v4l2_control
	ctrl.id = C.uint(id)

	if err := send(fd, C.VIDIOC_G_CTRL, uintptr(unsafe.Pointer(&ctrl))); err != nil {
		return 0, fmt.Errorf("get control value: id %d: %w", id, err)
	}
	return CtrlValue(ctrl.value), nil
}

// setControlValue issues VIDIOC_S_CTRL after range-checking val
// against the control's queried minimum/maximum.
func setControlValue(fd uintptr, id CtrlID, val CtrlValue) error {
	info, err := queryControlInfo(fd, id)
	if err != nil {
		return fmt.Errorf("set control value: id %d: %w", id, err)
	}
	if val < info.Minimum || val > info.Maximum {
		return fmt.Errorf("set control value: id %d: %d out of range [%d, %d]", id, val, info.Minimum, info.Maximum)
	}

	var ctrl C.struct_v4l2_control
	ctrl.id = C.uint(id)
	ctrl.value = C.int(val)
	if err := send(fd, C.VIDIOC_S_CTRL, uintptr(unsafe.Pointer(&ctrl))); err != nil {
		return fmt.Errorf("set control value: id %d: %w", id, err)
	}
	return nil
}

// queryControlInfo issues VIDIOC_QUERYCTRL, which returns a control's
// range and default but not its current value.
func queryControlInfo(fd uintptr, id CtrlID) (Control, error) {
	var qryCtrl C.struct_v4l2_queryctrl
	qryCtrl.id = C.uint(id)

	if err := send(fd, C.VIDIOC_QUERYCTRL, uintptr(unsafe.Pointer(&qryCtrl))); err != nil {
		return Control{}, fmt.Errorf("query control info: id %d: %w", id, err)
	}
	return Control{
		fd:      fd,
		ID:      uint32(qryCtrl.id),
		Name:    C.GoString((*C.char)(unsafe.Pointer(&qryCtrl.name[0]))),
		Minimum: int32(qryCtrl.minimum),
		Maximum: int32(qryCtrl.maximum),
		Step:    int32(qryCtrl.step),
		Default: int32(qryCtrl.default_value),
	}, nil
}

// getControl queries both a control's range and its current value.
func getControl(fd uintptr, id CtrlID) (Control, error) {
	ctrl, err := queryControlInfo(fd, id)
	if err != nil {
		return Control{}, fmt.Errorf("get control: %w", err)
	}
	val, err := getControlValue(fd, id)
	if err != nil {
		return Control{}, fmt.Errorf("get control: %w", err)
	}
	ctrl.Value = val
	return ctrl, nil
}

// queryAllControls walks the V4L2_CTRL_FLAG_NEXT_CTRL chain to
// enumerate every control the driver exposes, without their values
// (use getControlValue for that).
func queryAllControls(fd uintptr) ([]Control, error) {
	var result []Control
	cid := uint32(C.V4L2_CTRL_FLAG_NEXT_CTRL)
	for {
		ctrl, err := queryControlInfo(fd, cid)
		if err != nil {
			if errors.Is(err, ErrorBadArgument) && len(result) > 0 {
				break
			}
			return result, fmt.Errorf("query all controls: %w", err)
		}
		result = append(result, ctrl)
		cid = ctrl.ID | uint32(C.V4L2_CTRL_FLAG_NEXT_CTRL)
	}
	return result, nil
}
