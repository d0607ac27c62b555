package v4l2dev

import "fmt"

// GetControl queries the device for information about the specified control id.
func (d *Device) GetControl(ctrlID CtrlID) (Control, error) {
	ctrl, err := getControl(d.fd, ctrlID)
	if err != nil {
		return Control{}, fmt.Errorf("v4l2dev: %s: %w", d.path, err)
	}
	return ctrl, nil
}

// SetControlValue updates the value of the specified control id.
func (d *Device) SetControlValue(ctrlID CtrlID, val CtrlValue) error {
	if err := setControlValue(d.fd, ctrlID, val); err != nil {
		return fmt.Errorf("v4l2dev: %s: %w", d.path, err)
	}
	return nil
}

// QueryAllControls fetches all supported device controls and their ranges; current values are not read.
func (d *Device) QueryAllControls() ([]Control, error) {
	ctrls, err := queryAllControls(d.fd)
	if err != nil {
		return nil, fmt.Errorf("v4l2dev: %s: %w", d.path, err)
	}
	return ctrls, nil
}

// SetControlBrightness is a convenience method for setting CtrlBrightness.
func (d *Device) SetControlBrightness(val CtrlValue) error {
	return d.SetControlValue(CtrlBrightness, val)
}

// SetControlContrast is a convenience method for setting CtrlContrast.
func (d *Device) SetControlContrast(val CtrlValue) error {
	return d.SetControlValue(CtrlContrast, val)
}

// SetControlSaturation is a convenience method for setting CtrlSaturation.
func (d *Device) SetControlSaturation(val CtrlValue) error {
	return d.SetControlValue(CtrlSaturation, val)
}

// SetControlHue is a convenience method for setting CtrlHue.
func (d *Device) SetControlHue(val CtrlValue) error {
	return d.SetControlValue(CtrlHue, val)
}
