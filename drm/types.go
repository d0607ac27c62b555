package drm

// ModeInfo is a plain copy of a kernel drm_mode_modeinfo: resolution,
// timings, and refresh for one display mode.
type ModeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       string
}

func modeInfoFromWire(w modeModeInfo) ModeInfo {
	name := w.Name[:]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	return ModeInfo{
		Clock: w.Clock, Hdisplay: w.Hdisplay, HsyncStart: w.HsyncStart,
		HsyncEnd: w.HsyncEnd, Htotal: w.Htotal, Vdisplay: w.Vdisplay,
		VsyncStart: w.VsyncStart, VsyncEnd: w.VsyncEnd, Vtotal: w.Vtotal,
		Vrefresh: w.Vrefresh, Flags: w.Flags, Type: w.Type, Name: string(name),
	}
}

func (m ModeInfo) toWire() modeModeInfo {
	w := modeModeInfo{
		Clock: m.Clock, Hdisplay: m.Hdisplay, HsyncStart: m.HsyncStart,
		HsyncEnd: m.HsyncEnd, Htotal: m.Htotal, Vdisplay: m.Vdisplay,
		VsyncStart: m.VsyncStart, VsyncEnd: m.VsyncEnd, Vtotal: m.Vtotal,
		Vrefresh: m.Vrefresh, Flags: m.Flags, Type: m.Type,
	}
	copy(w.Name[:], m.Name)
	return w
}

// CrtcInfo is the width/height/buffer/enabled snapshot of one CRTC as
// resolved through a connector's current encoder.
type CrtcInfo struct {
	ID      uint32
	FbID    uint32
	Width   uint32
	Height  uint32
	Enabled bool
	Mode    ModeInfo
}

// EncoderInfo is one enumerated encoder.
type EncoderInfo struct {
	ID            uint32
	Type          uint32
	CrtcID        uint32
	PossibleCrtcs uint32
}

// ConnectorInfo describes one connected display output: its current
// encoder and (through it) its current CRTC.
type ConnectorInfo struct {
	ID          uint32
	EncoderID   uint32
	Type        uint32
	TypeID      uint32
	Connected   bool
	MmWidth     uint32
	MmHeight    uint32
	Crtc        CrtcInfo
}

// PlaneInfo is one enumerated plane and its supported pixel formats.
type PlaneInfo struct {
	ID            uint32
	CrtcID        uint32
	FbID          uint32
	PossibleCrtcs uint32
	Formats       []uint32
}

// CardInfo summarizes the enumeration performed by QueryAllDeviceInfo:
// connected connectors, encoders, CRTCs, and planes keyed by id.
type CardInfo struct {
	MinWidth, MaxWidth   uint32
	MinHeight, MaxHeight uint32
	Connectors map[uint32]ConnectorInfo
	Encoders   map[uint32]EncoderInfo
	Crtcs      map[uint32]CrtcInfo
	Planes     map[uint32]PlaneInfo
}

// AllocatorType selects one of the three scanout buffer strategies.
type AllocatorType int

const (
	AllocatorMMap AllocatorType = iota
	AllocatorDmaHeap
	AllocatorIon
)

// BufferInfo describes the buffer a scanout allocator is asked to
// produce.
type BufferInfo struct {
	Width  uint32
	Height uint32
	Bpp    uint32
	Depth  uint32
	Format uint32 // fourcc; 0 selects the legacy AddFB(depth,bpp) path
	Flags  uint32
}

// ScanoutBuffer is a tagged-variant result of one of the three allocator
// strategies, not an interface: release and prime-export need to know
// which kernel objects were involved (dumb-buffer handle vs. GEM handle
// imported from a dma-buf fd), and a closed set of three strategies is a
// switch away from an interface's indirection cost and boxing.
type ScanoutBuffer struct {
	Allocator AllocatorType

	FbID   uint32
	Handle uint32 // GEM handle (dumb-buffer handle, or prime-imported handle)
	Stride uint32
	Size   uint64
	Ptr    []byte
}
