package drm

import (
	"unsafe"

	"github.com/greatboxS/raw-display/internal/ioctlnum"
)

// Wire structs below mirror the kernel's <linux/drm.h>/<linux/drm_mode.h>
// uapi layout field-for-field; request numbers are encoded from those
// struct sizes rather than hand-copied hex, the same approach kbuf's ION
// backend uses for a header this module can't cgo against on every build
// host.
const drmIoctlType = 'd'

const (
	nrGetResources     = 0xA0
	nrGetCrtc          = 0xA1
	nrSetCrtc          = 0xA2
	nrGetEncoder       = 0xA6
	nrGetConnector     = 0xA7
	nrAddFB            = 0xAE
	nrRmFB             = 0xAF
	nrPageFlip         = 0xB0
	nrCreateDumb       = 0xB2
	nrMapDumb          = 0xB3
	nrDestroyDumb      = 0xB4
	nrGetPlaneRes      = 0xB5
	nrGetPlane         = 0xB6
	nrAddFB2           = 0xB8
	nrPrimeHandleToFd  = 0x2d
	nrPrimeFdToHandle  = 0x2e
	nrGemClose         = 0x09
)

type modeCardRes struct {
	FbIDPtr        uint64
	CrtcIDPtr      uint64
	ConnectorIDPtr uint64
	EncoderIDPtr   uint64
	CountFbs       uint32
	CountCrtcs     uint32
	CountConnectors uint32
	CountEncoders  uint32
	MinWidth       uint32
	MaxWidth       uint32
	MinHeight      uint32
	MaxHeight      uint32
}

type modeGetConnector struct {
	EncodersPtr   uint64
	ModesPtr      uint64
	PropsPtr      uint64
	PropValuesPtr uint64

	CountModes    uint32
	CountProps    uint32
	CountEncoders uint32

	EncoderID uint32 // current encoder
	ConnectorID uint32
	ConnectorType uint32
	ConnectorTypeID uint32

	Connection    uint32 // 1 = connected
	MmWidth       uint32
	MmHeight      uint32
	Subpixel      uint32

	Pad uint32
}

type modeGetEncoder struct {
	EncoderID     uint32
	EncoderType   uint32
	CrtcID        uint32
	PossibleCrtcs uint32
	PossibleClones uint32
}

type modeModeInfo struct {
	Clock      uint32
	Hdisplay   uint16
	HsyncStart uint16
	HsyncEnd   uint16
	Htotal     uint16
	Hskew      uint16
	Vdisplay   uint16
	VsyncStart uint16
	VsyncEnd   uint16
	Vtotal     uint16
	Vscan      uint16
	Vrefresh   uint32
	Flags      uint32
	Type       uint32
	Name       [32]byte
}

type modeCrtc struct {
	SetConnectorsPtr uint64
	CountConnectors  uint32
	CrtcID           uint32
	FbID             uint32
	X                uint32
	Y                uint32
	GammaSize        uint32
	ModeValid        uint32
	Mode             modeModeInfo
}

type modeGetPlaneRes struct {
	PlaneIDPtr  uint64
	CountPlanes uint32
}

type modeGetPlane struct {
	PlaneID        uint32
	CrtcID         uint32
	FbID           uint32
	PossibleCrtcs  uint32
	GammaSize      uint32
	CountFormatTypes uint32
	FormatTypePtr  uint64
}

type modeCreateDumb struct {
	Height uint32
	Width  uint32
	Bpp    uint32
	Flags  uint32
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type modeMapDumb struct {
	Handle uint32
	Pad    uint32
	Offset uint64
}

type modeDestroyDumb struct {
	Handle uint32
}

type modeFbCmd struct {
	FbID   uint32
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Handle uint32
}

type modeFbCmd2 struct {
	FbID   uint32
	Width  uint32
	Height uint32
	PixelFormat uint32
	Flags  uint32
	Handles  [4]uint32
	Pitches  [4]uint32
	Offsets  [4]uint32
	Modifier [4]uint64
}

type modeCrtcPageFlip struct {
	CrtcID   uint32
	FbID     uint32
	Flags    uint32
	Reserved uint32
	UserData uint64
}

type primeHandle struct {
	Handle uint32
	Flags  uint32
	Fd     int32
}

type gemClose struct {
	Handle uint32
	Pad    uint32
}

// drmEvent is the common header every event read off the device fd
// begins with; vblank/page-flip payloads follow it in the same read.
type drmEvent struct {
	Type   uint32
	Length uint32
}

type drmEventVblank struct {
	Base       drmEvent
	UserData   uint64
	TvSec      uint32
	TvUsec     uint32
	Sequence   uint32
	CrtcID     uint32 // present on kernels new enough to report it; 0 otherwise
}

const drmEventFlipComplete = 0x01

var (
	reqGetResources    = ioctlnum.IOWR(drmIoctlType, nrGetResources, unsafe.Sizeof(modeCardRes{}))
	reqGetConnector    = ioctlnum.IOWR(drmIoctlType, nrGetConnector, unsafe.Sizeof(modeGetConnector{}))
	reqGetEncoder      = ioctlnum.IOWR(drmIoctlType, nrGetEncoder, unsafe.Sizeof(modeGetEncoder{}))
	reqGetCrtc         = ioctlnum.IOWR(drmIoctlType, nrGetCrtc, unsafe.Sizeof(modeCrtc{}))
	reqSetCrtc         = ioctlnum.IOWR(drmIoctlType, nrSetCrtc, unsafe.Sizeof(modeCrtc{}))
	reqGetPlaneRes     = ioctlnum.IOWR(drmIoctlType, nrGetPlaneRes, unsafe.Sizeof(modeGetPlaneRes{}))
	reqGetPlane        = ioctlnum.IOWR(drmIoctlType, nrGetPlane, unsafe.Sizeof(modeGetPlane{}))
	reqCreateDumb      = ioctlnum.IOWR(drmIoctlType, nrCreateDumb, unsafe.Sizeof(modeCreateDumb{}))
	reqMapDumb         = ioctlnum.IOWR(drmIoctlType, nrMapDumb, unsafe.Sizeof(modeMapDumb{}))
	reqDestroyDumb     = ioctlnum.IOWR(drmIoctlType, nrDestroyDumb, unsafe.Sizeof(modeDestroyDumb{}))
	reqAddFB           = ioctlnum.IOWR(drmIoctlType, nrAddFB, unsafe.Sizeof(modeFbCmd{}))
	reqAddFB2          = ioctlnum.IOWR(drmIoctlType, nrAddFB2, unsafe.Sizeof(modeFbCmd2{}))
	reqRmFB            = ioctlnum.IOWR(drmIoctlType, nrRmFB, unsafe.Sizeof(uint32(0)))
	reqPageFlip        = ioctlnum.IOWR(drmIoctlType, nrPageFlip, unsafe.Sizeof(modeCrtcPageFlip{}))
	reqPrimeFdToHandle = ioctlnum.IOWR(drmIoctlType, nrPrimeFdToHandle, unsafe.Sizeof(primeHandle{}))
	reqPrimeHandleToFd = ioctlnum.IOWR(drmIoctlType, nrPrimeHandleToFd, unsafe.Sizeof(primeHandle{}))
	reqGemClose        = ioctlnum.IOW(drmIoctlType, nrGemClose, unsafe.Sizeof(gemClose{}))
)
