package kbuf

import (
	"fmt"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/greatboxS/raw-display/internal/ioctlnum"
)

// ION uapi, hand-encoded: unlike dma-heap/dma-buf, <linux/ion.h> was
// dropped from mainline kernel headers years ago and has no guaranteed
// system header to cgo against, so its wire structs and ioctl numbers are
// reproduced here directly (current upstream ABI: fd-returning single-step
// alloc, no legacy handle/align fields).
const ionIOCMagic = 'I'

type ionAllocationData struct {
	Len        uint64
	HeapIDMask uint32
	Flags      uint32
	Fd         uint32
	_          uint32 // unused, kernel-reserved
}

var ionIOCAlloc = ioctlnum.IOWR(ionIOCMagic, 0, unsafe.Sizeof(ionAllocationData{}))

type ionSyncData struct {
	Fd    int32
	Flags int32
}

var ionIOCSync = ioctlnum.IOWR(ionIOCMagic, 4, unsafe.Sizeof(ionSyncData{}))

// IonDevice allocates buffers from the legacy /dev/ion allocator, kept for
// older kernels that predate dma-heap.
type IonDevice struct {
	path string
	fd   int
}

// NewIonDevice returns an IonDevice bound to the given device path,
// defaulting to "/dev/ion".
func NewIonDevice(devPath string) *IonDevice {
	if devPath == "" {
		devPath = "/dev/ion"
	}
	return &IonDevice{path: devPath, fd: -1}
}

// Open opens /dev/ion.
func (d *IonDevice) Open() error {
	if d.fd >= 0 {
		return nil
	}
	fd, err := openFn(d.path, sys.O_RDWR|sys.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("kbuf: open %s: %w", d.path, err)
	}
	d.fd = fd
	return nil
}

// Close closes the allocator device.
func (d *IonDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeFn(d.fd)
	d.fd = -1
	return err
}

// IsOpen reports whether the device is open.
func (d *IonDevice) IsOpen() bool { return d.fd >= 0 }

// Path returns the allocator device's path.
func (d *IonDevice) Path() string { return d.path }

// Allocate requests length bytes from the heaps selected by heapMask
// (defaulting to 1, the system heap's bit) and maps the resulting buffer.
func (d *IonDevice) Allocate(length int, heapMask uint32, flags uint32) (*BufferHandle, error) {
	if d.fd < 0 {
		return nil, ErrorNotOpen
	}
	if heapMask == 0 {
		heapMask = 1
	}

	data := ionAllocationData{
		Len:        uint64(length),
		HeapIDMask: heapMask,
		Flags:      flags,
	}
	if err := send(d.fd, ionIOCAlloc, uintptr(unsafe.Pointer(&data))); err != nil {
		return nil, fmt.Errorf("kbuf: ION_IOC_ALLOC: %w", err)
	}
	bufFd := int(data.Fd)

	virt, err := mmapFn(bufFd, 0, length, sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		_ = closeFn(bufFd)
		return nil, fmt.Errorf("kbuf: mmap ion buffer: %w", err)
	}

	h := newBufferHandle(bufFd, -1, virt, length)
	h.beginFn = ionSync
	h.endFn = ionSync
	return h, nil
}

// Free unmaps and closes an ION-backed buffer.
func (d *IonDevice) Free(h *BufferHandle) error {
	return freeDmaBufHandle(h)
}

func ionSync(h *BufferHandle, start bool, flags int) error {
	if h.Fd < 0 {
		return ErrorBadArgument
	}
	data := ionSyncData{Fd: int32(h.Fd), Flags: int32(flags)}
	if err := send(h.Fd, ionIOCSync, uintptr(unsafe.Pointer(&data))); err != nil {
		return fmt.Errorf("kbuf: ION_IOC_SYNC: %w", err)
	}
	return nil
}
