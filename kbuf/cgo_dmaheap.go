package kbuf

/*
#cgo linux CFLAGS: -I/usr/include
#include <linux/dma-heap.h>
#include <linux/dma-buf.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

// DmaBufSync flag values for BufferHandle.BeginAccess/EndAccess, mirroring DMA_BUF_SYNC_READ/
// WRITE/RW from linux/dma-buf.h.
const (
	DmaBufSyncRead  = int(C.DMA_BUF_SYNC_READ)
	DmaBufSyncWrite = int(C.DMA_BUF_SYNC_WRITE)
	DmaBufSyncRW    = DmaBufSyncRead | DmaBufSyncWrite
)

// HeapDevice allocates buffers from a DMA-heap exposed under
// /dev/dma_heap/*, the current (post-ION) Linux buffer-sharing allocator.
type HeapDevice struct {
	path string
	fd   int
}

// NewHeapDevice returns a HeapDevice bound to the named heap, e.g.
// "/dev/dma_heap/system" or a vendor-specific contiguous heap.
func NewHeapDevice(heapPath string) *HeapDevice {
	if heapPath == "" {
		heapPath = "/dev/dma_heap/system"
	}
	return &HeapDevice{path: heapPath, fd: -1}
}

// Open opens the heap device. It must be called before Allocate.
func (d *HeapDevice) Open() error {
	fd, err := openFn(d.path, sys.O_RDONLY|sys.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("kbuf: open heap %s: %w", d.path, err)
	}
	d.fd = fd
	return nil
}

// Close closes the heap device. It does not affect buffers already
// allocated from it.
func (d *HeapDevice) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := closeFn(d.fd)
	d.fd = -1
	return err
}

// IsOpen reports whether Open has succeeded without a matching Close.
func (d *HeapDevice) IsOpen() bool { return d.fd >= 0 }

// Path returns the heap device's path.
func (d *HeapDevice) Path() string { return d.path }

// Allocate requests length bytes from the heap and maps them read/write
// into the process's address space. fdFlags are applied to the returned
// dma-buf fd (default O_CLOEXEC|O_RDWR when zero); heapFlags are
// heap-specific allocation flags, usually zero.
func (d *HeapDevice) Allocate(length int, fdFlags int, heapFlags uint32) (*BufferHandle, error) {
	if d.fd < 0 {
		return nil, ErrorNotOpen
	}
	if fdFlags == 0 {
		fdFlags = sys.O_CLOEXEC | sys.O_RDWR
	}

	var data C.struct_dma_heap_allocation_data
	data.len = C.__u64(length)
	data.fd_flags = C.__u32(fdFlags)
	data.heap_flags = C.__u64(heapFlags)

	if err := send(d.fd, uintptr(C.DMA_HEAP_IOCTL_ALLOC), uintptr(unsafe.Pointer(&data))); err != nil {
		return nil, fmt.Errorf("kbuf: DMA_HEAP_IOCTL_ALLOC: %w", err)
	}
	bufFd := int(data.fd)

	virt, err := mmapFn(bufFd, 0, length, sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		_ = closeFn(bufFd)
		return nil, fmt.Errorf("kbuf: mmap dma-heap buffer: %w", err)
	}

	h := newBufferHandle(bufFd, -1, virt, length)
	h.beginFn = dmaHeapSync
	h.endFn = dmaHeapSync
	return h, nil
}

// Free unmaps and closes a buffer allocated from a DMA-heap. The handle
// must not be used afterward.
func (d *HeapDevice) Free(h *BufferHandle) error {
	return freeDmaBufHandle(h)
}

func freeDmaBufHandle(h *BufferHandle) error {
	var firstErr error
	if h.Virt != nil {
		if err := munmapFn(h.Virt); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kbuf: munmap: %w", err)
		}
		h.Virt = nil
	}
	if h.Fd >= 0 {
		if err := closeFn(h.Fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kbuf: close dma-buf fd: %w", err)
		}
		h.Fd = -1
	}
	h.Length = 0
	return firstErr
}

func dmaHeapSync(h *BufferHandle, start bool, flags int) error {
	if h.Fd < 0 {
		return ErrorBadArgument
	}
	if flags == 0 {
		flags = DmaBufSyncRW
	}

	var sync C.struct_dma_buf_sync
	if start {
		sync.flags = C.__u64(flags) | C.DMA_BUF_SYNC_START
	} else {
		sync.flags = C.__u64(flags) | C.DMA_BUF_SYNC_END
	}

	if err := send(h.Fd, uintptr(C.DMA_BUF_IOCTL_SYNC), uintptr(unsafe.Pointer(&sync))); err != nil {
		return fmt.Errorf("kbuf: DMA_BUF_IOCTL_SYNC: %w", err)
	}
	return nil
}
