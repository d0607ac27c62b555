package drm

import (
	"fmt"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/greatboxS/raw-display/kbuf"
)

// AllocateBuffer produces a ScanoutBuffer on the given DRM device fd using
// the strategy named by the allocator argument, per §4.2: mappable from
// the CPU, registered as a framebuffer, and prime-exportable.
func AllocateBuffer(devFd int, allocator AllocatorType, info BufferInfo) (*ScanoutBuffer, error) {
	switch allocator {
	case AllocatorMMap:
		return allocateMMap(devFd, info)
	case AllocatorDmaHeap:
		return allocateDmaHeap(devFd, info)
	case AllocatorIon:
		return allocateIon(devFd, info)
	default:
		return nil, fmt.Errorf("drm: %w: unknown allocator %d", ErrorBadArgument, allocator)
	}
}

// ReleaseBuffer frees a ScanoutBuffer through the strategy it was
// allocated with.
func ReleaseBuffer(devFd int, buf *ScanoutBuffer) error {
	if buf == nil {
		return nil
	}
	switch buf.Allocator {
	case AllocatorMMap:
		return releaseMMap(devFd, buf)
	case AllocatorDmaHeap, AllocatorIon:
		return releaseImported(devFd, buf)
	default:
		return fmt.Errorf("drm: %w: unknown allocator %d", ErrorBadArgument, buf.Allocator)
	}
}

func addFramebuffer(devFd int, info BufferInfo, handle uint32) (uint32, uint32, error) {
	if info.Format != 0 {
		fb := modeFbCmd2{
			Width: info.Width, Height: info.Height, PixelFormat: info.Format,
		}
		fb.Handles[0] = handle
		fb.Pitches[0] = info.Width * info.Bpp / 8
		if err := send(devFd, reqAddFB2, uintptr(unsafe.Pointer(&fb))); err != nil {
			return 0, 0, err
		}
		return fb.FbID, fb.Pitches[0], nil
	}
	fb := modeFbCmd{
		Width: info.Width, Height: info.Height, Bpp: info.Bpp, Depth: info.Depth,
		Handle: handle, Pitch: info.Width * info.Bpp / 8,
	}
	if err := send(devFd, reqAddFB, uintptr(unsafe.Pointer(&fb))); err != nil {
		return 0, 0, err
	}
	return fb.FbID, fb.Pitch, nil
}

func removeFramebuffer(devFd int, fbID uint32) error {
	id := fbID
	return send(devFd, reqRmFB, uintptr(unsafe.Pointer(&id)))
}

func allocateMMap(devFd int, info BufferInfo) (*ScanoutBuffer, error) {
	dumb := modeCreateDumb{Width: info.Width, Height: info.Height, Bpp: info.Bpp, Flags: info.Flags}
	if err := send(devFd, reqCreateDumb, uintptr(unsafe.Pointer(&dumb))); err != nil {
		return nil, fmt.Errorf("drm: create dumb buffer: %w", err)
	}

	fbID, pitch, err := addFramebuffer(devFd, info, dumb.Handle)
	if err != nil {
		destroyDumb(devFd, dumb.Handle)
		return nil, fmt.Errorf("drm: add framebuffer: %w", err)
	}

	mapReq := modeMapDumb{Handle: dumb.Handle}
	if err := send(devFd, reqMapDumb, uintptr(unsafe.Pointer(&mapReq))); err != nil {
		removeFramebuffer(devFd, fbID)
		destroyDumb(devFd, dumb.Handle)
		return nil, fmt.Errorf("drm: map dumb buffer: %w", err)
	}

	ptr, err := mmapFn(devFd, int64(mapReq.Offset), int(dumb.Size), sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		removeFramebuffer(devFd, fbID)
		destroyDumb(devFd, dumb.Handle)
		return nil, fmt.Errorf("drm: mmap dumb buffer: %w", err)
	}
	for i := range ptr {
		ptr[i] = 0
	}

	return &ScanoutBuffer{
		Allocator: AllocatorMMap,
		FbID:      fbID,
		Handle:    dumb.Handle,
		Stride:    pitch,
		Size:      dumb.Size,
		Ptr:       ptr,
	}, nil
}

func destroyDumb(devFd int, handle uint32) error {
	req := modeDestroyDumb{Handle: handle}
	return send(devFd, reqDestroyDumb, uintptr(unsafe.Pointer(&req)))
}

func releaseMMap(devFd int, buf *ScanoutBuffer) error {
	if buf.Ptr != nil {
		munmapFn(buf.Ptr)
	}
	removeFramebuffer(devFd, buf.FbID)
	return destroyDumb(devFd, buf.Handle)
}

func allocateDmaHeap(devFd int, info BufferInfo) (*ScanoutBuffer, error) {
	heap := kbuf.NewHeapDevice("")
	if err := heap.Open(); err != nil {
		return nil, fmt.Errorf("drm: open dma-heap device: %w", err)
	}
	pitch := info.Width * info.Bpp / 8
	length := int(pitch) * int(info.Height)
	bh, err := heap.Allocate(length, sys.O_CLOEXEC|sys.O_RDWR, 0)
	heap.Close() // the dma-buf fd outlives the heap device that vended it.
	if err != nil {
		return nil, fmt.Errorf("drm: allocate dma-heap buffer: %w", err)
	}
	return importHeapBuffer(devFd, info, bh, pitch, AllocatorDmaHeap)
}

func allocateIon(devFd int, info BufferInfo) (*ScanoutBuffer, error) {
	ion := kbuf.NewIonDevice("")
	if err := ion.Open(); err != nil {
		return nil, fmt.Errorf("drm: open ion device: %w", err)
	}
	pitch := info.Width * info.Bpp / 8
	length := int(pitch) * int(info.Height)
	bh, err := ion.Allocate(length, 0, 0)
	ion.Close()
	if err != nil {
		return nil, fmt.Errorf("drm: allocate ion buffer: %w", err)
	}
	return importHeapBuffer(devFd, info, bh, pitch, AllocatorIon)
}

func importHeapBuffer(devFd int, info BufferInfo, bh *kbuf.BufferHandle, pitch uint32, tag AllocatorType) (*ScanoutBuffer, error) {
	primeReq := primeHandle{Fd: int32(bh.Fd)}
	if err := send(devFd, reqPrimeFdToHandle, uintptr(unsafe.Pointer(&primeReq))); err != nil {
		munmapFn(bh.Virt)
		closeFn(bh.Fd)
		return nil, fmt.Errorf("drm: import dma-buf as GEM handle: %w", err)
	}

	fbID, _, err := addFramebuffer(devFd, info, primeReq.Handle)
	if err != nil {
		gemClose(devFd, primeReq.Handle)
		munmapFn(bh.Virt)
		closeFn(bh.Fd)
		return nil, fmt.Errorf("drm: add framebuffer: %w", err)
	}

	for i := range bh.Virt {
		bh.Virt[i] = 0
	}
	dmaBufFd := bh.Fd
	closeFn(dmaBufFd) // the GEM handle keeps the buffer alive now.

	return &ScanoutBuffer{
		Allocator: tag,
		FbID:      fbID,
		Handle:    primeReq.Handle,
		Stride:    pitch,
		Size:      uint64(len(bh.Virt)),
		Ptr:       bh.Virt,
	}, nil
}

func releaseImported(devFd int, buf *ScanoutBuffer) error {
	if buf.Ptr != nil {
		munmapFn(buf.Ptr)
	}
	removeFramebuffer(devFd, buf.FbID)
	return gemClose(devFd, buf.Handle)
}

func gemClose(devFd int, handle uint32) error {
	req := gemClose{Handle: handle}
	return send(devFd, reqGemClose, uintptr(unsafe.Pointer(&req)))
}

// ExposeHandleToFd re-shares an already-registered buffer's GEM handle as
// a fresh dma-buf fd for another subsystem (e.g. EGL import). Each call
// returns a new fd owned by the caller; idempotency is not required.
func ExposeHandleToFd(devFd int, buf *ScanoutBuffer) (int, error) {
	req := primeHandle{Handle: buf.Handle, Flags: uint32(sys.O_CLOEXEC)}
	if err := send(devFd, reqPrimeHandleToFd, uintptr(unsafe.Pointer(&req))); err != nil {
		return -1, err
	}
	return int(req.Fd), nil
}
