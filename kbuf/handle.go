package kbuf

import "sync"

// accessFunc performs the cache-coherency sync an allocator requires
// before (start=true) or after (start=false) the CPU touches a buffer's
// mapped memory.
type accessFunc func(h *BufferHandle, start bool, flags int) error

// BufferHandle describes one kernel-backed buffer: its exportable dma-buf
// file descriptor, an allocator-private handle (ION only; -1 otherwise),
// the CPU mapping, and its length. A BufferHandle must not be copied after
// it is returned from an allocator — it carries a mutex guarding
// BeginAccess/EndAccess pairing, and ownership of the fd/mapping is
// singular.
type BufferHandle struct {
	Fd     int
	Handle int32
	Virt   []byte
	Phys   uintptr
	Length int

	mu       sync.Mutex
	beginFn  accessFunc
	endFn    accessFunc
	accessed int
}

// newBufferHandle constructs a handle. fd is the dma-buf (or ION) file
// descriptor, handle is the ION allocator handle (-1 for dma-heap), virt
// is the mmap'd region, and length is its size in bytes.
func newBufferHandle(fd int, handle int32, virt []byte, length int) *BufferHandle {
	return &BufferHandle{
		Fd:     fd,
		Handle: handle,
		Virt:   virt,
		Length: length,
	}
}

// BeginAccess notifies the allocator the CPU is about to read or write the
// mapped memory, flushing/invalidating caches as the backing allocator
// requires. flags selects DmaBufSyncRead/DmaBufSyncWrite/DmaBufSyncRW for
// the dma-heap backend; the ION backend passes it unchanged in its sync
// request.
func (h *BufferHandle) BeginAccess(flags int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.beginFn == nil {
		return nil
	}
	return h.beginFn(h, true, flags)
}

// EndAccess is the BeginAccess counterpart, called once the CPU is done
// touching the buffer.
func (h *BufferHandle) EndAccess(flags int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.endFn == nil {
		return nil
	}
	return h.endFn(h, false, flags)
}
