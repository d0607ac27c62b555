package kbuf

/*
#include <linux/dma-heap.h>
*/
import "C"

import (
	"errors"
	"testing"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

func withFakeSyscalls(t *testing.T, run func()) {
	t.Helper()
	origIoctl, origOpen, origClose, origMmap, origMunmap := ioctlFn, openFn, closeFn, mmapFn, munmapFn
	defer func() {
		ioctlFn, openFn, closeFn, mmapFn, munmapFn = origIoctl, origOpen, origClose, origMmap, origMunmap
	}()
	run()
}

func TestHeapDevice_OpenClose(t *testing.T) {
	withFakeSyscalls(t, func() {
		openFn = func(path string, mode int, perm uint32) (int, error) { return 9, nil }
		closeFn = func(fd int) error { return nil }

		d := NewHeapDevice("")
		if d.Path() != "/dev/dma_heap/system" {
			t.Errorf("Path() = %s, want default", d.Path())
		}
		if err := d.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if !d.IsOpen() {
			t.Error("IsOpen() = false after Open()")
		}
		if err := d.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if d.IsOpen() {
			t.Error("IsOpen() = true after Close()")
		}
	})
}

func TestHeapDevice_Allocate_NotOpen(t *testing.T) {
	d := NewHeapDevice("/dev/dma_heap/system")
	if _, err := d.Allocate(4096, 0, 0); !errors.Is(err, ErrorNotOpen) {
		t.Fatalf("Allocate() error = %v, want ErrorNotOpen", err)
	}
}

func TestHeapDevice_Allocate_Success(t *testing.T) {
	withFakeSyscalls(t, func() {
		openFn = func(path string, mode int, perm uint32) (int, error) { return 9, nil }
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			data := (*C.struct_dma_heap_allocation_data)(unsafe.Pointer(arg))
			data.fd = 42
			return 0
		}
		var mappedFd int
		mmapFn = func(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
			mappedFd = fd
			return make([]byte, length), nil
		}

		d := NewHeapDevice("/dev/dma_heap/system")
		if err := d.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		h, err := d.Allocate(4096, 0, 0)
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if h.Fd != 42 {
			t.Errorf("handle.Fd = %d, want 42", h.Fd)
		}
		if mappedFd != 42 {
			t.Errorf("mmap called with fd %d, want 42", mappedFd)
		}
		if len(h.Virt) != 4096 {
			t.Errorf("len(Virt) = %d, want 4096", len(h.Virt))
		}
	})
}

func TestHeapDevice_Allocate_IoctlFails(t *testing.T) {
	withFakeSyscalls(t, func() {
		openFn = func(path string, mode int, perm uint32) (int, error) { return 9, nil }
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno { return sys.ENOMEM }

		d := NewHeapDevice("/dev/dma_heap/system")
		_ = d.Open()
		if _, err := d.Allocate(4096, 0, 0); !errors.Is(err, ErrorSystem) {
			t.Fatalf("Allocate() error = %v, want wrapping ErrorSystem", err)
		}
	})
}

func TestHeapDevice_Allocate_MmapFails_ClosesFd(t *testing.T) {
	withFakeSyscalls(t, func() {
		openFn = func(path string, mode int, perm uint32) (int, error) { return 9, nil }
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			data := (*C.struct_dma_heap_allocation_data)(unsafe.Pointer(arg))
			data.fd = 42
			return 0
		}
		var closedFd int
		closeFn = func(fd int) error { closedFd = fd; return nil }
		mmapFn = func(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
			return nil, errors.New("mmap failed")
		}

		d := NewHeapDevice("/dev/dma_heap/system")
		_ = d.Open()
		if _, err := d.Allocate(4096, 0, 0); err == nil {
			t.Fatal("Allocate() expected error when mmap fails")
		}
		if closedFd != 42 {
			t.Errorf("closed fd = %d, want 42 (leaked dma-buf fd)", closedFd)
		}
	})
}

func TestHeapDevice_Free(t *testing.T) {
	withFakeSyscalls(t, func() {
		var unmapped, closed bool
		munmapFn = func(b []byte) error { unmapped = true; return nil }
		closeFn = func(fd int) error { closed = true; return nil }

		d := NewHeapDevice("")
		h := newBufferHandle(42, -1, make([]byte, 16), 16)
		if err := d.Free(h); err != nil {
			t.Fatalf("Free() error = %v", err)
		}
		if !unmapped || !closed {
			t.Errorf("Free() unmapped=%v closed=%v, want both true", unmapped, closed)
		}
		if h.Virt != nil || h.Fd >= 0 {
			t.Error("Free() should clear Virt and mark Fd invalid")
		}
	})
}
