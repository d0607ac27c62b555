package drm

import (
	"testing"
	"unsafe"

	sys "golang.org/x/sys/unix"
)

func withFakeDrmSyscalls(t *testing.T, run func()) {
	t.Helper()
	origIoctl, origOpen, origClose, origMmap, origMunmap, origPoll, origRead :=
		ioctlFn, openFn, closeFn, mmapFn, munmapFn, pollReadFn, readFn
	defer func() {
		ioctlFn, openFn, closeFn, mmapFn, munmapFn, pollReadFn, readFn =
			origIoctl, origOpen, origClose, origMmap, origMunmap, origPoll, origRead
	}()
	run()
}

func TestAllocateMMap_Success(t *testing.T) {
	withFakeDrmSyscalls(t, func() {
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			switch req {
			case reqCreateDumb:
				d := (*modeCreateDumb)(unsafe.Pointer(arg))
				d.Handle = 5
				d.Pitch = d.Width * 4
				d.Size = uint64(d.Pitch) * uint64(d.Height)
			case reqAddFB:
				f := (*modeFbCmd)(unsafe.Pointer(arg))
				f.FbID = 77
			case reqMapDumb:
				m := (*modeMapDumb)(unsafe.Pointer(arg))
				m.Offset = 0x4000
			default:
				t.Fatalf("unexpected ioctl request %#x", req)
			}
			return 0
		}
		var mappedOffset int64
		mmapFn = func(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
			mappedOffset = offset
			return make([]byte, length), nil
		}

		buf, err := allocateMMap(3, BufferInfo{Width: 64, Height: 32, Bpp: 32, Depth: 24})
		if err != nil {
			t.Fatalf("allocateMMap() error = %v", err)
		}
		if buf.FbID != 77 || buf.Handle != 5 {
			t.Errorf("buf = %+v, want FbID 77 Handle 5", buf)
		}
		if mappedOffset != 0x4000 {
			t.Errorf("mmap offset = %#x, want 0x4000", mappedOffset)
		}
		if len(buf.Ptr) != 64*32*4 {
			t.Errorf("len(Ptr) = %d, want %d", len(buf.Ptr), 64*32*4)
		}
	})
}

func TestAllocateMMap_CreateDumbFails_NoFurtherCalls(t *testing.T) {
	withFakeDrmSyscalls(t, func() {
		called := 0
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			called++
			return sys.ENOMEM
		}
		if _, err := allocateMMap(3, BufferInfo{Width: 64, Height: 32, Bpp: 32}); err == nil {
			t.Fatal("expected error")
		}
		if called != 1 {
			t.Errorf("ioctl called %d times, want 1 (should not proceed past create-dumb failure)", called)
		}
	})
}

func TestAllocateMMap_MapDumbFails_UnwindsFbAndDumb(t *testing.T) {
	withFakeDrmSyscalls(t, func() {
		var destroyed, removed bool
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			switch req {
			case reqCreateDumb:
				(*modeCreateDumb)(unsafe.Pointer(arg)).Handle = 9
			case reqAddFB:
				(*modeFbCmd)(unsafe.Pointer(arg)).FbID = 3
			case reqMapDumb:
				return sys.EINVAL
			case reqRmFB:
				removed = true
			case reqDestroyDumb:
				destroyed = true
			}
			return 0
		}
		if _, err := allocateMMap(3, BufferInfo{Width: 8, Height: 8, Bpp: 32}); err == nil {
			t.Fatal("expected error")
		}
		if !removed || !destroyed {
			t.Errorf("unwind: removed=%v destroyed=%v, want both true", removed, destroyed)
		}
	})
}

func TestReleaseMMap(t *testing.T) {
	withFakeDrmSyscalls(t, func() {
		var unmapped, removed, destroyed bool
		munmapFn = func(b []byte) error { unmapped = true; return nil }
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			switch req {
			case reqRmFB:
				removed = true
			case reqDestroyDumb:
				destroyed = true
			}
			return 0
		}
		buf := &ScanoutBuffer{Allocator: AllocatorMMap, FbID: 1, Handle: 2, Ptr: make([]byte, 4)}
		if err := ReleaseBuffer(3, buf); err != nil {
			t.Fatalf("ReleaseBuffer() error = %v", err)
		}
		if !unmapped || !removed || !destroyed {
			t.Errorf("unmapped=%v removed=%v destroyed=%v, want all true", unmapped, removed, destroyed)
		}
	})
}

func TestExposeHandleToFd(t *testing.T) {
	withFakeDrmSyscalls(t, func() {
		ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
			if req != reqPrimeHandleToFd {
				t.Fatalf("request = %#x, want PRIME_HANDLE_TO_FD", req)
			}
			(*primeHandle)(unsafe.Pointer(arg)).Fd = 55
			return 0
		}
		fd, err := ExposeHandleToFd(3, &ScanoutBuffer{Handle: 9})
		if err != nil {
			t.Fatalf("ExposeHandleToFd() error = %v", err)
		}
		if fd != 55 {
			t.Errorf("fd = %d, want 55", fd)
		}
	})
}

func TestAllocateBuffer_UnknownAllocator(t *testing.T) {
	if _, err := AllocateBuffer(3, AllocatorType(99), BufferInfo{}); err == nil {
		t.Fatal("expected error for unknown allocator")
	}
}
