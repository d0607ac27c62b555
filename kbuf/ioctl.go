package kbuf

import (
	sys "golang.org/x/sys/unix"
)

// ioctlFn is a package-level indirection over the raw ioctl syscall so
// tests can substitute a fake without a real heap device present.
var ioctlFn = func(fd int, req uintptr, arg uintptr) sys.Errno {
	for {
		_, _, errno := sys.Syscall(sys.SYS_IOCTL, uintptr(fd), req, arg)
		switch errno {
		case 0:
			return 0
		case sys.EINTR:
			continue
		default:
			return errno
		}
	}
}

// send issues an ioctl and classifies a failure into a kbuf sentinel error.
func send(fd int, req uintptr, arg uintptr) error {
	if errno := ioctlFn(fd, req, arg); errno != 0 {
		return parseErrno(errno)
	}
	return nil
}

// Indirections over the raw file/mmap syscalls, so allocator tests can run
// without a real heap device or dma-buf fd present.
var (
	openFn   = sys.Open
	closeFn  = sys.Close
	mmapFn   = sys.Mmap
	munmapFn = sys.Munmap
)
